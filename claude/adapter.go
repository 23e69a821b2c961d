package claude

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anyme123/claude-workbench/stream"
)

// EngineName tags canonical messages produced by this adapter.
const EngineName = "claude"

// Adapter converts one stream-json event line into zero or one canonical
// message. It keeps the small amount of state the wire format requires:
// text already delivered via deltas (so complete assistant messages do not
// re-emit it), tool ids already turned into durable messages, and the last
// optimistic user echo to suppress.
type Adapter struct {
	log *zap.Logger

	sessionID    string
	streamedText int
	seenTools    map[string]bool
	expectedEcho string
}

// NewAdapter creates an adapter. A nil logger disables logging.
func NewAdapter(log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		log:       log,
		seenTools: make(map[string]bool),
	}
}

// Engine returns the engine tag.
func (a *Adapter) Engine() string { return EngineName }

// ExpectUserEcho tells the adapter the orchestrator already appended this
// prompt optimistically, so the engine's echo of it must be suppressed.
func (a *Adapter) ExpectUserEcho(prompt string) {
	a.expectedEcho = strings.TrimSpace(prompt)
}

// SessionID extracts the session id carried by a raw event, or "".
func (a *Adapter) SessionID(raw []byte) string {
	var ev struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ""
	}
	return ev.SessionID
}

// Translate converts one raw event line. A (nil, nil) return means the event
// produces no canonical message.
func (a *Adapter) Translate(raw []byte) (*stream.Message, error) {
	var ev RawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, &ProtocolError{Message: "failed to parse event", Line: string(raw), Cause: err}
	}

	switch ev.Type {
	case MessageTypeSystem:
		return a.translateSystem(&ev)
	case MessageTypeStreamEvent:
		return a.translateStreamEvent(&ev)
	case MessageTypeAssistant:
		return a.translateAssistant(&ev)
	case MessageTypeUser:
		return a.translateUser(&ev)
	case MessageTypeResult:
		return a.translateResult(&ev)
	default:
		a.log.Warn("dropping unknown claude event type", zap.String("type", string(ev.Type)))
		return nil, nil
	}
}

func (a *Adapter) translateSystem(ev *RawEvent) (*stream.Message, error) {
	switch ev.Subtype {
	case "init":
		a.sessionID = ev.SessionID
		return &stream.Message{
			Kind:      stream.KindSystemInit,
			Engine:    EngineName,
			SessionID: ev.SessionID,
			ID:        ev.UUID,
			Model:     ev.Model,
			Timestamp: time.Now(),
		}, nil
	case "error":
		return &stream.Message{
			Kind:      stream.KindSystemError,
			Engine:    EngineName,
			SessionID: ev.SessionID,
			ID:        ev.UUID,
			Text:      ev.Result,
			Timestamp: time.Now(),
		}, nil
	default:
		a.log.Warn("dropping unknown system subtype", zap.String("subtype", ev.Subtype))
		return nil, nil
	}
}

func (a *Adapter) translateStreamEvent(ev *RawEvent) (*stream.Message, error) {
	var inner streamEvent
	if err := json.Unmarshal(ev.Event, &inner); err != nil {
		return nil, &ProtocolError{Message: "failed to parse stream event", Cause: err}
	}

	switch inner.Type {
	case "message_start":
		a.streamedText = 0
		return nil, nil
	case "content_block_delta":
		var d blockDelta
		if err := json.Unmarshal(inner.Delta, &d); err != nil {
			return nil, &ProtocolError{Message: "failed to parse content block delta", Cause: err}
		}
		switch d.Type {
		case "text_delta":
			a.streamedText += len(d.Text)
			return &stream.Message{
				Kind:      stream.KindAssistant,
				Engine:    EngineName,
				SessionID: ev.SessionID,
				Text:      d.Text,
				Delta:     true,
				Timestamp: time.Now(),
			}, nil
		case "thinking_delta":
			return &stream.Message{
				Kind:      stream.KindThinking,
				Engine:    EngineName,
				SessionID: ev.SessionID,
				Thinking:  d.Thinking,
				Delta:     true,
				Timestamp: time.Now(),
			}, nil
		default:
			return nil, nil
		}
	default:
		// Block start/stop and message metadata carry nothing to render.
		return nil, nil
	}
}

// translateAssistant handles complete assistant messages. Tool invocations
// win over text: a tool_use block not yet seen becomes the durable tool-use
// message for its id; text sharing the event is expected to have arrived via
// deltas, which is how the wire delivers it when streaming is on. Text
// already delivered via deltas is not re-emitted; only the unseen remainder
// goes out, as a delta when there is a streamed message to merge into. Each
// complete event closes one message, so it closes the streamed-text
// accounting too and the turn's next assistant message starts fresh.
func (a *Adapter) translateAssistant(ev *RawEvent) (*stream.Message, error) {
	blocks, ok := ev.Message.ContentBlocksOf()
	if !ok {
		return nil, nil
	}

	streamed := a.streamedText
	a.streamedText = 0

	for _, block := range blocks {
		if block.Type != "tool_use" || block.ID == "" || a.seenTools[block.ID] {
			continue
		}
		a.seenTools[block.ID] = true
		return &stream.Message{
			Kind:      stream.KindToolUse,
			Engine:    EngineName,
			SessionID: ev.SessionID,
			ID:        block.ID,
			ToolName:  block.Name,
			ToolUseID: block.ID,
			ToolInput: block.Input,
			Timestamp: time.Now(),
		}, nil
	}

	for _, block := range blocks {
		if block.Type != "text" {
			continue
		}
		if len(block.Text) <= streamed {
			return nil, nil
		}
		return &stream.Message{
			Kind:      stream.KindAssistant,
			Engine:    EngineName,
			SessionID: ev.SessionID,
			Text:      block.Text[streamed:],
			Delta:     streamed > 0,
			Timestamp: time.Now(),
		}, nil
	}

	return nil, nil
}

// translateUser handles user-role messages echoed by the engine: tool results
// the CLI executed, and echoes of the prompt itself.
func (a *Adapter) translateUser(ev *RawEvent) (*stream.Message, error) {
	if blocks, ok := ev.Message.ContentBlocksOf(); ok {
		for _, block := range blocks {
			if block.Type != "tool_result" {
				continue
			}
			isErr := block.IsError != nil && *block.IsError
			var content interface{}
			if len(block.Content) > 0 {
				_ = json.Unmarshal(block.Content, &content)
			}
			return &stream.Message{
				Kind:        stream.KindToolResult,
				Engine:      EngineName,
				SessionID:   ev.SessionID,
				ID:          "result_" + block.ToolUseID,
				ToolUseID:   block.ToolUseID,
				ToolResult:  content,
				ToolIsError: isErr,
				Timestamp:   time.Now(),
			}, nil
		}
		return nil, nil
	}

	text, ok := ev.Message.ContentText()
	if !ok {
		return nil, nil
	}
	if a.expectedEcho != "" && strings.TrimSpace(text) == a.expectedEcho {
		a.expectedEcho = ""
		return nil, nil
	}
	return &stream.Message{
		Kind:      stream.KindUser,
		Engine:    EngineName,
		SessionID: ev.SessionID,
		ID:        ev.UUID,
		Text:      text,
		Timestamp: time.Now(),
	}, nil
}

func (a *Adapter) translateResult(ev *RawEvent) (*stream.Message, error) {
	a.streamedText = 0

	msg := &stream.Message{
		Kind:       stream.KindResult,
		Engine:     EngineName,
		SessionID:  ev.SessionID,
		ID:         ev.UUID,
		Text:       ev.Result,
		Success:    !ev.IsError,
		DurationMs: ev.DurationMs,
		CostUSD:    ev.TotalCostUSD,
		Timestamp:  time.Now(),
	}
	if ev.Usage != nil {
		msg.Usage = &stream.Usage{
			InputTokens:     ev.Usage.InputTokens,
			OutputTokens:    ev.Usage.OutputTokens,
			CacheReadTokens: ev.Usage.CacheReadInputTokens,
		}
	}
	return msg, nil
}
