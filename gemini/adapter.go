package gemini

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anyme123/claude-workbench/stream"
)

// EngineName tags canonical messages produced by this adapter.
const EngineName = "gemini"

// Adapter converts one Gemini JSON-RPC line into zero or one canonical
// message. The session id arrives in the session/new response and is repeated
// on every notification; tool calls report in two phases, so the adapter
// remembers which call ids already produced their durable message.
type Adapter struct {
	log *zap.Logger

	sessionID    string
	doneTools    map[string]bool
	expectedEcho string
}

// NewAdapter creates an adapter. A nil logger disables logging.
func NewAdapter(log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		log:       log,
		doneTools: make(map[string]bool),
	}
}

// Engine returns the engine tag.
func (a *Adapter) Engine() string { return EngineName }

// ExpectUserEcho registers the optimistically echoed prompt so a matching
// user_message_chunk is suppressed.
func (a *Adapter) ExpectUserEcho(prompt string) {
	a.expectedEcho = strings.TrimSpace(prompt)
}

// SessionID extracts the session id carried by a raw event, or "".
func (a *Adapter) SessionID(raw []byte) string {
	var ev RawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ""
	}
	if ev.Method == "session/update" && len(ev.Params) > 0 {
		var params updateParams
		if err := json.Unmarshal(ev.Params, &params); err == nil {
			return params.SessionID
		}
	}
	if len(ev.Result) > 0 {
		var res resultPayload
		if err := json.Unmarshal(ev.Result, &res); err == nil {
			return res.SessionID
		}
	}
	return ""
}

// Translate converts one raw line. A (nil, nil) return means the line
// produces no canonical message.
func (a *Adapter) Translate(raw []byte) (*stream.Message, error) {
	var ev RawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, &ProtocolError{Message: "failed to parse event", Line: string(raw), Cause: err}
	}

	if ev.Error != nil {
		return &stream.Message{
			Kind:      stream.KindSystemError,
			Engine:    EngineName,
			SessionID: a.sessionID,
			Text:      ev.Error.Message,
			Timestamp: time.Now(),
		}, nil
	}

	if len(ev.Result) > 0 {
		return a.translateResult(&ev)
	}

	switch {
	case ev.Method == "session/update":
		return a.translateUpdate(&ev)
	case ev.Method == "":
		return nil, nil
	case ignoredMethods[ev.Method]:
		return nil, nil
	default:
		a.log.Warn("dropping unknown gemini method", zap.String("method", ev.Method))
		return nil, nil
	}
}

// translateResult handles response lines: session creation announces the
// session, prompt completion ends the turn.
func (a *Adapter) translateResult(ev *RawEvent) (*stream.Message, error) {
	var res resultPayload
	if err := json.Unmarshal(ev.Result, &res); err != nil {
		return nil, &ProtocolError{Message: "failed to parse result payload", Cause: err}
	}

	if res.SessionID != "" && res.SessionID != a.sessionID {
		a.sessionID = res.SessionID
		return &stream.Message{
			Kind:      stream.KindSystemInit,
			Engine:    EngineName,
			SessionID: res.SessionID,
			ID:        "init_" + res.SessionID,
			Model:     res.Model,
			Timestamp: time.Now(),
		}, nil
	}

	if res.StopReason != "" {
		return &stream.Message{
			Kind:      stream.KindResult,
			Engine:    EngineName,
			SessionID: a.sessionID,
			Success:   res.StopReason == "end_turn" || res.StopReason == "endTurn" || res.StopReason == "max_tokens" || res.StopReason == "maxTokens",
			Text:      res.StopReason,
			Timestamp: time.Now(),
		}, nil
	}

	return nil, nil
}

func (a *Adapter) translateUpdate(ev *RawEvent) (*stream.Message, error) {
	var params updateParams
	if err := json.Unmarshal(ev.Params, &params); err != nil {
		return nil, &ProtocolError{Message: "failed to parse session/update params", Cause: err}
	}
	if params.SessionID != "" {
		a.sessionID = params.SessionID
	}
	update := params.Update

	switch update.Type {
	case updateMessageChunk:
		return &stream.Message{
			Kind:      stream.KindAssistant,
			Engine:    EngineName,
			SessionID: a.sessionID,
			Text:      contentText(update.Content),
			Delta:     true,
			Timestamp: time.Now(),
		}, nil

	case updateThoughtChunk:
		return &stream.Message{
			Kind:      stream.KindThinking,
			Engine:    EngineName,
			SessionID: a.sessionID,
			Thinking:  contentText(update.Content),
			Delta:     true,
			Timestamp: time.Now(),
		}, nil

	case updateUserChunk:
		text := contentText(update.Content)
		if a.expectedEcho != "" && strings.TrimSpace(text) == a.expectedEcho {
			a.expectedEcho = ""
			return nil, nil
		}
		return &stream.Message{
			Kind:      stream.KindUser,
			Engine:    EngineName,
			SessionID: a.sessionID,
			Text:      text,
			Timestamp: time.Now(),
		}, nil

	case updateToolCall:
		if a.doneTools[update.ToolCallID] {
			return nil, nil
		}
		if terminalStatus(update.Status) {
			return a.durableToolCall(&update), nil
		}
		return &stream.Message{
			Kind:        stream.KindToolUse,
			Engine:      EngineName,
			SessionID:   a.sessionID,
			ID:          "started_" + update.ToolCallID,
			ToolName:    toolName(&update),
			ToolUseID:   update.ToolCallID,
			ToolInput:   update.Input,
			Provisional: true,
			Timestamp:   time.Now(),
		}, nil

	case updateToolUpdate:
		if a.doneTools[update.ToolCallID] || !terminalStatus(update.Status) {
			return nil, nil
		}
		return a.durableToolCall(&update), nil

	case updatePlan, updateCommands, updateCurrentMode:
		return nil, nil

	default:
		a.log.Warn("dropping unknown gemini update type", zap.String("session_update", update.Type))
		return nil, nil
	}
}

// durableToolCall emits the single durable message for a tool call id.
func (a *Adapter) durableToolCall(update *SessionUpdate) *stream.Message {
	a.doneTools[update.ToolCallID] = true
	msg := &stream.Message{
		Kind:        stream.KindToolUse,
		Engine:      EngineName,
		SessionID:   a.sessionID,
		ID:          update.ToolCallID,
		ToolName:    toolName(update),
		ToolUseID:   update.ToolCallID,
		ToolInput:   update.Input,
		ToolIsError: update.Status == "failed" || update.Status == "errored",
		Timestamp:   time.Now(),
	}
	if result := blocksText(update.Result); result != "" {
		msg.ToolResult = result
	}
	return msg
}

func terminalStatus(status string) bool {
	return status == "completed" || status == "failed" || status == "errored"
}

func toolName(update *SessionUpdate) string {
	if update.ToolName != "" {
		return update.ToolName
	}
	if update.Title != "" {
		return update.Title
	}
	return "tool"
}

func contentText(c *ContentBlock) string {
	if c == nil {
		return ""
	}
	return c.Text
}

func blocksText(blocks []ContentBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
