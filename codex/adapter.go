package codex

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anyme123/claude-workbench/stream"
)

// EngineName tags canonical messages produced by this adapter.
const EngineName = "codex"

// Adapter converts one Codex JSONL event into zero or one canonical message.
// Internal memory covers the three things the wire format demands: the last
// known thread id, text already streamed per item (so item.completed does not
// repeat it), and item ids that already produced their durable message.
type Adapter struct {
	log *zap.Logger

	threadID     string
	streamed     map[string]int
	doneItems    map[string]bool
	expectedEcho string
}

// NewAdapter creates an adapter. A nil logger disables logging.
func NewAdapter(log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		log:       log,
		streamed:  make(map[string]int),
		doneItems: make(map[string]bool),
	}
}

// Engine returns the engine tag.
func (a *Adapter) Engine() string { return EngineName }

// ExpectUserEcho registers the optimistically echoed prompt so the engine's
// own user_message item for it is suppressed.
func (a *Adapter) ExpectUserEcho(prompt string) {
	a.expectedEcho = strings.TrimSpace(prompt)
}

// SessionID extracts the session (thread) id carried by a raw event, or "".
func (a *Adapter) SessionID(raw []byte) string {
	var ev RawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ""
	}
	if ev.ThreadID != "" {
		return ev.ThreadID
	}
	if ev.Type == eventSessionMeta && len(ev.Payload) > 0 {
		var meta sessionMetaPayload
		if err := json.Unmarshal(ev.Payload, &meta); err == nil {
			return meta.ID
		}
	}
	return ""
}

// Translate converts one raw event line. A (nil, nil) return means the event
// produces no canonical message.
func (a *Adapter) Translate(raw []byte) (*stream.Message, error) {
	var ev RawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, &ProtocolError{Message: "failed to parse event", Line: string(raw), Cause: err}
	}

	switch ev.Type {
	case eventSessionMeta:
		return a.translateSessionMeta(&ev)

	case eventThreadStarted:
		if ev.ThreadID == "" || ev.ThreadID == a.threadID {
			return nil, nil
		}
		a.threadID = ev.ThreadID
		return &stream.Message{
			Kind:      stream.KindSystemInit,
			Engine:    EngineName,
			SessionID: ev.ThreadID,
			ID:        "init_" + ev.ThreadID,
			Timestamp: time.Now(),
		}, nil

	case eventTurnStarted, eventItemUpdated:
		return nil, nil

	case eventMessageDelta:
		a.streamed[ev.ItemID] += len(ev.Delta)
		return &stream.Message{
			Kind:      stream.KindAssistant,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			Text:      ev.Delta,
			Delta:     true,
			Timestamp: time.Now(),
		}, nil

	case eventReasonDelta:
		return &stream.Message{
			Kind:      stream.KindThinking,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			Thinking:  ev.Delta,
			Delta:     true,
			Timestamp: time.Now(),
		}, nil

	case eventItemStarted:
		return a.translateItemStarted(&ev)

	case eventItemCompleted:
		return a.translateItemCompleted(&ev)

	case eventTurnCompleted:
		msg := &stream.Message{
			Kind:      stream.KindResult,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			ID:        resultID(ev.ThreadID, ev.TurnID),
			Success:   true,
			Timestamp: time.Now(),
		}
		if ev.Usage != nil {
			msg.Usage = &stream.Usage{
				InputTokens:     ev.Usage.InputTokens,
				OutputTokens:    ev.Usage.OutputTokens,
				CacheReadTokens: ev.Usage.CachedInputTokens,
			}
		}
		return msg, nil

	case eventTurnFailed:
		msg := &stream.Message{
			Kind:      stream.KindResult,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			ID:        resultID(ev.ThreadID, ev.TurnID),
			Success:   false,
			Timestamp: time.Now(),
		}
		if ev.Error != nil {
			msg.Text = ev.Error.Message
		}
		return msg, nil

	case eventError:
		text := ev.Message
		if text == "" && ev.Error != nil {
			text = ev.Error.Message
		}
		return &stream.Message{
			Kind:      stream.KindSystemError,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			Text:      text,
			Timestamp: time.Now(),
		}, nil

	default:
		a.log.Warn("dropping unknown codex event type", zap.String("type", ev.Type))
		return nil, nil
	}
}

func (a *Adapter) translateSessionMeta(ev *RawEvent) (*stream.Message, error) {
	var meta sessionMetaPayload
	if err := json.Unmarshal(ev.Payload, &meta); err != nil {
		return nil, &ProtocolError{Message: "failed to parse session_meta payload", Cause: err}
	}
	if meta.ID == "" || meta.ID == a.threadID {
		return nil, nil
	}
	a.threadID = meta.ID
	return &stream.Message{
		Kind:      stream.KindSystemInit,
		Engine:    EngineName,
		SessionID: meta.ID,
		ID:        "init_" + meta.ID,
		Model:     meta.Model,
		Timestamp: time.Now(),
	}, nil
}

// translateItemStarted emits a provisional tool-use for long-running items so
// the UI can show progress. The completed phase supersedes it.
func (a *Adapter) translateItemStarted(ev *RawEvent) (*stream.Message, error) {
	if ev.Item == nil {
		return nil, nil
	}
	switch ev.Item.ItemType {
	case itemCommandExec:
		return &stream.Message{
			Kind:        stream.KindToolUse,
			Engine:      EngineName,
			SessionID:   a.scope(ev.ThreadID),
			ID:          "started_" + ev.Item.ID,
			ToolName:    "Shell",
			ToolUseID:   ev.Item.ID,
			ToolInput:   commandInput(ev.Item),
			Provisional: true,
			Timestamp:   time.Now(),
		}, nil
	case itemMCPToolCall:
		return &stream.Message{
			Kind:        stream.KindToolUse,
			Engine:      EngineName,
			SessionID:   a.scope(ev.ThreadID),
			ID:          "started_" + ev.Item.ID,
			ToolName:    mcpToolName(ev.Item),
			ToolUseID:   ev.Item.ID,
			ToolInput:   ev.Item.Args,
			Provisional: true,
			Timestamp:   time.Now(),
		}, nil
	default:
		return nil, nil
	}
}

// translateItemCompleted produces the single durable message for an item id.
func (a *Adapter) translateItemCompleted(ev *RawEvent) (*stream.Message, error) {
	if ev.Item == nil || a.doneItems[ev.Item.ID] {
		return nil, nil
	}
	item := ev.Item

	switch item.ItemType {
	case itemAgentMessage:
		a.doneItems[item.ID] = true
		if len(item.Text) <= a.streamed[item.ID] {
			return nil, nil
		}
		remainder := item.Text[a.streamed[item.ID]:]
		return &stream.Message{
			Kind:      stream.KindAssistant,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			ID:        item.ID,
			Text:      remainder,
			Delta:     a.streamed[item.ID] > 0,
			Timestamp: time.Now(),
		}, nil

	case itemReasoning:
		a.doneItems[item.ID] = true
		return &stream.Message{
			Kind:      stream.KindThinking,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			ID:        item.ID,
			Thinking:  item.Text,
			Timestamp: time.Now(),
		}, nil

	case itemCommandExec:
		a.doneItems[item.ID] = true
		exitCode := 0
		if item.ExitCode != nil {
			exitCode = *item.ExitCode
		}
		return &stream.Message{
			Kind:      stream.KindToolUse,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			ID:        item.ID,
			ToolName:  "Shell",
			ToolUseID: item.ID,
			ToolInput: commandInput(item),
			ToolResult: map[string]interface{}{
				"output":    item.AggregatedOutput,
				"exit_code": exitCode,
			},
			ToolIsError: exitCode != 0,
			Timestamp:   time.Now(),
		}, nil

	case itemFileChange:
		a.doneItems[item.ID] = true
		changes := make([]interface{}, 0, len(item.Changes))
		for _, c := range item.Changes {
			changes = append(changes, map[string]interface{}{"path": c.Path, "kind": c.Kind})
		}
		return &stream.Message{
			Kind:      stream.KindToolUse,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			ID:        item.ID,
			ToolName:  "ApplyPatch",
			ToolUseID: item.ID,
			ToolInput: map[string]interface{}{"changes": changes},
			Timestamp: time.Now(),
		}, nil

	case itemMCPToolCall:
		a.doneItems[item.ID] = true
		return &stream.Message{
			Kind:        stream.KindToolUse,
			Engine:      EngineName,
			SessionID:   a.scope(ev.ThreadID),
			ID:          item.ID,
			ToolName:    mcpToolName(item),
			ToolUseID:   item.ID,
			ToolInput:   item.Args,
			ToolResult:  item.Result,
			ToolIsError: item.Status == "failed",
			Timestamp:   time.Now(),
		}, nil

	case itemUserMessage:
		a.doneItems[item.ID] = true
		if a.expectedEcho != "" && strings.TrimSpace(item.Text) == a.expectedEcho {
			a.expectedEcho = ""
			return nil, nil
		}
		return &stream.Message{
			Kind:      stream.KindUser,
			Engine:    EngineName,
			SessionID: a.scope(ev.ThreadID),
			ID:        item.ID,
			Text:      item.Text,
			Timestamp: time.Now(),
		}, nil

	default:
		a.log.Warn("dropping unknown codex item type", zap.String("item_type", item.ItemType))
		return nil, nil
	}
}

// scope prefers the event's own thread id, falling back to the last seen one.
func (a *Adapter) scope(threadID string) string {
	if threadID != "" {
		return threadID
	}
	return a.threadID
}

func resultID(threadID, turnID string) string {
	if turnID == "" {
		return ""
	}
	return "turn_" + threadID + "_" + turnID
}

func commandInput(item *Item) map[string]interface{} {
	input := map[string]interface{}{}
	if cmd := strings.TrimSpace(item.Command); cmd != "" {
		input["command"] = cmd
	}
	if item.CWD != "" {
		input["cwd"] = item.CWD
	}
	return input
}

func mcpToolName(item *Item) string {
	if item.Server != "" && item.Tool != "" {
		return item.Server + "." + item.Tool
	}
	if item.Tool != "" {
		return item.Tool
	}
	return "mcp_tool_call"
}
