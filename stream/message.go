package stream

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Kind discriminates between canonical message kinds.
type Kind string

const (
	// KindSystemInit is the first event of a session; it carries the
	// backend-assigned session id.
	KindSystemInit Kind = "system-init"
	// KindSystemError is a non-fatal engine-reported error.
	KindSystemError Kind = "system-error"
	// KindSystemInfo is an informational notice (e.g. cancellation).
	KindSystemInfo Kind = "system-info"
	// KindUser is a user-authored turn.
	KindUser Kind = "user"
	// KindAssistant is assistant-authored text. Delta marks partial chunks.
	KindAssistant Kind = "assistant"
	// KindToolUse is a tool invocation, durable form carrying its result.
	KindToolUse Kind = "tool-use"
	// KindToolResult is a standalone tool result echoed by the engine.
	KindToolResult Kind = "tool-result"
	// KindThinking is reasoning/chain-of-thought content. Delta marks chunks.
	KindThinking Kind = "thinking"
	// KindResult is turn completion with usage and cost metadata.
	KindResult Kind = "result"
)

// Usage tracks token consumption for a turn.
type Usage struct {
	InputTokens     int64 `json:"input_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	CacheReadTokens int64 `json:"cache_read_tokens,omitempty"`
	TotalTokens     int64 `json:"total_tokens,omitempty"`
}

// Message is the canonical, engine-agnostic representation of one timeline
// entry. Fields beyond Kind, Engine and Timestamp are populated per kind.
type Message struct {
	Kind      Kind      `json:"kind"`
	Engine    string    `json:"engine"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// ID is the engine-provided stable identifier, when one exists.
	ID string `json:"id,omitempty"`

	// Text carries user/assistant/system text, or the result summary.
	Text string `json:"text,omitempty"`

	// Thinking carries reasoning content for KindThinking.
	Thinking string `json:"thinking,omitempty"`

	// Delta marks a streaming fragment that merges into the previous
	// assistant or thinking message of the same turn.
	Delta bool `json:"delta,omitempty"`

	// Tool fields, for KindToolUse and KindToolResult.
	ToolName    string                 `json:"tool_name,omitempty"`
	ToolUseID   string                 `json:"tool_use_id,omitempty"`
	ToolInput   map[string]interface{} `json:"tool_input,omitempty"`
	ToolResult  interface{}            `json:"tool_result,omitempty"`
	ToolIsError bool                   `json:"tool_is_error,omitempty"`

	// Provisional marks a multi-phase item that a later durable message for
	// the same ToolUseID is expected to supersede.
	Provisional bool `json:"provisional,omitempty"`

	// Result fields, for KindResult.
	Success    bool    `json:"success,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
	CostUSD    float64 `json:"cost_usd,omitempty"`
	Usage      *Usage  `json:"usage,omitempty"`

	// Model is the engine model reported at init, when known.
	Model string `json:"model,omitempty"`
}

// Fingerprint returns a stable identity for duplicate suppression: the
// engine-provided id when present, otherwise a hash over the content fields.
func (m *Message) Fingerprint() string {
	if m.ID != "" {
		return string(m.Kind) + ":" + m.ID
	}

	h := sha256.New()
	h.Write([]byte(m.Kind))
	h.Write([]byte(m.Engine))
	h.Write([]byte(m.SessionID))
	h.Write([]byte(m.Text))
	h.Write([]byte(m.Thinking))
	h.Write([]byte(m.ToolName))
	h.Write([]byte(m.ToolUseID))
	if m.ToolInput != nil {
		if b, err := json.Marshal(m.ToolInput); err == nil {
			h.Write(b)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CanMergeDelta reports whether m is a delta chunk that belongs to prev.
// Assistant deltas merge into the last assistant message of the same session,
// thinking deltas into the last thinking message.
func (m *Message) CanMergeDelta(prev *Message) bool {
	if m == nil || prev == nil || !m.Delta {
		return false
	}
	if m.Kind != prev.Kind {
		return false
	}
	if m.Kind != KindAssistant && m.Kind != KindThinking {
		return false
	}
	if m.SessionID != "" && prev.SessionID != "" && m.SessionID != prev.SessionID {
		return false
	}
	return true
}

// MergeDelta appends m's content to prev in place. Callers must check
// CanMergeDelta first.
func (m *Message) MergeDelta(prev *Message) {
	prev.Text += m.Text
	prev.Thinking += m.Thinking
	prev.Timestamp = m.Timestamp
}
