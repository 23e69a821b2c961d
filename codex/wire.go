// Package codex translates Codex's JSONL event stream into canonical stream
// messages. Codex reports work as multi-phase items (started → updated →
// completed); only the completed phase becomes a durable message. Session
// history lives in rollout files under ~/.codex/sessions, parsed by
// LoadSessionHistory.
package codex

import "encoding/json"

// Event type strings on the wire.
const (
	eventSessionMeta   = "session_meta"
	eventThreadStarted = "thread.started"
	eventTurnStarted   = "turn.started"
	eventTurnCompleted = "turn.completed"
	eventTurnFailed    = "turn.failed"
	eventItemStarted   = "item.started"
	eventItemUpdated   = "item.updated"
	eventItemCompleted = "item.completed"
	eventMessageDelta  = "agent_message_delta"
	eventReasonDelta   = "agent_reasoning_delta"
	eventError         = "error"
	eventResponseItem  = "response_item"
)

// Item kinds inside item.* events.
const (
	itemAgentMessage = "agent_message"
	itemReasoning    = "reasoning"
	itemCommandExec  = "command_execution"
	itemFileChange   = "file_change"
	itemMCPToolCall  = "mcp_tool_call"
	itemUserMessage  = "user_message"
)

// RawEvent is the first-pass decode of one JSONL line.
type RawEvent struct {
	Type     string          `json:"type"`
	ThreadID string          `json:"thread_id,omitempty"`
	TurnID   string          `json:"turn_id,omitempty"`
	ItemID   string          `json:"item_id,omitempty"`
	Delta    string          `json:"delta,omitempty"`
	Message  string          `json:"message,omitempty"`
	Item     *Item           `json:"item,omitempty"`
	Usage    *TokenUsage     `json:"usage,omitempty"`
	Error    *WireError      `json:"error,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Item is one unit of work within a turn.
type Item struct {
	ID       string `json:"id"`
	ItemType string `json:"item_type"`

	// agent_message / reasoning / user_message.
	Text string `json:"text,omitempty"`

	// command_execution.
	Command          string `json:"command,omitempty"`
	CWD              string `json:"cwd,omitempty"`
	AggregatedOutput string `json:"aggregated_output,omitempty"`
	ExitCode         *int   `json:"exit_code,omitempty"`

	// file_change.
	Changes []FileChange `json:"changes,omitempty"`

	// mcp_tool_call.
	Server string                 `json:"server,omitempty"`
	Tool   string                 `json:"tool,omitempty"`
	Args   map[string]interface{} `json:"arguments,omitempty"`
	Result interface{}            `json:"result,omitempty"`
	Status string                 `json:"status,omitempty"`
}

// FileChange describes one changed path in a file_change item.
type FileChange struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// TokenUsage is the usage block on turn.completed.
type TokenUsage struct {
	InputTokens       int64 `json:"input_tokens"`
	CachedInputTokens int64 `json:"cached_input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
}

// WireError is the error payload on turn.failed and error events.
type WireError struct {
	Message string `json:"message"`
}

// sessionMetaPayload is the payload of a session_meta line.
type sessionMetaPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	CWD       string `json:"cwd"`
	Model     string `json:"model,omitempty"`
}

// responseItemPayload is the payload of a rollout response_item line.
type responseItemPayload struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
