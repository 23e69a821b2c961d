// Package gemini translates the Gemini CLI's ACP-style JSON-RPC stream into
// canonical stream messages. The wire carries session/update notifications
// for streaming content and tool calls, and plain response lines for session
// creation and turn completion.
package gemini

import "encoding/json"

// Update discriminator strings inside session/update notifications.
const (
	updateMessageChunk = "agent_message_chunk"
	updateThoughtChunk = "agent_thought_chunk"
	updateUserChunk    = "user_message_chunk"
	updateToolCall     = "tool_call"
	updateToolUpdate   = "tool_call_update"
	updatePlan         = "plan"
	updateCommands     = "available_commands_update"
	updateCurrentMode  = "current_mode_update"
)

// Methods the agent sends that carry no timeline content.
var ignoredMethods = map[string]bool{
	"fs/read_text_file":          true,
	"fs/write_text_file":         true,
	"session/request_permission": true,
}

// RawEvent is the first-pass decode of one JSON-RPC line. Exactly one of
// Method, Result or Error carries the payload.
type RawEvent struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// WireError is a JSON-RPC error object.
type WireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// updateParams is the params of a session/update notification.
type updateParams struct {
	SessionID string        `json:"sessionId"`
	Update    SessionUpdate `json:"update"`
}

// SessionUpdate is the discriminated union inside a notification. The CLI
// uses "sessionUpdate" as the discriminator field name.
type SessionUpdate struct {
	Type string `json:"sessionUpdate"`

	// agent_message_chunk / agent_thought_chunk / user_message_chunk.
	Content *ContentBlock `json:"content,omitempty"`

	// tool_call / tool_call_update.
	ToolCallID string                 `json:"toolCallId,omitempty"`
	ToolName   string                 `json:"toolName,omitempty"`
	Title      string                 `json:"title,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Input      map[string]interface{} `json:"input,omitempty"`
	Result     []ContentBlock         `json:"result,omitempty"`
}

// ContentBlock is typed content; only text blocks reach the timeline.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// resultPayload covers both response shapes the adapter cares about: a
// session/new response carries sessionId, a session/prompt response carries
// stopReason.
type resultPayload struct {
	SessionID  string `json:"sessionId,omitempty"`
	StopReason string `json:"stopReason,omitempty"`
	Model      string `json:"model,omitempty"`
}
