// Package claude translates the Claude CLI's stream-json event lines into
// canonical stream messages.
package claude

import (
	"encoding/json"
)

// MessageType discriminates between wire message kinds.
type MessageType string

const (
	MessageTypeSystem      MessageType = "system"
	MessageTypeAssistant   MessageType = "assistant"
	MessageTypeUser        MessageType = "user"
	MessageTypeResult      MessageType = "result"
	MessageTypeStreamEvent MessageType = "stream_event"
)

// RawEvent is the first-pass decode of one JSON line.
type RawEvent struct {
	Type      MessageType     `json:"type"`
	Subtype   string          `json:"subtype,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	UUID      string          `json:"uuid,omitempty"`
	Model     string          `json:"model,omitempty"`
	CWD       string          `json:"cwd,omitempty"`
	Message   *MessageContent `json:"message,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`

	// Result fields.
	Result       string        `json:"result,omitempty"`
	IsError      bool          `json:"is_error,omitempty"`
	DurationMs   int64         `json:"duration_ms,omitempty"`
	TotalCostUSD float64       `json:"total_cost_usd,omitempty"`
	Usage        *UsageDetails `json:"usage,omitempty"`
}

// MessageContent is the inner content of assistant/user messages.
type MessageContent struct {
	ID      string          `json:"id,omitempty"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// UsageDetails tracks token usage reported on result messages.
type UsageDetails struct {
	InputTokens          int64 `json:"input_tokens"`
	OutputTokens         int64 `json:"output_tokens"`
	CacheReadInputTokens int64 `json:"cache_read_input_tokens"`
}

// ContentBlock is one element of a content array.
type ContentBlock struct {
	Type string `json:"type"`

	// text / thinking blocks.
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`

	// tool_use blocks.
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// tool_result blocks.
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   *bool           `json:"is_error,omitempty"`
}

// ContentText returns the content as plain text when it is a JSON string.
func (mc *MessageContent) ContentText() (string, bool) {
	if mc == nil || len(mc.Content) == 0 || mc.Content[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(mc.Content, &s); err != nil {
		return "", false
	}
	return s, true
}

// ContentBlocksOf returns the content as blocks when it is a JSON array.
func (mc *MessageContent) ContentBlocksOf() ([]ContentBlock, bool) {
	if mc == nil || len(mc.Content) == 0 || mc.Content[0] == '"' {
		return nil, false
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(mc.Content, &blocks); err != nil {
		return nil, false
	}
	return blocks, true
}

// streamEvent is the inner payload of a stream_event line.
type streamEvent struct {
	Type  string          `json:"type"`
	Index int             `json:"index,omitempty"`
	Delta json.RawMessage `json:"delta,omitempty"`
}

// blockDelta is the delta field of a content_block_delta event.
type blockDelta struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}
