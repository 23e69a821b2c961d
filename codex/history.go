package codex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anyme123/claude-workbench/stream"
)

// SessionMeta summarizes a rollout session file.
type SessionMeta struct {
	ID           string
	ProjectPath  string
	Model        string
	CreatedAt    time.Time
	FirstMessage string
}

// maxHistoryLine bounds the scanner buffer; rollout lines can carry large
// aggregated tool output.
const maxHistoryLine = 4 * 1024 * 1024

// isPreamble reports whether a user text is injected context rather than a
// real prompt (environment context, AGENTS.md instructions).
func isPreamble(text string) bool {
	return strings.Contains(text, "<environment_context>") ||
		strings.Contains(text, "# AGENTS.md instructions")
}

// ParseSessionMeta reads a rollout JSONL file's metadata and first real user
// message without materializing the full history.
func ParseSessionMeta(path string) (*SessionMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxHistoryLine)

	if !scanner.Scan() {
		return nil, fmt.Errorf("session file %s is empty", path)
	}

	var first RawEvent
	if err := json.Unmarshal(scanner.Bytes(), &first); err != nil {
		return nil, fmt.Errorf("parse session meta line: %w", err)
	}
	if first.Type != eventSessionMeta {
		return nil, fmt.Errorf("session file %s does not start with session_meta", path)
	}

	var payload sessionMetaPayload
	if err := json.Unmarshal(first.Payload, &payload); err != nil {
		return nil, fmt.Errorf("parse session_meta payload: %w", err)
	}

	meta := &SessionMeta{
		ID:          payload.ID,
		ProjectPath: payload.CWD,
		Model:       payload.Model,
	}
	if ts, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
		meta.CreatedAt = ts
	}

	for scanner.Scan() {
		var ev RawEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		if ev.Type != eventResponseItem {
			continue
		}
		var item responseItemPayload
		if err := json.Unmarshal(ev.Payload, &item); err != nil {
			continue
		}
		if item.Role != "user" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "input_text" && strings.TrimSpace(c.Text) != "" && !isPreamble(c.Text) {
				meta.FirstMessage = c.Text
				return meta, scanner.Err()
			}
		}
	}

	return meta, scanner.Err()
}

// LoadSessionHistory replays a rollout JSONL file into canonical messages,
// reusing the adapter for live-format lines and mapping rollout response
// items directly.
func LoadSessionHistory(path string) ([]*stream.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	adapter := NewAdapter(nil)
	var messages []*stream.Message

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxHistoryLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var ev RawEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}

		if ev.Type == eventResponseItem {
			if msg := responseItemMessage(&ev, adapter); msg != nil {
				messages = append(messages, msg)
			}
			continue
		}

		msg, err := adapter.Translate(line)
		if err != nil || msg == nil {
			continue
		}
		messages = append(messages, msg)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return messages, nil
}

// responseItemMessage maps a rollout response_item line to a canonical
// message, or nil for preamble and non-message items.
func responseItemMessage(ev *RawEvent, adapter *Adapter) *stream.Message {
	var item responseItemPayload
	if err := json.Unmarshal(ev.Payload, &item); err != nil {
		return nil
	}
	if item.Type != "" && item.Type != "message" {
		return nil
	}

	var text strings.Builder
	for _, c := range item.Content {
		if c.Type == "input_text" || c.Type == "output_text" {
			text.WriteString(c.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil
	}

	switch item.Role {
	case "user":
		if isPreamble(text.String()) {
			return nil
		}
		return &stream.Message{
			Kind:      stream.KindUser,
			Engine:    EngineName,
			SessionID: adapter.threadID,
			Text:      text.String(),
			Timestamp: time.Now(),
		}
	case "assistant":
		return &stream.Message{
			Kind:      stream.KindAssistant,
			Engine:    EngineName,
			SessionID: adapter.threadID,
			Text:      text.String(),
			Timestamp: time.Now(),
		}
	default:
		return nil
	}
}
