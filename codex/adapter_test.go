package codex

import (
	"errors"
	"testing"

	"github.com/anyme123/claude-workbench/stream"
)

func translate(t *testing.T, a *Adapter, line string) *stream.Message {
	t.Helper()
	msg, err := a.Translate([]byte(line))
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	return msg
}

func TestTranslate_SessionMetaInitOnce(t *testing.T) {
	a := NewAdapter(nil)
	line := `{"type":"session_meta","payload":{"id":"T1","timestamp":"2026-01-02T03:04:05Z","cwd":"/work","model":"gpt-5-codex"}}`

	msg := translate(t, a, line)
	if msg == nil || msg.Kind != stream.KindSystemInit {
		t.Fatalf("got %+v, want system-init", msg)
	}
	if msg.SessionID != "T1" || msg.Model != "gpt-5-codex" || msg.ID != "init_T1" {
		t.Fatalf("SessionID/Model/ID = %q/%q/%q", msg.SessionID, msg.Model, msg.ID)
	}

	// The same session id does not announce itself twice.
	if msg := translate(t, a, line); msg != nil {
		t.Fatalf("got %+v, want nil on repeated session_meta", msg)
	}
	if got := a.SessionID([]byte(line)); got != "T1" {
		t.Fatalf("SessionID() = %q", got)
	}
}

func TestTranslate_ThreadStarted(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"type":"thread.started","thread_id":"T1"}`)
	if msg == nil || msg.Kind != stream.KindSystemInit || msg.SessionID != "T1" {
		t.Fatalf("got %+v, want system-init for T1", msg)
	}
	if msg := translate(t, a, `{"type":"thread.started","thread_id":"T1"}`); msg != nil {
		t.Fatalf("got %+v, want nil on repeated thread.started", msg)
	}
}

func TestTranslate_MessageDeltaThenCompletedRemainder(t *testing.T) {
	a := NewAdapter(nil)
	translate(t, a, `{"type":"thread.started","thread_id":"T1"}`)

	msg := translate(t, a, `{"type":"agent_message_delta","thread_id":"T1","item_id":"i1","delta":"Hello"}`)
	if msg == nil || msg.Kind != stream.KindAssistant || !msg.Delta || msg.Text != "Hello" {
		t.Fatalf("got %+v, want assistant delta", msg)
	}

	// Completed item carries the full text; only the tail is emitted.
	msg = translate(t, a, `{"type":"item.completed","thread_id":"T1","item":{"id":"i1","item_type":"agent_message","text":"Hello world"}}`)
	if msg == nil || msg.Text != " world" || !msg.Delta {
		t.Fatalf("got %+v, want remainder delta", msg)
	}

	// Item ids produce at most one durable message.
	msg = translate(t, a, `{"type":"item.completed","thread_id":"T1","item":{"id":"i1","item_type":"agent_message","text":"Hello world"}}`)
	if msg != nil {
		t.Fatalf("got %+v, want nil for already-completed item", msg)
	}
}

func TestTranslate_CompletedFullyStreamed(t *testing.T) {
	a := NewAdapter(nil)
	translate(t, a, `{"type":"agent_message_delta","thread_id":"T1","item_id":"i1","delta":"done"}`)

	msg := translate(t, a, `{"type":"item.completed","thread_id":"T1","item":{"id":"i1","item_type":"agent_message","text":"done"}}`)
	if msg != nil {
		t.Fatalf("got %+v, want nil when text was fully streamed", msg)
	}
}

func TestTranslate_ReasoningDelta(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"type":"agent_reasoning_delta","thread_id":"T1","item_id":"r1","delta":"pondering"}`)
	if msg == nil || msg.Kind != stream.KindThinking || !msg.Delta || msg.Thinking != "pondering" {
		t.Fatalf("got %+v, want thinking delta", msg)
	}
}

func TestTranslate_CommandExecutionPhases(t *testing.T) {
	a := NewAdapter(nil)

	msg := translate(t, a, `{"type":"item.started","thread_id":"T1","item":{"id":"c1","item_type":"command_execution","command":"ls -la","cwd":"/work"}}`)
	if msg == nil || msg.Kind != stream.KindToolUse || !msg.Provisional {
		t.Fatalf("got %+v, want provisional tool-use", msg)
	}
	if msg.ToolName != "Shell" || msg.ID != "started_c1" {
		t.Fatalf("ToolName/ID = %q/%q", msg.ToolName, msg.ID)
	}

	// Progress updates are ignored; completion supersedes the start.
	if msg := translate(t, a, `{"type":"item.updated","thread_id":"T1","item":{"id":"c1","item_type":"command_execution"}}`); msg != nil {
		t.Fatalf("got %+v, want nil for item.updated", msg)
	}

	msg = translate(t, a, `{"type":"item.completed","thread_id":"T1","item":{"id":"c1","item_type":"command_execution","command":"ls -la","aggregated_output":"file.txt\n","exit_code":0}}`)
	if msg == nil || msg.Kind != stream.KindToolUse || msg.Provisional {
		t.Fatalf("got %+v, want durable tool-use", msg)
	}
	if msg.ID != "c1" || msg.ToolIsError {
		t.Fatalf("ID/ToolIsError = %q/%v", msg.ID, msg.ToolIsError)
	}
	result, ok := msg.ToolResult.(map[string]interface{})
	if !ok || result["output"] != "file.txt\n" || result["exit_code"] != 0 {
		t.Fatalf("ToolResult = %+v", msg.ToolResult)
	}
}

func TestTranslate_FailedCommandMarksError(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"type":"item.completed","thread_id":"T1","item":{"id":"c2","item_type":"command_execution","command":"false","exit_code":1}}`)
	if msg == nil || !msg.ToolIsError {
		t.Fatalf("got %+v, want tool error for nonzero exit", msg)
	}
}

func TestTranslate_FileChange(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"type":"item.completed","thread_id":"T1","item":{"id":"f1","item_type":"file_change","changes":[{"path":"main.go","kind":"modify"}]}}`)
	if msg == nil || msg.Kind != stream.KindToolUse || msg.ToolName != "ApplyPatch" {
		t.Fatalf("got %+v, want ApplyPatch tool-use", msg)
	}
}

func TestTranslate_MCPToolCall(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"type":"item.completed","thread_id":"T1","item":{"id":"m1","item_type":"mcp_tool_call","server":"fs","tool":"read","arguments":{"path":"a.txt"},"result":"ok","status":"completed"}}`)
	if msg == nil || msg.ToolName != "fs.read" || msg.ToolIsError {
		t.Fatalf("got %+v, want fs.read tool-use", msg)
	}
}

func TestTranslate_TurnCompletedUsage(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"type":"turn.completed","thread_id":"T1","turn_id":"t9","usage":{"input_tokens":100,"cached_input_tokens":40,"output_tokens":25}}`)
	if msg == nil || msg.Kind != stream.KindResult || !msg.Success {
		t.Fatalf("got %+v, want successful result", msg)
	}
	if msg.ID != "turn_T1_t9" {
		t.Fatalf("ID = %q", msg.ID)
	}
	if msg.Usage == nil || msg.Usage.InputTokens != 100 || msg.Usage.OutputTokens != 25 || msg.Usage.CacheReadTokens != 40 {
		t.Fatalf("Usage = %+v", msg.Usage)
	}
}

func TestTranslate_TurnFailed(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"type":"turn.failed","thread_id":"T1","turn_id":"t9","error":{"message":"rate limited"}}`)
	if msg == nil || msg.Kind != stream.KindResult || msg.Success {
		t.Fatalf("got %+v, want failed result", msg)
	}
	if msg.Text != "rate limited" {
		t.Fatalf("Text = %q", msg.Text)
	}
}

func TestTranslate_UserEchoSuppressed(t *testing.T) {
	a := NewAdapter(nil)
	a.ExpectUserEcho("fix the bug")

	msg := translate(t, a, `{"type":"item.completed","thread_id":"T1","item":{"id":"u1","item_type":"user_message","text":"fix the bug"}}`)
	if msg != nil {
		t.Fatalf("got %+v, want echoed prompt suppressed", msg)
	}

	// Suppression is one-shot.
	msg = translate(t, a, `{"type":"item.completed","thread_id":"T1","item":{"id":"u2","item_type":"user_message","text":"fix the bug"}}`)
	if msg == nil || msg.Kind != stream.KindUser {
		t.Fatalf("got %+v, want user message", msg)
	}
}

func TestTranslate_ErrorEvent(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"type":"error","thread_id":"T1","message":"stream closed"}`)
	if msg == nil || msg.Kind != stream.KindSystemError || msg.Text != "stream closed" {
		t.Fatalf("got %+v, want system-error", msg)
	}
}

func TestTranslate_UnknownAndMalformed(t *testing.T) {
	a := NewAdapter(nil)
	if msg := translate(t, a, `{"type":"something.new"}`); msg != nil {
		t.Fatalf("got %+v, want nil for unknown type", msg)
	}

	_, err := a.Translate([]byte(`{not json`))
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
}
