package gemini

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

func TestTranslate_SessionNewResult(t *testing.T) {
	a := NewAdapter(nil)
	line := `{"jsonrpc":"2.0","id":1,"result":{"sessionId":"G1","model":"gemini-2.5-pro"}}`

	msg := translate(t, a, line)
	if msg == nil || msg.Kind != stream.KindSystemInit {
		t.Fatalf("got %+v, want system-init", msg)
	}
	if msg.SessionID != "G1" || msg.Model != "gemini-2.5-pro" {
		t.Fatalf("SessionID/Model = %q/%q", msg.SessionID, msg.Model)
	}

	if msg := translate(t, a, line); msg != nil {
		t.Fatalf("got %+v, want nil on repeated session result", msg)
	}
	if got := a.SessionID([]byte(line)); got != "G1" {
		t.Fatalf("SessionID() = %q", got)
	}
}

func TestTranslate_MessageAndThoughtChunks(t *testing.T) {
	a := NewAdapter(nil)
	translate(t, a, `{"jsonrpc":"2.0","id":1,"result":{"sessionId":"G1"}}`)

	msg := translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"agent_message_chunk","content":{"type":"text","text":"Hi"}}}}`)
	if msg == nil || msg.Kind != stream.KindAssistant || !msg.Delta || msg.Text != "Hi" {
		t.Fatalf("got %+v, want assistant delta", msg)
	}
	if msg.SessionID != "G1" {
		t.Fatalf("SessionID = %q", msg.SessionID)
	}

	msg = translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"agent_thought_chunk","content":{"type":"text","text":"hmm"}}}}`)
	if msg == nil || msg.Kind != stream.KindThinking || !msg.Delta || msg.Thinking != "hmm" {
		t.Fatalf("got %+v, want thinking delta", msg)
	}
}

func TestTranslate_ToolCallPhases(t *testing.T) {
	a := NewAdapter(nil)

	msg := translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"tool_call","toolCallId":"tc1","toolName":"read_file","status":"running","input":{"path":"a.txt"}}}}`)
	if msg == nil || msg.Kind != stream.KindToolUse || !msg.Provisional {
		t.Fatalf("got %+v, want provisional tool-use", msg)
	}
	if msg.ID != "started_tc1" || msg.ToolName != "read_file" {
		t.Fatalf("ID/ToolName = %q/%q", msg.ID, msg.ToolName)
	}

	// Non-terminal progress updates are dropped.
	if msg := translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"tool_call_update","toolCallId":"tc1","status":"running"}}}`); msg != nil {
		t.Fatalf("got %+v, want nil for running update", msg)
	}

	msg = translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"tool_call_update","toolCallId":"tc1","toolName":"read_file","status":"completed","result":[{"type":"text","text":"contents"}]}}}`)
	if msg == nil || msg.Provisional || msg.ID != "tc1" {
		t.Fatalf("got %+v, want durable tool-use", msg)
	}
	if msg.ToolResult != "contents" || msg.ToolIsError {
		t.Fatalf("ToolResult/ToolIsError = %v/%v", msg.ToolResult, msg.ToolIsError)
	}

	// Tool call ids produce at most one durable message.
	if msg := translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"tool_call_update","toolCallId":"tc1","status":"completed"}}}`); msg != nil {
		t.Fatalf("got %+v, want nil for already-completed call", msg)
	}
}

func TestTranslate_FailedToolCall(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"tool_call_update","toolCallId":"tc2","status":"failed","result":[{"type":"text","text":"no such file"}]}}}`)
	if msg == nil || !msg.ToolIsError {
		t.Fatalf("got %+v, want tool error", msg)
	}
}

func TestTranslate_PromptResult(t *testing.T) {
	a := NewAdapter(nil)
	translate(t, a, `{"jsonrpc":"2.0","id":1,"result":{"sessionId":"G1"}}`)

	msg := translate(t, a, `{"jsonrpc":"2.0","id":2,"result":{"stopReason":"end_turn"}}`)
	if msg == nil || msg.Kind != stream.KindResult || !msg.Success {
		t.Fatalf("got %+v, want successful result", msg)
	}
	if msg.SessionID != "G1" {
		t.Fatalf("SessionID = %q", msg.SessionID)
	}

	msg = translate(t, a, `{"jsonrpc":"2.0","id":3,"result":{"stopReason":"cancelled"}}`)
	if msg == nil || msg.Success {
		t.Fatalf("got %+v, want unsuccessful result for cancelled", msg)
	}
}

func TestTranslate_UserEchoSuppressed(t *testing.T) {
	a := NewAdapter(nil)
	a.ExpectUserEcho("list the files")

	msg := translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"user_message_chunk","content":{"type":"text","text":"list the files"}}}}`)
	if msg != nil {
		t.Fatalf("got %+v, want echoed prompt suppressed", msg)
	}

	msg = translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"user_message_chunk","content":{"type":"text","text":"list the files"}}}}`)
	if msg == nil || msg.Kind != stream.KindUser {
		t.Fatalf("got %+v, want user message", msg)
	}
}

func TestTranslate_ErrorLine(t *testing.T) {
	a := NewAdapter(nil)
	msg := translate(t, a, `{"jsonrpc":"2.0","id":4,"error":{"code":-32603,"message":"internal error"}}`)
	if msg == nil || msg.Kind != stream.KindSystemError || msg.Text != "internal error" {
		t.Fatalf("got %+v, want system-error", msg)
	}
}

func TestTranslate_IgnoredAndUnknown(t *testing.T) {
	a := NewAdapter(nil)
	if msg := translate(t, a, `{"jsonrpc":"2.0","id":5,"method":"fs/read_text_file","params":{"sessionId":"G1","path":"a.txt"}}`); msg != nil {
		t.Fatalf("got %+v, want nil for agent file request", msg)
	}
	if msg := translate(t, a, `{"jsonrpc":"2.0","method":"session/update","params":{"sessionId":"G1","update":{"sessionUpdate":"plan","plan":{"entries":[]}}}}`); msg != nil {
		t.Fatalf("got %+v, want nil for plan update", msg)
	}

	_, err := a.Translate([]byte(`{not json`))
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
}
