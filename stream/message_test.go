package stream

import (
	"testing"
	"time"
)

func TestFingerprint_StableID(t *testing.T) {
	m := &Message{Kind: KindAssistant, Engine: "codex", ID: "item_7"}
	if got := m.Fingerprint(); got != "assistant:item_7" {
		t.Fatalf("Fingerprint() = %q, want engine id form", got)
	}
}

func TestFingerprint_ContentHash(t *testing.T) {
	a := &Message{Kind: KindUser, Engine: "claude", SessionID: "s1", Text: "add tests"}
	b := &Message{Kind: KindUser, Engine: "claude", SessionID: "s1", Text: "add tests"}
	c := &Message{Kind: KindUser, Engine: "claude", SessionID: "s1", Text: "add docs"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical content should hash identically")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("different content should hash differently")
	}
}

func TestFingerprint_ToolInputAffectsHash(t *testing.T) {
	a := &Message{Kind: KindToolUse, ToolName: "Read", ToolInput: map[string]interface{}{"file_path": "a.go"}}
	b := &Message{Kind: KindToolUse, ToolName: "Read", ToolInput: map[string]interface{}{"file_path": "b.go"}}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("tool input should be part of the fingerprint")
	}
}

func TestCanMergeDelta(t *testing.T) {
	tests := []struct {
		name string
		m    *Message
		prev *Message
		want bool
	}{
		{
			name: "assistant delta into assistant",
			m:    &Message{Kind: KindAssistant, Delta: true},
			prev: &Message{Kind: KindAssistant},
			want: true,
		},
		{
			name: "thinking delta into thinking",
			m:    &Message{Kind: KindThinking, Delta: true},
			prev: &Message{Kind: KindThinking},
			want: true,
		},
		{
			name: "non-delta never merges",
			m:    &Message{Kind: KindAssistant},
			prev: &Message{Kind: KindAssistant},
			want: false,
		},
		{
			name: "kind mismatch",
			m:    &Message{Kind: KindAssistant, Delta: true},
			prev: &Message{Kind: KindThinking},
			want: false,
		},
		{
			name: "session mismatch",
			m:    &Message{Kind: KindAssistant, Delta: true, SessionID: "s2"},
			prev: &Message{Kind: KindAssistant, SessionID: "s1"},
			want: false,
		},
		{
			name: "user delta never merges",
			m:    &Message{Kind: KindUser, Delta: true},
			prev: &Message{Kind: KindUser},
			want: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.m.CanMergeDelta(tc.prev); got != tc.want {
				t.Fatalf("CanMergeDelta() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMergeDelta_Concatenates(t *testing.T) {
	now := time.Now()
	prev := &Message{Kind: KindAssistant, Text: "Hello, "}
	m := &Message{Kind: KindAssistant, Delta: true, Text: "world", Timestamp: now}

	if !m.CanMergeDelta(prev) {
		t.Fatal("expected mergeable delta")
	}
	m.MergeDelta(prev)

	if prev.Text != "Hello, world" {
		t.Fatalf("Text = %q after merge", prev.Text)
	}
	if !prev.Timestamp.Equal(now) {
		t.Fatal("merge should advance the timestamp")
	}
}
