package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

// stubCheckpointer replays scripted checkpoint ids so tests do not depend on
// a git binary.
type stubCheckpointer struct {
	head    string
	commits int
	fail    bool
}

func (s *stubCheckpointer) Ensure(dir string) error {
	if s.fail {
		return errors.New("no checkpoint support")
	}
	return nil
}

func (s *stubCheckpointer) Head(dir string) (string, error) {
	if s.fail {
		return "", errors.New("no checkpoint support")
	}
	return s.head, nil
}

func (s *stubCheckpointer) Commit(dir, message string) (string, error) {
	if s.fail {
		return "", errors.New("no checkpoint support")
	}
	s.commits++
	s.head = fmt.Sprintf("commit-%d", s.commits)
	return s.head, nil
}

func openTestLedger(t *testing.T, git Checkpointer) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	l.git = git
	return l
}

func TestRecordSentAssignsSequentialIndexes(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, &stubCheckpointer{head: "base"})

	for want := 0; want < 3; want++ {
		idx, err := l.RecordSent(ctx, "claude", "S1", "/work", fmt.Sprintf("prompt %d", want))
		if err != nil {
			t.Fatalf("RecordSent: %v", err)
		}
		if idx != want {
			t.Fatalf("index = %d, want %d", idx, want)
		}
	}

	// Indexes are per session, not global.
	idx, err := l.RecordSent(ctx, "claude", "S2", "/work", "other session")
	if err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
	if idx != 0 {
		t.Fatalf("index = %d, want 0 for new session", idx)
	}
}

func TestRecordCompletedStoresCheckpoint(t *testing.T) {
	ctx := context.Background()
	git := &stubCheckpointer{head: "base"}
	l := openTestLedger(t, git)

	idx, err := l.RecordSent(ctx, "codex", "T1", "/work", "do things")
	if err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
	if err := l.RecordCompleted(ctx, "codex", "T1", "/work", idx); err != nil {
		t.Fatalf("RecordCompleted: %v", err)
	}

	records, err := l.Records(ctx, "codex", "T1")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d", len(records))
	}
	r := records[0]
	if r.CommitBefore != "base" || r.CommitAfter != "commit-1" {
		t.Fatalf("commits = %q/%q", r.CommitBefore, r.CommitAfter)
	}
	if r.CompletedAt == nil {
		t.Fatalf("CompletedAt not set")
	}
	if r.PromptText != "do things" {
		t.Fatalf("PromptText = %q", r.PromptText)
	}
}

func TestRecordCompletedUnknownIndex(t *testing.T) {
	l := openTestLedger(t, &stubCheckpointer{})
	if err := l.RecordCompleted(context.Background(), "codex", "T1", "/work", 7); err == nil {
		t.Fatalf("expected error for unknown record")
	}
}

func TestCheckpointFailureDoesNotBlockRecording(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, &stubCheckpointer{fail: true})

	idx, err := l.RecordSent(ctx, "gemini", "G1", "/work", "hello")
	if err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
	if err := l.RecordCompleted(ctx, "gemini", "G1", "/work", idx); err != nil {
		t.Fatalf("RecordCompleted: %v", err)
	}

	records, err := l.Records(ctx, "gemini", "G1")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if records[0].CommitBefore != "" || records[0].CommitAfter != "" {
		t.Fatalf("commits = %q/%q, want empty on checkpoint failure", records[0].CommitBefore, records[0].CommitAfter)
	}
	if records[0].CompletedAt == nil {
		t.Fatalf("CompletedAt not set despite checkpoint failure")
	}
}

func TestMarkCompletedSkipsCheckpoints(t *testing.T) {
	ctx := context.Background()
	git := &stubCheckpointer{head: "base"}
	l := openTestLedger(t, git)

	idx, _ := l.RecordSent(ctx, "claude", "S1", "/work", "bookkeeping")
	if err := l.MarkCompleted(ctx, "claude", "S1", idx); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if git.commits != 0 {
		t.Fatalf("commits = %d, want none for bookkeeping completion", git.commits)
	}

	records, _ := l.Records(ctx, "claude", "S1")
	if records[0].CompletedAt == nil || records[0].CommitAfter != "" {
		t.Fatalf("record = %+v, want completed without commit", records[0])
	}
}

func TestTruncate(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, &stubCheckpointer{head: "base"})

	for i := 0; i < 4; i++ {
		if _, err := l.RecordSent(ctx, "claude", "S1", "/work", fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("RecordSent: %v", err)
		}
	}
	if err := l.Truncate(ctx, "claude", "S1", 2); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	records, err := l.Records(ctx, "claude", "S1")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	// The next prompt reuses the freed index.
	idx, err := l.RecordSent(ctx, "claude", "S1", "/work", "after rewind")
	if err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
	if idx != 2 {
		t.Fatalf("index = %d, want 2", idx)
	}
}
