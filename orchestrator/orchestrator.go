// Package orchestrator drives a session against one engine backend: it
// dispatches prompts, migrates event-channel subscriptions from generic to
// session-scoped once the backend assigns a session id, deduplicates events
// arriving on overlapping channels, appends canonical messages to the
// timeline, records prompt checkpoints, and drains queued prompts when an
// execution completes.
package orchestrator

import (
	"context"
	"errors"

	"github.com/anyme123/claude-workbench/stream"
)

// ErrNoProjectPath is returned by Send when the tab has no project path.
var ErrNoProjectPath = errors.New("no project path configured")

// ErrTabClosed is returned when operating on a closed tab.
var ErrTabClosed = errors.New("tab is closed")

// Adapter converts one engine's raw event lines into canonical messages.
// All three engine adapters satisfy this.
type Adapter interface {
	Engine() string
	Translate(raw []byte) (*stream.Message, error)
	SessionID(raw []byte) string
	ExpectUserEcho(prompt string)
}

// PromptLedger records checkpoint bookkeeping per prompt. *ledger.Ledger
// satisfies this.
type PromptLedger interface {
	RecordSent(ctx context.Context, engine, sessionID, projectPath, promptText string) (int, error)
	RecordCompleted(ctx context.Context, engine, sessionID, projectPath string, promptIndex int) error
	MarkCompleted(ctx context.Context, engine, sessionID string, promptIndex int) error
}

// Translator optionally rewrites prompt text before dispatch and assistant
// text on receipt. A failing translator never blocks the flow; the original
// text is used.
type Translator interface {
	TranslatePrompt(ctx context.Context, text string) (string, error)
	TranslateResponse(ctx context.Context, text string) (string, error)
}

// SendOptions parameterizes one prompt.
type SendOptions struct {
	// Prompt is the user's prompt text.
	Prompt string

	// Model overrides the engine's default model when non-empty.
	Model string

	// Bookkeeping marks prompts issued by tooling rather than the user;
	// their completion skips checkpoint commits.
	Bookkeeping bool
}

// QueuedPrompt is a prompt held while an execution is in flight. Never
// mutated after creation; consumed strictly FIFO.
type QueuedPrompt struct {
	ID          string
	Prompt      string
	Model       string
	Bookkeeping bool
}
