package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/anyme123/claude-workbench/bus"
	"github.com/anyme123/claude-workbench/engine"
	"github.com/anyme123/claude-workbench/stream"
)

// promptMarker tracks the ledger record for the in-flight prompt. For an
// existing session the index is known at dispatch time; for a new session it
// resolves only once the init event yields a session id. done is closed on
// resolution either way, and the completion path waits on it before
// recording completion.
type promptMarker struct {
	done        chan struct{}
	index       int
	sessionID   string
	prompt      string
	err         error
	bookkeeping bool
	started     bool // a RecordSent call is in flight or finished; guarded by Tab.mu
}

func newPromptMarker(bookkeeping bool) *promptMarker {
	return &promptMarker{done: make(chan struct{}), bookkeeping: bookkeeping}
}

func (m *promptMarker) resolve(sessionID string, index int, err error) {
	m.sessionID = sessionID
	m.index = index
	m.err = err
	close(m.done)
}

// busEvent is one raw payload delivered by a bus subscription, tagged with
// the channel it arrived on.
type busEvent struct {
	channel string
	payload []byte
}

// Tab owns all cross-callback session state for one conversation: the busy
// flag, the known session id, the live subscriptions, the dedup set, the
// prompt queue and the timeline. Bus callbacks only enqueue into events; a
// single consumer goroutine processes them, so event handling is serialized.
type Tab struct {
	engine      engine.Engine
	projectPath string
	scheme      engine.Scheme
	adapter     Adapter

	mu            sync.Mutex
	busy          bool
	active        bool // listener callbacks ignore events when false
	sessionID     string
	lastSessionID string // survives idle transitions; enables resume
	firstTurnDone bool
	listeners     []*bus.Subscription
	processed     map[string]bool
	queue         promptQueue
	timeline      []*stream.Message
	marker        *promptMarker
	closed        bool

	events chan busEvent
	stop   chan struct{}
}

// Engine returns the backend this tab talks to.
func (t *Tab) Engine() engine.Engine { return t.engine }

// ProjectPath returns the tab's workspace path.
func (t *Tab) ProjectPath() string { return t.projectPath }

// Busy reports whether an execution is in flight.
func (t *Tab) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// SessionID returns the backend-assigned id of the current or most recent
// session, or "".
func (t *Tab) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessionID != "" {
		return t.sessionID
	}
	return t.lastSessionID
}

// Queued returns the pending prompts in FIFO order.
func (t *Tab) Queued() []QueuedPrompt {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queue.Snapshot()
}

// Timeline returns a snapshot of the canonical messages appended so far.
func (t *Tab) Timeline() []stream.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]stream.Message, len(t.timeline))
	for i, m := range t.timeline {
		out[i] = *m
	}
	return out
}

// appendLocked adds a message to the timeline, merging delta chunks into
// their predecessor. Caller holds t.mu.
func (t *Tab) appendLocked(msg *stream.Message) {
	if msg.Delta && len(t.timeline) > 0 {
		last := t.timeline[len(t.timeline)-1]
		if msg.CanMergeDelta(last) {
			msg.MergeDelta(last)
			return
		}
	}
	t.timeline = append(t.timeline, msg)
}

// detachLocked cancels every live subscription. Caller holds t.mu.
func (t *Tab) detachLocked() {
	for _, sub := range t.listeners {
		sub.Cancel()
	}
	t.listeners = nil
}

// rawEventID pulls an engine-provided per-event id out of a raw event.
// Only ids that are unique per event qualify; item and thread ids repeat
// across phases and must not collapse distinct events.
type rawEventID struct {
	UUID string `json:"uuid"`
}

// fingerprint keys the dedup set: the engine-provided event id when present,
// else a content hash of the raw payload.
func fingerprint(raw []byte) string {
	var id rawEventID
	if err := json.Unmarshal(raw, &id); err == nil && id.UUID != "" {
		return "id:" + id.UUID
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
