package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anyme123/claude-workbench/bus"
	"github.com/anyme123/claude-workbench/claude"
	"github.com/anyme123/claude-workbench/codex"
	"github.com/anyme123/claude-workbench/engine"
	"github.com/anyme123/claude-workbench/gemini"
	"github.com/anyme123/claude-workbench/stream"
)

// defaultSettleDelay is the pause before a queued prompt is re-dispatched
// after a completion, letting state settle first.
const defaultSettleDelay = 50 * time.Millisecond

// Config assembles a Controller.
type Config struct {
	// Bus carries the engines' raw event streams. Required.
	Bus *bus.Bus

	// Runners maps each engine to its command interface. An engine with no
	// runner rejects sends.
	Runners map[engine.Engine]engine.Runner

	// Ledger records prompt checkpoints. Nil disables recording.
	Ledger PromptLedger

	// Translator optionally rewrites prompts and responses. Nil disables.
	Translator Translator

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// SettleDelay overrides the queue-drain delay. Zero means the default.
	SettleDelay time.Duration

	// NewAdapter overrides adapter construction, mainly for tests. Nil uses
	// the real engine adapters.
	NewAdapter func(e engine.Engine, log *zap.Logger) Adapter
}

// Controller is the session controller: it owns prompt dispatch, listener
// migration, completion handling and queue draining for every open tab.
type Controller struct {
	bus         *bus.Bus
	runners     map[engine.Engine]engine.Runner
	ledger      PromptLedger
	translator  Translator
	log         *zap.Logger
	settleDelay time.Duration
	newAdapter  func(e engine.Engine, log *zap.Logger) Adapter
}

// New creates a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("orchestrator: Bus is required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	settle := cfg.SettleDelay
	if settle == 0 {
		settle = defaultSettleDelay
	}
	newAdapter := cfg.NewAdapter
	if newAdapter == nil {
		newAdapter = defaultAdapter
	}
	return &Controller{
		bus:         cfg.Bus,
		runners:     cfg.Runners,
		ledger:      cfg.Ledger,
		translator:  cfg.Translator,
		log:         log,
		settleDelay: settle,
		newAdapter:  newAdapter,
	}, nil
}

func defaultAdapter(e engine.Engine, log *zap.Logger) Adapter {
	switch e {
	case engine.Claude:
		return claude.NewAdapter(log)
	case engine.Codex:
		return codex.NewAdapter(log)
	case engine.Gemini:
		return gemini.NewAdapter(log)
	}
	return nil
}

// OpenTab creates a tab for one conversation against an engine and starts
// its event consumer.
func (c *Controller) OpenTab(e engine.Engine, projectPath string) (*Tab, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("unknown engine %q", e)
	}
	adapter := c.newAdapter(e, c.log)
	if adapter == nil {
		return nil, fmt.Errorf("no adapter for engine %s", e)
	}
	t := &Tab{
		engine:      e,
		projectPath: projectPath,
		scheme:      engine.Channels(e),
		adapter:     adapter,
		processed:   make(map[string]bool),
		events:      make(chan busEvent, 256),
		stop:        make(chan struct{}),
	}
	go c.runTab(t)
	return t, nil
}

// CloseTab tears the tab down: listeners cancelled, consumer stopped. The
// session is forgotten.
func (c *Controller) CloseTab(t *Tab) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.active = false
	t.busy = false
	if t.marker != nil && !t.marker.started {
		t.marker.resolve("", 0, nil)
	}
	t.marker = nil
	t.detachLocked()
	t.mu.Unlock()
	close(t.stop)
}

func (c *Controller) runTab(t *Tab) {
	for {
		select {
		case <-t.stop:
			return
		case ev := <-t.events:
			c.handleEvent(t, ev)
		}
	}
}

// Send dispatches a prompt on the tab, or queues it when an execution is
// already in flight. The busy flag is set before any backend call; a
// synchronous dispatch failure resets the tab so the next send starts fresh.
func (c *Controller) Send(ctx context.Context, t *Tab, opts SendOptions) error {
	if strings.TrimSpace(opts.Prompt) == "" {
		return nil
	}
	if t.projectPath == "" {
		return ErrNoProjectPath
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTabClosed
	}
	if t.busy {
		t.queue.Enqueue(QueuedPrompt{
			ID:          uuid.NewString(),
			Prompt:      opts.Prompt,
			Model:       opts.Model,
			Bookkeeping: opts.Bookkeeping,
		})
		t.mu.Unlock()
		c.log.Debug("session busy, prompt queued", zap.String("engine", string(t.engine)))
		return nil
	}
	runner := c.runners[t.engine]
	if runner == nil {
		t.mu.Unlock()
		return fmt.Errorf("no runner configured for engine %s", t.engine)
	}

	resume := t.firstTurnDone && t.lastSessionID != ""
	resumeID := t.lastSessionID

	t.busy = true
	t.active = true
	marker := newPromptMarker(opts.Bookkeeping)
	t.marker = marker

	c.attachGenericLocked(t)
	if resume {
		t.sessionID = resumeID
		c.attachScopedLocked(t, resumeID)
	}
	t.mu.Unlock()

	prompt := opts.Prompt
	if c.translator != nil {
		if translated, err := c.translator.TranslatePrompt(ctx, prompt); err != nil {
			c.log.Warn("prompt translation failed, using original text", zap.Error(err))
		} else if translated != "" {
			prompt = translated
		}
	}
	// Optimistic echo: the prompt is visible before any backend event.
	t.mu.Lock()
	marker.prompt = prompt
	t.appendLocked(&stream.Message{
		Kind:      stream.KindUser,
		Engine:    string(t.engine),
		SessionID: resumeID,
		ID:        "echo_" + uuid.NewString(),
		Text:      prompt,
		Timestamp: time.Now(),
	})
	if resume {
		// The session id is already known; record immediately.
		marker.started = true
		go c.resolveRecordSent(t, marker, resumeID)
	}
	t.mu.Unlock()
	t.adapter.ExpectUserEcho(prompt)

	execOpts := engine.ExecuteOptions{
		ProjectPath: t.projectPath,
		Prompt:      prompt,
		Model:       opts.Model,
	}
	var err error
	if resume {
		if err = runner.Resume(ctx, resumeID, execOpts); err != nil {
			c.log.Warn("resume failed, falling back to continue",
				zap.String("session", resumeID), zap.Error(err))
			err = runner.Continue(ctx, execOpts)
		}
	} else {
		err = runner.Execute(ctx, execOpts)
	}
	if err != nil {
		t.mu.Lock()
		t.detachLocked()
		t.busy = false
		t.active = false
		t.sessionID = ""
		t.lastSessionID = ""
		t.firstTurnDone = false
		if t.marker != nil && !t.marker.started {
			t.marker.resolve("", 0, nil)
		}
		t.marker = nil
		t.mu.Unlock()
		return fmt.Errorf("dispatch %s prompt: %w", t.engine, err)
	}
	return nil
}

// Cancel aborts the in-flight execution. Local state is reset even when the
// backend-side cancel fails, so the tab always returns to idle.
func (c *Controller) Cancel(ctx context.Context, t *Tab) error {
	t.mu.Lock()
	sessionID := t.sessionID
	if sessionID == "" {
		sessionID = t.lastSessionID
	}
	t.mu.Unlock()

	if runner := c.runners[t.engine]; runner != nil {
		if err := runner.Cancel(ctx, sessionID); err != nil {
			c.log.Warn("backend cancel failed, resetting local state anyway",
				zap.String("engine", string(t.engine)), zap.Error(err))
		}
	}

	t.mu.Lock()
	if t.marker != nil && !t.marker.started {
		t.marker.resolve("", 0, nil)
	}
	t.marker = nil
	t.detachLocked()
	t.busy = false
	t.active = false
	t.sessionID = ""
	t.lastSessionID = ""
	t.firstTurnDone = false
	t.processed = make(map[string]bool)
	t.appendLocked(&stream.Message{
		Kind:      stream.KindSystemInfo,
		Engine:    string(t.engine),
		ID:        "cancel_" + uuid.NewString(),
		Text:      "cancelled",
		Timestamp: time.Now(),
	})
	t.mu.Unlock()
	return nil
}

// ClearQueue drops all pending prompts.
func (c *Controller) ClearQueue(t *Tab) {
	t.mu.Lock()
	t.queue = promptQueue{}
	t.mu.Unlock()
}

// attachGenericLocked subscribes the generic channel set. Caller holds t.mu.
func (c *Controller) attachGenericLocked(t *Tab) {
	channels := []string{t.scheme.Output, t.scheme.Error, t.scheme.Complete}
	if t.scheme.SessionInit != "" {
		channels = append(channels, t.scheme.SessionInit)
	}
	for _, ch := range channels {
		t.listeners = append(t.listeners, c.bus.Subscribe(ch, c.forward(t, ch)))
	}
}

// attachScopedLocked subscribes the session-scoped channel set. Caller holds
// t.mu.
func (c *Controller) attachScopedLocked(t *Tab, sessionID string) {
	scoped := t.scheme.Scoped(sessionID)
	for _, ch := range []string{scoped.Output, scoped.Error, scoped.Complete} {
		t.listeners = append(t.listeners, c.bus.Subscribe(ch, c.forward(t, ch)))
	}
}

// forward hands a bus payload to the tab's consumer goroutine.
func (c *Controller) forward(t *Tab, channel string) bus.Handler {
	return func(payload []byte) {
		select {
		case t.events <- busEvent{channel: channel, payload: payload}:
		case <-t.stop:
		}
	}
}

// handleEvent processes one event on the tab's consumer goroutine.
func (c *Controller) handleEvent(t *Tab, ev busEvent) {
	t.mu.Lock()
	if !t.active || t.closed {
		t.mu.Unlock()
		return
	}

	scoped := t.scheme.Scoped(t.sessionID)
	switch {
	case ev.channel == t.scheme.Complete || (t.sessionID != "" && ev.channel == scoped.Complete):
		t.mu.Unlock()
		c.completeTab(t)

	case t.scheme.SessionInit != "" && ev.channel == t.scheme.SessionInit:
		if id := parseSessionInit(ev.payload); id != "" && id != t.sessionID {
			c.migrateLocked(t, id)
		}
		t.mu.Unlock()

	case ev.channel == t.scheme.Error || (t.sessionID != "" && ev.channel == scoped.Error):
		c.handleErrorLocked(t, ev.payload)
		t.mu.Unlock()

	default:
		c.handleOutputLocked(t, ev.payload)
		t.mu.Unlock()
	}
}

// handleErrorLocked appends an engine-reported error payload. Caller holds
// t.mu.
func (c *Controller) handleErrorLocked(t *Tab, payload []byte) {
	fp := fingerprint(payload)
	if t.processed[fp] {
		return
	}
	t.processed[fp] = true
	t.appendLocked(&stream.Message{
		Kind:      stream.KindSystemError,
		Engine:    string(t.engine),
		SessionID: t.sessionID,
		Text:      strings.TrimSpace(string(payload)),
		Timestamp: time.Now(),
	})
}

// handleOutputLocked deduplicates, migrates on a newly observed session id,
// translates and appends. Caller holds t.mu.
func (c *Controller) handleOutputLocked(t *Tab, payload []byte) {
	fp := fingerprint(payload)
	if t.processed[fp] {
		return
	}
	t.processed[fp] = true

	if id := t.adapter.SessionID(payload); id != "" && id != t.sessionID {
		c.migrateLocked(t, id)
	}

	msg, err := t.adapter.Translate(payload)
	if err != nil {
		c.log.Warn("dropping untranslatable event",
			zap.String("engine", string(t.engine)), zap.Error(err))
		return
	}
	if msg == nil {
		return
	}

	if c.translator != nil && msg.Kind == stream.KindAssistant && !msg.Delta && msg.Text != "" {
		if translated, terr := c.translator.TranslateResponse(context.Background(), msg.Text); terr != nil {
			c.log.Warn("response translation failed, keeping original text", zap.Error(terr))
		} else if translated != "" {
			msg.Text = translated
		}
	}

	t.appendLocked(msg)
}

// migrateLocked switches the tab's subscriptions to the session-scoped
// channel set for id. The first migration also resolves the deferred
// sent-record for a new session; a later call means the backend rotated the
// session id. Caller holds t.mu.
func (c *Controller) migrateLocked(t *Tab, id string) {
	rotated := t.sessionID != "" && t.sessionID != id
	t.detachLocked()
	t.sessionID = id
	t.lastSessionID = id
	c.attachScopedLocked(t, id)

	if rotated {
		c.log.Info("session id rotated, listeners moved",
			zap.String("engine", string(t.engine)), zap.String("session", id))
	}
	if t.marker != nil && !t.marker.started {
		t.marker.started = true
		go c.resolveRecordSent(t, t.marker, id)
	}
}

// resolveRecordSent performs the ledger sent-record off the consumer
// goroutine and resolves the marker, unblocking the completion path.
func (c *Controller) resolveRecordSent(t *Tab, marker *promptMarker, sessionID string) {
	if c.ledger == nil {
		marker.resolve("", 0, nil)
		return
	}
	index, err := c.ledger.RecordSent(context.Background(), string(t.engine), sessionID, t.projectPath, marker.prompt)
	if err != nil {
		c.log.Warn("ledger sent-record failed, rewind bookkeeping incomplete",
			zap.String("session", sessionID), zap.Error(err))
	}
	marker.resolve(sessionID, index, err)
}

// completeTab ends the cycle: awaits the deferred sent-record, records
// completion, detaches listeners, clears session state and drains the queue
// head.
func (c *Controller) completeTab(t *Tab) {
	t.mu.Lock()
	if !t.busy {
		t.mu.Unlock()
		return
	}
	marker := t.marker
	if marker != nil && !marker.started {
		// The session never reached init; nothing was recorded.
		marker.resolve("", 0, nil)
	}
	t.marker = nil
	t.detachLocked()
	t.busy = false
	t.active = false
	if t.sessionID != "" {
		t.lastSessionID = t.sessionID
		t.firstTurnDone = true
	}
	t.sessionID = ""
	t.processed = make(map[string]bool)
	head, drain := t.queue.DequeueHead()
	t.mu.Unlock()

	if marker != nil {
		<-marker.done
		c.recordCompleted(t, marker)
	}

	if drain {
		go c.drain(t, head)
	}
}

func (c *Controller) recordCompleted(t *Tab, marker *promptMarker) {
	if c.ledger == nil || marker.err != nil || marker.sessionID == "" {
		return
	}
	ctx := context.Background()
	var err error
	if marker.bookkeeping {
		err = c.ledger.MarkCompleted(ctx, string(t.engine), marker.sessionID, marker.index)
	} else {
		err = c.ledger.RecordCompleted(ctx, string(t.engine), marker.sessionID, t.projectPath, marker.index)
	}
	if err != nil {
		c.log.Warn("ledger completion-record failed",
			zap.String("session", marker.sessionID), zap.Int("index", marker.index), zap.Error(err))
	}
}

// drain re-dispatches the queue head after a settle delay. The head was
// removed before this call, so a failure cannot loop.
func (c *Controller) drain(t *Tab, head QueuedPrompt) {
	time.Sleep(c.settleDelay)
	err := c.Send(context.Background(), t, SendOptions{
		Prompt:      head.Prompt,
		Model:       head.Model,
		Bookkeeping: head.Bookkeeping,
	})
	if err != nil {
		c.log.Warn("queued prompt dispatch failed", zap.Error(err))
		t.mu.Lock()
		t.appendLocked(&stream.Message{
			Kind:      stream.KindSystemError,
			Engine:    string(t.engine),
			Text:      fmt.Sprintf("queued prompt failed: %v", err),
			Timestamp: time.Now(),
		})
		t.mu.Unlock()
	}
}

// parseSessionInit extracts the session id from a session-init handshake
// payload, which is either a bare string or a small JSON object.
func parseSessionInit(payload []byte) string {
	var obj struct {
		SessionID string `json:"session_id"`
		ID        string `json:"id"`
	}
	if err := json.Unmarshal(payload, &obj); err == nil {
		if obj.SessionID != "" {
			return obj.SessionID
		}
		if obj.ID != "" {
			return obj.ID
		}
	}
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(payload))
}
