package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anyme123/claude-workbench/bus"
	"github.com/anyme123/claude-workbench/claude"
	"github.com/anyme123/claude-workbench/codex"
	"github.com/anyme123/claude-workbench/engine"
	"github.com/anyme123/claude-workbench/gemini"
	"github.com/anyme123/claude-workbench/ledger"
	"github.com/anyme123/claude-workbench/orchestrator"
)

var (
	replayEngine  string
	replayProject string
	replayPrompt  string
	replayTimeout time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay <event-log.jsonl>",
	Short: "Replay a recorded engine event log through the pipeline",
	Long: `Replay feeds a recorded JSONL event log through the orchestrator as if
the engine were running live: channel migration, deduplication, adapter
translation and ledger recording all happen exactly as in a real session.
The resulting timeline is rendered when the replay completes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := engine.Parse(replayEngine)
		if err != nil {
			return err
		}
		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("event log: %w", err)
		}

		led, err := ledger.Open(ledgerPath(), logger)
		if err != nil {
			return err
		}
		defer led.Close()

		b := bus.New()
		runner := &replayRunner{bus: b, engine: eng, path: args[0], log: logger}
		ctrl, err := orchestrator.New(orchestrator.Config{
			Bus:     b,
			Runners: map[engine.Engine]engine.Runner{eng: runner},
			Ledger:  led,
			Logger:  logger,
		})
		if err != nil {
			return err
		}

		tab, err := ctrl.OpenTab(eng, replayProject)
		if err != nil {
			return err
		}
		defer ctrl.CloseTab(tab)

		ctx, cancel := context.WithTimeout(cmd.Context(), replayTimeout)
		defer cancel()
		opts := orchestrator.SendOptions{
			Prompt: replayPrompt,
			Model:  config.Backend(eng).DefaultModel,
		}
		if err := ctrl.Send(ctx, tab, opts); err != nil {
			return err
		}
		if err := waitIdle(ctx, tab); err != nil {
			return err
		}

		fmt.Println(renderTimeline(tab.Timeline()))

		sessionID := tab.SessionID()
		if sessionID != "" {
			records, err := led.Records(cmd.Context(), string(eng), sessionID)
			if err != nil {
				return err
			}
			fmt.Println(renderRecords(records))
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayEngine, "engine", "claude", "Engine whose log format to replay (claude, codex, gemini)")
	replayCmd.Flags().StringVar(&replayProject, "project", ".", "Project path the session operated on")
	replayCmd.Flags().StringVar(&replayPrompt, "prompt", "replayed session", "Prompt text recorded for the replayed turn")
	replayCmd.Flags().DurationVar(&replayTimeout, "timeout", 30*time.Second, "Give up if the replay does not complete in time")
}

func waitIdle(ctx context.Context, tab *orchestrator.Tab) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("replay did not complete: %w", ctx.Err())
		case <-ticker.C:
			if !tab.Busy() {
				return nil
			}
		}
	}
}

// replayRunner satisfies engine.Runner by publishing a recorded event log
// onto the bus the way a live backend would: generic channels until the
// session id appears, session-scoped channels after, and a completion signal
// at the end of the log.
type replayRunner struct {
	bus    *bus.Bus
	engine engine.Engine
	path   string
	log    *zap.Logger
}

func (r *replayRunner) Execute(ctx context.Context, opts engine.ExecuteOptions) error {
	go r.publish(ctx)
	return nil
}

func (r *replayRunner) Resume(ctx context.Context, sessionID string, opts engine.ExecuteOptions) error {
	go r.publish(ctx)
	return nil
}

func (r *replayRunner) Continue(ctx context.Context, opts engine.ExecuteOptions) error {
	go r.publish(ctx)
	return nil
}

func (r *replayRunner) Cancel(ctx context.Context, sessionID string) error { return nil }

func (r *replayRunner) publish(ctx context.Context) {
	f, err := os.Open(r.path)
	if err != nil {
		r.log.Error("open event log failed", zap.Error(err))
		return
	}
	defer f.Close()

	scheme := engine.Channels(r.engine)
	ids := newSessionIDer(r.engine)
	sessionID := ""

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}

		if sessionID == "" {
			id := ids.SessionID(line)
			if id == "" {
				r.bus.Publish(scheme.Output, line)
				continue
			}
			// The id-bearing line goes out generic so the orchestrator can
			// migrate; later lines wait for the scoped subscription the way
			// a live backend's channel handshake would.
			sessionID = id
			if scheme.SessionInit != "" {
				payload, _ := json.Marshal(map[string]string{"session_id": id})
				r.bus.Publish(scheme.SessionInit, payload)
			}
			r.bus.Publish(scheme.Output, line)
			r.waitForScoped(ctx, scheme.Scoped(id).Output)
			continue
		}

		r.bus.Publish(scheme.Scoped(sessionID).Output, line)
	}
	if err := scanner.Err(); err != nil {
		r.log.Error("read event log failed", zap.Error(err))
	}

	if sessionID != "" {
		r.bus.Publish(scheme.Scoped(sessionID).Complete, []byte(`true`))
	} else {
		r.bus.Publish(scheme.Complete, []byte(`true`))
	}
}

// waitForScoped blocks until the orchestrator has attached the session-scoped
// subscription, so scoped publishes are not lost mid-migration.
func (r *replayRunner) waitForScoped(ctx context.Context, channel string) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		if r.bus.SubscriberCount(channel) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.log.Warn("session-scoped subscription never appeared", zap.String("channel", channel))
}

// sessionIDer extracts session ids from raw lines without consuming adapter
// state used for translation.
type sessionIDer interface {
	SessionID(raw []byte) string
}

func newSessionIDer(e engine.Engine) sessionIDer {
	switch e {
	case engine.Codex:
		return codex.NewAdapter(nil)
	case engine.Gemini:
		return gemini.NewAdapter(nil)
	default:
		return claude.NewAdapter(nil)
	}
}
