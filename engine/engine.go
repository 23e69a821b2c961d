// Package engine defines the boundary to the backend coding-assistant
// engines: the command interface used to start work (execute, resume,
// continue, cancel) and the pub/sub channel naming scheme their event
// streams arrive on. The engines themselves are opaque; everything above
// this package only sees channels and canonical messages.
package engine

import (
	"context"
	"fmt"
)

// Engine identifies one of the supported backends.
type Engine string

const (
	Claude Engine = "claude"
	Codex  Engine = "codex"
	Gemini Engine = "gemini"
)

// Valid reports whether e names a known engine.
func (e Engine) Valid() bool {
	switch e {
	case Claude, Codex, Gemini:
		return true
	}
	return false
}

// Parse converts a string to an Engine.
func Parse(s string) (Engine, error) {
	e := Engine(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown engine %q", s)
	}
	return e, nil
}

// ExecuteOptions parameterizes a single dispatch.
type ExecuteOptions struct {
	// ProjectPath is the workspace the engine operates on.
	ProjectPath string

	// Prompt is the user prompt text.
	Prompt string

	// Model selects the backend model (engine-specific identifier).
	Model string

	// PermissionMode selects the engine's approval policy, where supported.
	PermissionMode string
}

// Runner is the command interface to one engine backend. All calls are
// asynchronous with respect to the event stream: events referencing the
// dispatched work may arrive before these calls return.
type Runner interface {
	// Execute starts a fresh session for the prompt.
	Execute(ctx context.Context, opts ExecuteOptions) error

	// Resume continues a specific prior session.
	Resume(ctx context.Context, sessionID string, opts ExecuteOptions) error

	// Continue continues the engine's most recent session for the project.
	Continue(ctx context.Context, opts ExecuteOptions) error

	// Cancel aborts the in-flight execution for the session, if any.
	Cancel(ctx context.Context, sessionID string) error
}
