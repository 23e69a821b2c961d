package engine

// Scheme names the pub/sub channels one engine publishes on. Generic channels
// carry events before the session id is known; once the backend assigns an
// id, session-scoped variants (base + ":" + id) take over to avoid cross-talk
// between concurrent sessions.
type Scheme struct {
	// Output carries raw event lines.
	Output string

	// Error carries engine-reported error payloads.
	Error string

	// Complete carries the completion signal for an execution.
	Complete string

	// SessionInit, when non-empty, is a dedicated handshake channel that
	// announces the session id before any session-scoped channel is
	// attached. Only codex uses this.
	SessionInit string
}

// Channels returns the channel scheme for an engine.
func Channels(e Engine) Scheme {
	base := string(e)
	s := Scheme{
		Output:   base + "-output",
		Error:    base + "-error",
		Complete: base + "-complete",
	}
	if e == Codex {
		s.SessionInit = base + "-session-init"
	}
	return s
}

// Scoped derives the session-scoped variant of the scheme for a session id.
// The SessionInit channel has no scoped form; it exists only to announce ids.
func (s Scheme) Scoped(sessionID string) Scheme {
	return Scheme{
		Output:   s.Output + ":" + sessionID,
		Error:    s.Error + ":" + sessionID,
		Complete: s.Complete + ":" + sessionID,
	}
}
