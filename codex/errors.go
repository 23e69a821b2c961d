package codex

import "fmt"

// ProtocolError indicates a malformed or unparseable event line.
type ProtocolError struct {
	Cause   error
	Message string
	Line    string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("codex protocol error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("codex protocol error: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}
