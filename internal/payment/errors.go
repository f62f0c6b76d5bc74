package payment

import "fmt"

// SessionError wraps a provider failure with the operation that produced it.
type SessionError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *SessionError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("payment: %s session %s: %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("payment: %s session: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }
