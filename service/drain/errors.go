package drain

import "errors"

var (
	ErrSessionsNotSupported = errors.New("queue does not support sessions")
	ErrSessionTimeout       = errors.New("timed out waiting for a session")

	// ErrExhausted is returned by Negotiator.Acquire when no session became
	// available: the queue has nothing left to hand out.
	ErrExhausted = errors.New("queue exhausted")

	// ErrSessionModeChanged is returned when a queue that accepted sessions
	// earlier in the run refuses them later.
	ErrSessionModeChanged = errors.New("queue stopped accepting sessions")

	ErrAcknowledge = errors.New("acknowledge failed")
)
