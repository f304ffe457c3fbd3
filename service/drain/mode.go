package drain

// SessionMode records whether the queue is drained through sessions.
// It starts Unknown and is settled by the first acquisition of a run.
type SessionMode int

const (
	SessionModeUnknown SessionMode = iota
	SessionModeCapable
	SessionModeIncapable
)

func (obj SessionMode) String() string {
	switch obj {
	case SessionModeCapable:
		return "capable"
	case SessionModeIncapable:
		return "incapable"
	default:
		return "unknown"
	}
}

// Settled reports whether the mode has left Unknown.
func (obj SessionMode) Settled() bool { return obj != SessionModeUnknown }
