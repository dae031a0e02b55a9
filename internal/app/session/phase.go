package session

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseIdle    Phase = iota // Created, loops not started
	PhaseRunning              // Loops running
	PhaseStopped              // Stopped, resources released
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
