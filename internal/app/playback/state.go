// Package playback provides an in-memory playback timeline implementing the
// primitive operations the queue engine drives.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // Nothing playing (empty or stopped at the end)
	StatePlaying              // An item is playing
	StatePaused               // An item is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
