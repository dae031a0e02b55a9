package playback

// EventType represents a playback event type.
type EventType int

const (
	EventTrackChanged EventType = iota // The active item changed
	EventStateChanged                  // Playback state changed (play/pause)
	EventQueueEnded                    // Reached the end with repeat off
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventStateChanged:
		return "state_changed"
	case EventQueueEnded:
		return "queue_ended"
	default:
		return "unknown"
	}
}

// Reason explains why the active item changed.
type Reason string

const (
	ReasonReplace  Reason = "replace"  // The timeline was replaced
	ReasonAuto     Reason = "auto"     // The previous item finished
	ReasonSkip     Reason = "skip"     // Manual skip forward
	ReasonPrevious Reason = "previous" // Manual skip back
	ReasonRepeat   Reason = "repeat"   // Repeat-one replay or repeat-all wrap
	ReasonRemoved  Reason = "removed"  // The active item was removed
)

// Event represents a playback event.
type Event struct {
	Type   EventType
	ItemID string // Active item ("" when none)
	Index  int    // Active index (-1 when none)
	Reason Reason // Set for EventTrackChanged
	State  State  // Playback state after the event
}
