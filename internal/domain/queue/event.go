package queue

// EventType represents a queue change event type.
type EventType int

const (
	EventItemAdded      EventType = iota // An item was inserted
	EventItemRemoved                     // An item was removed
	EventItemMoved                       // An item changed position
	EventQueueCleared                    // The queue was cleared
	EventQueueReordered                  // The whole order was replaced
	EventQueueShuffled                   // Shuffle was toggled
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventItemAdded:
		return "item_added"
	case EventItemRemoved:
		return "item_removed"
	case EventItemMoved:
		return "item_moved"
	case EventQueueCleared:
		return "queue_cleared"
	case EventQueueReordered:
		return "queue_reordered"
	case EventQueueShuffled:
		return "queue_shuffled"
	default:
		return "unknown"
	}
}

// ChangeEvent is a discrete queue change. Only the fields relevant to Type are set.
type ChangeEvent struct {
	Seq         uint64 // Assigned at publication, strictly increasing
	Type        EventType
	Item        *Item  // ItemAdded, ItemRemoved, ItemMoved
	Position    int    // ItemAdded, ItemRemoved
	From        int    // ItemMoved
	To          int    // ItemMoved
	KeepCurrent bool   // QueueCleared
	NewOrder    []Item // QueueReordered
	Enabled     bool   // QueueShuffled
}

// Update is what observers receive: the state after a mutation, the event
// that produced it (nil for state-only updates) and the current item.
type Update struct {
	State   State
	Event   *ChangeEvent
	Current *Item
}
