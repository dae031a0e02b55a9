package queue

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/playqueue/internal/domain/track"
)

// RepeatMode represents the repeat behavior forwarded to the playback engine.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota // Stop at the end of the queue
	RepeatAll                    // Wrap around to the first item
	RepeatOne                    // Replay the current item
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatNone:
		return "none"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// ParseRepeatMode parses "none", "all" or "one".
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return RepeatNone, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatNone, errors.Newf("unknown repeat mode %q", s)
	}
}

// State is a read-only projection of the queue, recomputed after every mutation.
type State struct {
	TotalCount    int
	CurrentIndex  int
	HasNext       bool
	HasPrevious   bool
	Shuffle       bool
	Repeat        RepeatMode
	PlayNextCount int
	Context       *track.PlayContext
}

// Snapshot is the persisted part of the queue: enough to rebuild the
// play-next and user-queue segments after a restart.
type Snapshot struct {
	PlayNextIDs      []string
	UserQueueIDs     []string
	CurrentMainIndex int // Main-sequence items (SetQueue/AddToEnd) before the current item
	PlayNextCounter  int
}
