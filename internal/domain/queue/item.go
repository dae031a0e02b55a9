// Package queue provides the queue domain types shared by the queue engine,
// the playback engine and observers.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/osa030/playqueue/internal/domain/track"
)

// Segment identifies which logical part of the queue an item was added through.
type Segment string

const (
	SegmentMain      Segment = "MAIN"
	SegmentPlayNext  Segment = "PLAY_NEXT"
	SegmentUserQueue Segment = "USER_QUEUE"
)

// Source is the provenance of an item queued through the main sequence.
type Source string

const (
	SourceAlbum     Source = "ALBUM"
	SourcePlaylist  Source = "PLAYLIST"
	SourceLiked     Source = "LIKED"
	SourceShuffle   Source = "SHUFFLE"
	SourceUserAdded Source = "USER_ADDED"
)

// SourceForContext maps a play context to the provenance tag of the items it queues.
func SourceForContext(ctx *track.PlayContext) Source {
	if ctx == nil {
		return SourceUserAdded
	}
	switch ctx.Type {
	case track.ContextAlbum:
		return SourceAlbum
	case track.ContextPlaylist:
		return SourcePlaylist
	case track.ContextLikedSongs:
		return SourceLiked
	default:
		return SourceUserAdded
	}
}

// Item represents a track in the queue.
type Item struct {
	ID       string             // Track ID; unique within a queue
	UID      string             // Per-insertion unique tag
	Track    track.Track        // Playable payload
	AddedAt  time.Time          // Time when added to queue
	Segment  Segment            // Segment the item was added through
	Source   Source             // Provenance tag
	Position int                // Advisory, recomputed on projection
	Context  *track.PlayContext // Why the item is playing (may be nil)

	PlayedNext bool // Queued through play-next and consumed since
}

// NewItem wraps a track into a queue item with a fresh insertion tag.
func NewItem(t track.Track, segment Segment, source Source, ctx *track.PlayContext) *Item {
	return &Item{
		ID:      t.ID,
		UID:     uuid.New().String(),
		Track:   t,
		AddedAt: time.Now(),
		Segment: segment,
		Source:  source,
		Context: ctx,
	}
}

// IDs returns the IDs of the given items in order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}
