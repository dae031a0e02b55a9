package engine

import (
	"context"
	"time"

	"github.com/osa030/playqueue/internal/domain/queue"
)

// PlaybackEngine is the decode/render timeline the engine keeps in sync.
// It is the system of record for what the user hears; the engine is the
// sole authority on queue structure. Indexes are positions in the combined order.
type PlaybackEngine interface {
	ReplaceAll(items []*queue.Item, startIndex int, startPosition time.Duration) error
	Append(items []*queue.Item) error
	InsertAt(index int, items []*queue.Item) error
	MoveItem(from, to int) error
	RemoveAt(index int) error
	Clear() error
	KeepOnlyCurrent() error
	Play() error
	SetShuffle(enabled bool) error
	SetRepeat(mode queue.RepeatMode) error

	CurrentIndex() int
	ItemCount() int
	Items() []string
	Position() time.Duration
}

// Store persists the play-next and user-queue segments across restarts.
type Store interface {
	Save(ctx context.Context, snap queue.Snapshot) error
	// Load returns nil, nil when nothing has been stored yet.
	Load(ctx context.Context) (*queue.Snapshot, error)
}

// Publisher receives every state update in mutation completion order.
// Publish must not block.
type Publisher interface {
	Publish(u queue.Update)
}
