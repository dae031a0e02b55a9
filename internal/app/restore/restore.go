// Package restore rebuilds the play-next and user-queue segments from the
// last persisted snapshot.
package restore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/playqueue/internal/app/engine"
	"github.com/osa030/playqueue/internal/domain/track"
)

// ErrNothingStored is returned when the store holds no snapshot.
var ErrNothingStored = errors.New("no stored queue")

// Resolver turns stored IDs back into tracks. Unknown IDs are omitted.
type Resolver interface {
	GetTracks(ctx context.Context, ids []string) ([]track.Track, error)
}

// Queue is the part of the engine the restore flow drives.
type Queue interface {
	Len() int
	SetQueue(tracks []track.Track, startIndex int, autoplay bool, startPosition time.Duration, ctx *track.PlayContext)
	PlayNext(tracks []track.Track, ctx *track.PlayContext)
	AddToUserQueue(tracks []track.Track)
	ClearQueue(keepCurrent bool)
}

// Result summarizes a restore.
type Result struct {
	PlayNext  int // Restored play-next items
	UserQueue int // Restored user-queue items
	Skipped   int // Stored IDs that could not be resolved
}

// Restorer replays a stored snapshot into a queue.
type Restorer struct {
	store    engine.Store
	resolver Resolver
}

// New creates a restorer. resolver may be nil, in which case tracks are
// restored with their IDs only.
func New(store engine.Store, resolver Resolver) *Restorer {
	return &Restorer{store: store, resolver: resolver}
}

// Restore loads the snapshot and replays it into q. The main sequence comes
// from base, started at the stored main index; without a base the restored
// items form the whole queue.
func (r *Restorer) Restore(ctx context.Context, q Queue, base []track.Track, baseCtx *track.PlayContext) (Result, error) {
	snap, err := r.store.Load(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to load stored queue")
	}
	if snap == nil {
		return Result{}, ErrNothingStored
	}

	ids := append(append([]string{}, snap.PlayNextIDs...), snap.UserQueueIDs...)
	resolved := r.resolve(ctx, ids)

	pick := func(ids []string) []track.Track {
		return lo.FilterMap(ids, func(id string, _ int) (track.Track, bool) {
			t, ok := resolved[id]
			return t, ok
		})
	}
	playNext := pick(snap.PlayNextIDs)
	userQueue := pick(snap.UserQueueIDs)

	res := Result{
		PlayNext:  len(playNext),
		UserQueue: len(userQueue),
		Skipped:   len(ids) - len(playNext) - len(userQueue),
	}

	if len(base) > 0 {
		start := max(0, min(snap.CurrentMainIndex, len(base)-1))
		q.SetQueue(base, start, false, 0, baseCtx)
	} else if q.Len() > 0 {
		q.ClearQueue(false)
	}
	if len(playNext) > 0 {
		q.PlayNext(playNext, nil)
	}
	if len(userQueue) > 0 {
		q.AddToUserQueue(userQueue)
	}

	zlog.Info().Msgf("restore: restored queue: play_next=%d user_queue=%d skipped=%d base=%d",
		res.PlayNext, res.UserQueue, res.Skipped, len(base))
	return res, nil
}

// resolve maps IDs to tracks. Resolver failures degrade to ID-only tracks.
func (r *Restorer) resolve(ctx context.Context, ids []string) map[string]track.Track {
	bare := func() map[string]track.Track {
		return lo.SliceToMap(ids, func(id string) (string, track.Track) {
			return id, track.Track{ID: id}
		})
	}
	if len(ids) == 0 {
		return map[string]track.Track{}
	}
	if r.resolver == nil {
		return bare()
	}

	tracks, err := r.resolver.GetTracks(ctx, ids)
	if err != nil {
		zlog.Warn().Msgf("restore: resolver failed, restoring ids only: %v", err)
		return bare()
	}
	out := lo.KeyBy(tracks, func(t track.Track) string { return t.ID })
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			zlog.Warn().Msgf("restore: skipped unresolvable track: id=%s", id)
		}
	}
	return out
}
