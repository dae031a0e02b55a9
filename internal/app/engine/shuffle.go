package engine

import (
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"

	"github.com/osa030/playqueue/internal/domain/queue"
)

// SetShuffle enables or disables shuffle. Enabling keeps the current item in
// front and shuffles the rest; disabling restores the order saved when
// shuffle was enabled.
func (e *Engine) SetShuffle(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enabled == e.shuffled {
		return
	}

	if enabled {
		order := e.combinedLocked()
		e.shuffleSnapshot = order
		e.shuffled = true
		if len(order) > 0 {
			cur := order[e.current]
			rest := make([]*queue.Item, 0, len(order)-1)
			rest = append(rest, order[:e.current]...)
			rest = append(rest, order[e.current+1:]...)

			shuffled := append([]*queue.Item{cur}, antiRepetitionShuffle(e.rng, rest, e.recentLocked(), cur)...)
			e.rebuildLocked(shuffled, 0)
			e.engineErr("replace_all", e.playback.ReplaceAll(shuffled, 0, e.playback.Position()))
		}
	} else {
		e.shuffled = false
		if e.shuffleSnapshot != nil {
			restored := e.restoreOrderLocked()
			idx := 0
			if cur := e.currentItemLocked(); cur != nil {
				idx = max(0, lo.IndexOf(lo.Map(restored, itemID), cur.ID))
			}
			e.rebuildLocked(restored, idx)
			e.engineErr("replace_all", e.playback.ReplaceAll(restored, idx, e.playback.Position()))
		}
		e.shuffleSnapshot = nil
	}

	e.engineErr("set_shuffle", e.playback.SetShuffle(enabled))

	e.log.Info().Msgf("queue: shuffle: enabled=%t size=%d", enabled, e.lenLocked())
	e.publishLocked(&queue.ChangeEvent{
		Type:    queue.EventQueueShuffled,
		Enabled: enabled,
	})
	e.persistLocked()
}

// restoreOrderLocked returns the pre-shuffle order, dropping items removed
// since. Play-next items added since follow the current item; other
// additions are appended, both in their current order.
func (e *Engine) restoreOrderLocked() []*queue.Item {
	restored := lo.Filter(e.shuffleSnapshot, func(it *queue.Item, _ int) bool {
		return e.lookup[it.ID] == it
	})
	inSnapshot := lo.SliceToMap(restored, func(it *queue.Item) (*queue.Item, struct{}) {
		return it, struct{}{}
	})
	added := lo.Filter(e.combinedLocked(), func(it *queue.Item, _ int) bool {
		_, ok := inSnapshot[it]
		return !ok
	})
	playNext, rest := lo.FilterReject(added, func(it *queue.Item, _ int) bool {
		return it.Segment == queue.SegmentPlayNext
	})
	restored = append(restored, rest...)

	at := 0
	if cur := e.currentItemLocked(); cur != nil {
		at = lo.IndexOf(restored, cur) + 1
	}
	return slices.Insert(restored, at, playNext...)
}

// recentLocked returns the IDs within the recent window of the history.
func (e *Engine) recentLocked() map[string]struct{} {
	n := e.history.Len()
	recent := make(map[string]struct{}, e.config.RecentWindow)
	for i := max(0, n-e.config.RecentWindow); i < n; i++ {
		recent[e.history.At(i)] = struct{}{}
	}
	return recent
}

// antiRepetitionShuffle orders items so that recently played items drift to
// the tail and adjacent items avoid sharing an artist where possible. The
// first pick avoids the artist of after, which may be nil.
// It is deliberately not a uniform shuffle.
func antiRepetitionShuffle(rng *rand.Rand, items []*queue.Item, recent map[string]struct{}, after *queue.Item) []*queue.Item {
	isRecent := func(it *queue.Item) bool {
		_, ok := recent[it.ID]
		return ok
	}
	fresh, stale := lo.FilterReject(items, func(it *queue.Item, _ int) bool {
		return !isRecent(it)
	})
	rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	rng.Shuffle(len(stale), func(i, j int) { stale[i], stale[j] = stale[j], stale[i] })

	pool := append(fresh, stale...)
	out := make([]*queue.Item, 0, len(pool))
	last := after
	for len(pool) > 0 {
		candidates := make([]int, 0, len(pool))
		for i, it := range pool {
			if last == nil || !last.Track.SameArtist(&it.Track) {
				candidates = append(candidates, i)
			}
		}
		// Among artist-safe picks, prefer ones not played recently.
		if preferred := lo.Filter(candidates, func(i int, _ int) bool { return !isRecent(pool[i]) }); len(preferred) > 0 {
			candidates = preferred
		}

		var pick int
		if len(candidates) > 0 {
			pick = candidates[rng.IntN(len(candidates))]
		} else {
			pick = rng.IntN(len(pool))
		}
		last = pool[pick]
		out = append(out, last)
		pool = append(pool[:pick], pool[pick+1:]...)
	}
	return out
}

func itemID(it *queue.Item, _ int) string {
	return it.ID
}
