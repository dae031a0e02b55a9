package engine

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/osa030/playqueue/internal/domain/queue"
	"github.com/osa030/playqueue/internal/domain/track"
)

// SetQueue replaces the whole queue with tracks and starts at startIndex.
// An empty list is a no-op. A positive startPosition is handed to the
// playback engine, which applies it once the item is ready.
func (e *Engine) SetQueue(tracks []track.Track, startIndex int, autoplay bool, startPosition time.Duration, ctx *track.PlayContext) {
	valid := dedupeTracks(tracks, nil)
	if len(valid) == 0 {
		e.log.Debug().Msg("queue: set ignored: no playable items")
		return
	}
	startIndex = max(0, min(startIndex, len(tracks)-1))
	startID := tracks[startIndex].ID

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx = ctx.Clone()
	source := queue.SourceForContext(ctx)
	wasShuffled := e.shuffled

	e.main.Clear()
	e.playNext.Clear()
	e.lookup = make(map[string]*queue.Item, len(valid))
	e.shuffleSnapshot = nil
	e.shuffled = false
	e.history.Clear()
	e.playNextCounter = 0
	e.context = ctx
	e.current = 0

	items := make([]*queue.Item, 0, len(valid))
	for _, t := range valid {
		it := queue.NewItem(t, queue.SegmentMain, source, ctx)
		if it.ID == startID {
			e.current = len(items)
		}
		items = append(items, it)
		e.main.PushBack(it)
		e.lookup[it.ID] = it
	}

	if wasShuffled {
		e.engineErr("set_shuffle", e.playback.SetShuffle(false))
	}
	e.engineErr("replace_all", e.playback.ReplaceAll(items, e.current, startPosition))
	if autoplay {
		e.engineErr("play", e.playback.Play())
	}

	e.log.Info().Msgf("queue: set: size=%d start=%d autoplay=%t", len(items), e.current, autoplay)
	e.publishLocked(&queue.ChangeEvent{
		Type:     queue.EventQueueReordered,
		NewOrder: e.itemsLocked(),
	})
	e.persistLocked()
}

// AddToEnd appends tracks to the end of the queue. Tracks already queued are skipped.
func (e *Engine) AddToEnd(tracks []track.Track, ctx *track.PlayContext) {
	ctx = ctx.Clone()
	e.append(tracks, queue.SegmentMain, queue.SourceForContext(ctx), ctx)
}

// AddToUserQueue appends tracks for later playback. They join the tail of the
// main sequence and keep the USER_QUEUE tag for accounting and persistence.
func (e *Engine) AddToUserQueue(tracks []track.Track) {
	e.append(tracks, queue.SegmentUserQueue, queue.SourceUserAdded, nil)
}

func (e *Engine) append(tracks []track.Track, segment queue.Segment, source queue.Source, ctx *track.PlayContext) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fresh := dedupeTracks(tracks, e.lookup)
	if len(fresh) == 0 {
		return
	}

	base := e.lenLocked()
	items := make([]*queue.Item, len(fresh))
	for i, t := range fresh {
		items[i] = queue.NewItem(t, segment, source, ctx)
		e.main.PushBack(items[i])
		e.lookup[items[i].ID] = items[i]
	}
	e.normalizeLocked()

	e.engineErr("append", e.playback.Append(items))

	for i, it := range items {
		e.publishLocked(&queue.ChangeEvent{
			Type:     queue.EventItemAdded,
			Item:     copyItem(it, base+i),
			Position: base + i,
		})
	}
	e.persistLocked()
}

// PlayNext queues tracks to play right after the current item, in the given
// order. Tracks already queued elsewhere are moved. The current item is never moved.
func (e *Engine) PlayNext(tracks []track.Track, ctx *track.PlayContext) {
	if len(tracks) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var currentID string
	if it := e.currentItemLocked(); it != nil {
		currentID = it.ID
	}
	batch := lo.Filter(dedupeTracks(tracks, nil), func(t track.Track, _ int) bool {
		return t.ID != currentID
	})
	if len(batch) == 0 {
		return
	}

	for _, t := range batch {
		if _, ok := e.lookup[t.ID]; ok {
			e.removeAtLocked(e.indexOfLocked(t.ID))
		}
	}

	ctx = ctx.Clone()
	source := queue.SourceForContext(ctx)
	wasEmpty := e.lenLocked() == 0
	items := make([]*queue.Item, len(batch))
	for i, t := range batch {
		items[i] = queue.NewItem(t, queue.SegmentPlayNext, source, ctx)
		e.lookup[items[i].ID] = items[i]
	}
	for i := len(items) - 1; i >= 0; i-- {
		e.playNext.PushFront(items[i])
	}
	e.playNextCounter += len(items)

	base := e.current + 1
	if wasEmpty {
		base = 0
	}
	e.normalizeLocked()

	at := min(base, e.playback.ItemCount())
	e.engineErr("insert_at", e.playback.InsertAt(at, items))

	for i, it := range items {
		e.publishLocked(&queue.ChangeEvent{
			Type:     queue.EventItemAdded,
			Item:     copyItem(it, base+i),
			Position: base + i,
		})
	}
	e.persistLocked()
}

// Move moves the item at from to to. Out-of-range or equal indexes are a no-op.
func (e *Engine) Move(from, to int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.lenLocked()
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		e.log.Debug().Msgf("queue: move ignored: from=%d to=%d size=%d", from, to, n)
		return
	}

	order := e.combinedLocked()
	item := order[from]
	order = slices.Delete(order, from, from+1)
	order = slices.Insert(order, to, item)

	cur := e.current
	switch {
	case from == cur:
		cur = to
	case from < cur && to >= cur:
		cur--
	case from > cur && to <= cur:
		cur++
	}
	e.rebuildLocked(order, cur)

	e.engineErr("move_item", e.playback.MoveItem(from, to))

	e.publishLocked(&queue.ChangeEvent{
		Type: queue.EventItemMoved,
		Item: copyItem(item, to),
		From: from,
		To:   to,
	})
	e.persistLocked()
}

// RemoveAt removes the item at index. Out-of-range indexes are a no-op.
func (e *Engine) RemoveAt(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= e.lenLocked() {
		e.log.Debug().Msgf("queue: remove ignored: index=%d size=%d", index, e.lenLocked())
		return
	}
	e.removeAtLocked(index)
	e.persistLocked()
}

// RemoveByID removes the item with the given ID, if queued.
func (e *Engine) RemoveByID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.lookup[id]; !ok {
		return
	}
	e.removeAtLocked(e.indexOfLocked(id))
	e.persistLocked()
}

func (e *Engine) removeAtLocked(pos int) {
	var item *queue.Item
	if pos == e.current {
		// The next item becomes current, wherever it lives.
		order := e.combinedLocked()
		item = order[pos]
		order = slices.Delete(order, pos, pos+1)
		e.rebuildLocked(order, pos)
	} else {
		seg, idx := e.locateLocked(pos)
		item = seg.Remove(idx)
		if pos < e.current {
			e.current--
		}
	}
	delete(e.lookup, item.ID)
	if item.Segment == queue.SegmentPlayNext && e.playNextCounter > 0 {
		e.playNextCounter--
	}
	e.normalizeLocked()

	e.engineErr("remove_at", e.playback.RemoveAt(pos))

	e.publishLocked(&queue.ChangeEvent{
		Type:     queue.EventItemRemoved,
		Item:     copyItem(item, pos),
		Position: pos,
	})
}

// ClearQueue empties the queue. With keepCurrent the current item survives
// as the only item.
func (e *Engine) ClearQueue(keepCurrent bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.currentItemLocked()

	e.main.Clear()
	e.playNext.Clear()
	e.lookup = make(map[string]*queue.Item)
	e.shuffleSnapshot = nil
	e.playNextCounter = 0
	e.current = 0

	if keepCurrent && cur != nil {
		e.main.PushBack(cur)
		e.lookup[cur.ID] = cur
		e.engineErr("keep_only_current", e.playback.KeepOnlyCurrent())
	} else {
		e.engineErr("clear", e.playback.Clear())
	}

	e.log.Info().Msgf("queue: cleared: keep_current=%t", keepCurrent)
	e.publishLocked(&queue.ChangeEvent{
		Type:        queue.EventQueueCleared,
		KeepCurrent: keepCurrent,
	})
	e.persistLocked()
}

// SetRepeat stores the repeat mode and forwards it to the playback engine.
func (e *Engine) SetRepeat(mode queue.RepeatMode) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.repeat = mode
	e.engineErr("set_repeat", e.playback.SetRepeat(mode))
	e.publishLocked(nil)
}

// dedupeTracks drops tracks without an ID, repeated IDs and IDs present in existing.
func dedupeTracks(tracks []track.Track, existing map[string]*queue.Item) []track.Track {
	seen := make(map[string]struct{}, len(tracks))
	return lo.Filter(tracks, func(t track.Track, _ int) bool {
		if t.ID == "" {
			return false
		}
		if _, ok := existing[t.ID]; ok {
			return false
		}
		if _, ok := seen[t.ID]; ok {
			return false
		}
		seen[t.ID] = struct{}{}
		return true
	})
}
