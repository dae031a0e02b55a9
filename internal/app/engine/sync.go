package engine

import (
	"slices"

	"github.com/osa030/playqueue/internal/domain/queue"
	"github.com/osa030/playqueue/internal/domain/track"
)

// OnTrackChanged records a playback transition to id in the shuffle history
// and republishes the current item. It does not move the current index;
// see SyncCurrentFromEngine.
func (e *Engine) OnTrackChanged(id string) {
	if id == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.history.PushBack(id)
	for e.history.Len() > e.config.HistorySize {
		e.history.PopFront()
	}
	e.publishLocked(nil)
}

// SyncCurrentFromEngine moves the current index to the playback engine's
// current item. Play-next items that are now behind the current position
// are consumed. If the engine's item list no longer matches the combined
// order, the queue is rebuilt from the engine.
func (e *Engine) SyncCurrentFromEngine() {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.playback.Items()
	idx := e.playback.CurrentIndex()
	order := e.combinedLocked()

	if !slices.Equal(ids, itemIDs(order)) {
		e.log.Warn().Msgf("queue: engine order diverged, resyncing: engine=%d model=%d", len(ids), len(order))
		e.resyncLocked(ids, idx)
		return
	}
	if len(order) == 0 || idx < 0 || idx >= len(order) {
		return
	}

	moved := idx != e.current
	if moved {
		e.rebuildLocked(order, idx)
	}
	consumed := e.consumeLocked()
	if moved || consumed {
		e.publishLocked(nil)
		e.persistLocked()
	}
}

// ResyncFromEngine rebuilds the queue from the playback engine's
// authoritative item list. Known items keep their payload and tags; unknown
// IDs become bare main items; items the engine no longer holds are dropped.
func (e *Engine) ResyncFromEngine() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resyncLocked(e.playback.Items(), e.playback.CurrentIndex())
}

func (e *Engine) resyncLocked(ids []string, idx int) {
	var currentID string
	if idx >= 0 && idx < len(ids) {
		currentID = ids[idx]
	}

	order := make([]*queue.Item, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	cur := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		it, ok := e.lookup[id]
		if !ok {
			it = queue.NewItem(track.Track{ID: id}, queue.SegmentMain, queue.SourceUserAdded, nil)
		}
		if id == currentID {
			cur = len(order)
		}
		order = append(order, it)
	}

	e.reindexLocked(order)
	e.rebuildLocked(order, cur)
	e.consumeLocked()
	e.playNextCounter = e.playNext.Len()

	e.log.Info().Msgf("queue: resynced from engine: size=%d current=%d", len(order), e.current)
	e.publishLocked(&queue.ChangeEvent{
		Type:     queue.EventQueueReordered,
		NewOrder: e.itemsLocked(),
	})
	e.persistLocked()
}

func itemIDs(items []*queue.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
