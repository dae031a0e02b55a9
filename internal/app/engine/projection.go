package engine

import (
	"github.com/gammazero/deque"

	"github.com/osa030/playqueue/internal/domain/queue"
)

func (e *Engine) lenLocked() int {
	return e.main.Len() + e.playNext.Len()
}

// anchorLocked returns the main position of "now", clamped to the main sequence.
func (e *Engine) anchorLocked() int {
	return min(e.current, e.main.Len()-1)
}

// combinedLocked projects the segments into the effective play order.
func (e *Engine) combinedLocked() []*queue.Item {
	k := e.anchorLocked()
	out := make([]*queue.Item, 0, e.lenLocked())
	for i := 0; i <= k; i++ {
		out = append(out, e.main.At(i))
	}
	for i := 0; i < e.playNext.Len(); i++ {
		out = append(out, e.playNext.At(i))
	}
	for i := k + 1; i < e.main.Len(); i++ {
		out = append(out, e.main.At(i))
	}
	return out
}

func (e *Engine) itemsLocked() []queue.Item {
	order := e.combinedLocked()
	out := make([]queue.Item, len(order))
	for i, it := range order {
		out[i] = *it
		out[i].Position = i
	}
	return out
}

// locateLocked maps a combined position to its owning segment and index.
func (e *Engine) locateLocked(pos int) (*deque.Deque[*queue.Item], int) {
	k := e.anchorLocked()
	if pos <= k {
		return e.main, pos
	}
	if j := pos - k - 1; j < e.playNext.Len() {
		return e.playNext, j
	}
	return e.main, pos - e.playNext.Len()
}

func (e *Engine) indexOfLocked(id string) int {
	for i, it := range e.combinedLocked() {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) currentItemLocked() *queue.Item {
	if e.lenLocked() == 0 {
		return nil
	}
	seg, idx := e.locateLocked(e.current)
	return seg.At(idx)
}

// rebuildLocked replaces the segments with the given combined order. Items
// up to and including cur go to main, the run of PLAY_NEXT items right
// after cur forms the play-next segment, the rest follows in main. The
// projection of the result is exactly order. Tags are never changed.
func (e *Engine) rebuildLocked(order []*queue.Item, cur int) {
	e.main.Clear()
	e.playNext.Clear()
	if len(order) == 0 {
		e.current = 0
		return
	}
	cur = max(0, min(cur, len(order)-1))

	i := 0
	for ; i <= cur; i++ {
		e.main.PushBack(order[i])
	}
	for ; i < len(order) && order[i].Segment == queue.SegmentPlayNext; i++ {
		e.playNext.PushBack(order[i])
	}
	for ; i < len(order); i++ {
		e.main.PushBack(order[i])
	}
	e.current = cur
}

// reindexLocked rebuilds the lookup index from a combined order.
func (e *Engine) reindexLocked(order []*queue.Item) {
	e.lookup = make(map[string]*queue.Item, len(order))
	for _, it := range order {
		e.lookup[it.ID] = it
	}
}

// normalizeLocked restores the invariant that the current item lives in main
// at index current, which keeps the projection well defined.
func (e *Engine) normalizeLocked() {
	n := e.lenLocked()
	if n == 0 {
		e.current = 0
		return
	}
	if e.current >= n {
		e.current = n - 1
	}
	if e.current < 0 {
		e.current = 0
	}
	if e.current >= e.main.Len() {
		e.rebuildLocked(e.combinedLocked(), e.current)
	}
}

// consumeLocked retags PLAY_NEXT items that are now at or before the current
// position as played main items. Returns true if anything changed.
func (e *Engine) consumeLocked() bool {
	changed := false
	for i := 0; i <= e.anchorLocked(); i++ {
		it := e.main.At(i)
		if it.Segment != queue.SegmentPlayNext {
			continue
		}
		it.Segment = queue.SegmentMain
		it.PlayedNext = true
		if e.playNextCounter > 0 {
			e.playNextCounter--
		}
		changed = true
	}
	return changed
}
