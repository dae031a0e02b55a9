package playback

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playqueue/internal/domain/queue"
)

// Errors
var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrEmpty           = errors.New("timeline is empty")
	ErrNotPlaying      = errors.New("not playing")
	ErrNoNext          = errors.New("no next item")
	ErrSeekOutOfRange  = errors.New("seek position beyond item duration")
)

// Config holds timeline configuration.
type Config struct {
	EventBuffer int // Size of the event channel buffer
}

type entry struct {
	id       string
	duration time.Duration
}

// Timeline is an in-memory playback engine. It tracks the ordered items, the
// active index and the position within the active item, and reports
// transitions on its event channel.
type Timeline struct {
	mu sync.RWMutex

	entries []entry
	current int // -1 when empty

	// Active item state
	state       State
	position    time.Duration
	ready       bool          // Duration and seek bounds are known
	pendingSeek time.Duration // Applied on MarkReady

	shuffle bool
	repeat  queue.RepeatMode

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTimeline creates an empty timeline.
func NewTimeline(config Config) *Timeline {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Timeline{
		current: -1,
		state:   StateIdle,
		eventCh: make(chan Event, config.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (t *Timeline) Events() <-chan Event {
	return t.eventCh
}

// Close stops event delivery.
func (t *Timeline) Close() {
	t.cancel()
}

func toEntries(items []*queue.Item) []entry {
	out := make([]entry, len(items))
	for i, it := range items {
		out[i] = entry{id: it.ID, duration: it.Track.Duration}
	}
	return out
}

// ReplaceAll replaces every item and starts at startIndex. If the item at
// startIndex is already active, playback continues and startPosition is
// treated as a seek; otherwise startPosition is applied once ready.
func (t *Timeline) ReplaceAll(items []*queue.Item, startIndex int, startPosition time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(items) > 0 && (startIndex < 0 || startIndex >= len(items)) {
		return errors.Wrapf(ErrIndexOutOfRange, "replace start index %d of %d", startIndex, len(items))
	}

	prevID := t.currentIDLocked()
	t.entries = toEntries(items)
	if len(t.entries) == 0 {
		t.resetLocked()
		return nil
	}
	t.current = startIndex

	if prevID != "" && t.entries[startIndex].id == prevID {
		if t.ready && startPosition > 0 && t.withinLocked(startPosition) {
			t.position = startPosition
		}
		return nil
	}

	t.loadLocked(startPosition)
	t.sendTrackChangedLocked(ReasonReplace)
	return nil
}

// Append adds items at the end.
func (t *Timeline) Append(items []*queue.Item) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, toEntries(items)...)
	if t.current < 0 && len(t.entries) > 0 {
		t.current = 0
		t.loadLocked(0)
		t.sendTrackChangedLocked(ReasonReplace)
	}
	return nil
}

// InsertAt inserts items before index. index may equal the item count.
func (t *Timeline) InsertAt(index int, items []*queue.Item) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index > len(t.entries) {
		return errors.Wrapf(ErrIndexOutOfRange, "insert at %d of %d", index, len(t.entries))
	}
	if len(items) == 0 {
		return nil
	}
	t.entries = slices.Insert(t.entries, index, toEntries(items)...)

	if t.current < 0 {
		t.current = 0
		t.loadLocked(0)
		t.sendTrackChangedLocked(ReasonReplace)
	} else if index <= t.current {
		t.current += len(items)
	}
	return nil
}

// MoveItem moves the item at from to to.
func (t *Timeline) MoveItem(from, to int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return errors.Wrapf(ErrIndexOutOfRange, "move %d->%d of %d", from, to, n)
	}
	if from == to {
		return nil
	}
	e := t.entries[from]
	t.entries = slices.Delete(t.entries, from, from+1)
	t.entries = slices.Insert(t.entries, to, e)

	switch {
	case t.current == from:
		t.current = to
	case from < t.current && to >= t.current:
		t.current--
	case from > t.current && to <= t.current:
		t.current++
	}
	return nil
}

// RemoveAt removes the item at index. Removing the active item makes the
// following item active.
func (t *Timeline) RemoveAt(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.entries) {
		return errors.Wrapf(ErrIndexOutOfRange, "remove %d of %d", index, len(t.entries))
	}
	t.entries = slices.Delete(t.entries, index, index+1)

	switch {
	case len(t.entries) == 0:
		t.resetLocked()
		t.sendTrackChangedLocked(ReasonRemoved)
	case index < t.current:
		t.current--
	case index == t.current:
		t.current = min(t.current, len(t.entries)-1)
		t.loadLocked(0)
		t.sendTrackChangedLocked(ReasonRemoved)
	}
	return nil
}

// Clear removes every item and stops playback.
func (t *Timeline) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	hadItems := len(t.entries) > 0
	t.entries = nil
	t.resetLocked()
	if hadItems {
		t.sendTrackChangedLocked(ReasonRemoved)
	}
	return nil
}

// KeepOnlyCurrent drops every item except the active one.
func (t *Timeline) KeepOnlyCurrent() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current < 0 {
		t.entries = nil
		return nil
	}
	t.entries = []entry{t.entries[t.current]}
	t.current = 0
	return nil
}

// Play starts or resumes playback.
func (t *Timeline) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current < 0 {
		return ErrEmpty
	}
	if t.state == StatePlaying {
		return nil
	}
	t.state = StatePlaying
	t.sendEventLocked(Event{Type: EventStateChanged, ItemID: t.currentIDLocked(), Index: t.current, State: t.state})
	return nil
}

// Pause pauses playback.
func (t *Timeline) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePlaying {
		return ErrNotPlaying
	}
	t.state = StatePaused
	t.sendEventLocked(Event{Type: EventStateChanged, ItemID: t.currentIDLocked(), Index: t.current, State: t.state})
	return nil
}

// MarkReady reports that the active item is loaded. A pending start
// position is applied only if it lies within the item's duration.
// Returns true if a pending position was applied.
func (t *Timeline) MarkReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current < 0 {
		return false
	}
	t.ready = true
	pending := t.pendingSeek
	t.pendingSeek = 0
	if pending > 0 && t.withinLocked(pending) {
		t.position = pending
		return true
	}
	if pending > 0 {
		zlog.Debug().Msgf("playback: dropped start position beyond duration: item=%s position=%v", t.currentIDLocked(), pending)
	}
	return false
}

// Seek moves within the active item. Before the item is ready the position
// is deferred until MarkReady.
func (t *Timeline) Seek(position time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current < 0 {
		return ErrEmpty
	}
	if !t.ready {
		t.pendingSeek = position
		return nil
	}
	if position < 0 || (position > 0 && !t.withinLocked(position)) {
		return ErrSeekOutOfRange
	}
	t.position = position
	return nil
}

// Tick advances the position of a playing, ready item by d and moves to the
// next item when the active one ends.
func (t *Timeline) Tick(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePlaying || !t.ready || t.current < 0 {
		return
	}
	t.position += d
	if dur := t.entries[t.current].duration; dur > 0 && t.position >= dur {
		t.onItemEndLocked()
	}
}

// Advance ends the active item as if it finished playing.
func (t *Timeline) Advance() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current < 0 {
		return ErrEmpty
	}
	t.onItemEndLocked()
	return nil
}

// Skip moves to the next item regardless of repeat-one.
func (t *Timeline) Skip() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.current < 0:
		return ErrEmpty
	case t.current < len(t.entries)-1:
		t.current++
		t.loadLocked(0)
		t.sendTrackChangedLocked(ReasonSkip)
	case t.repeat == queue.RepeatAll:
		t.current = 0
		t.loadLocked(0)
		t.sendTrackChangedLocked(ReasonRepeat)
	default:
		return ErrNoNext
	}
	return nil
}

// Previous moves to the previous item, wrapping with repeat-all. At the
// first item without repeat-all it restarts the active item.
func (t *Timeline) Previous() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.current < 0:
		return ErrEmpty
	case t.current > 0:
		t.current--
		t.loadLocked(0)
		t.sendTrackChangedLocked(ReasonPrevious)
	case t.repeat == queue.RepeatAll && len(t.entries) > 1:
		t.current = len(t.entries) - 1
		t.loadLocked(0)
		t.sendTrackChangedLocked(ReasonPrevious)
	default:
		t.position = 0
	}
	return nil
}

// SetShuffle records the shuffle flag. Ordering is owned by the queue engine.
func (t *Timeline) SetShuffle(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shuffle = enabled
	return nil
}

// SetRepeat sets the repeat mode used on item end.
func (t *Timeline) SetRepeat(mode queue.RepeatMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.repeat = mode
	return nil
}

// CurrentIndex returns the active index, or -1 when empty.
func (t *Timeline) CurrentIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// ItemCount returns the number of items.
func (t *Timeline) ItemCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Items returns the item IDs in timeline order.
func (t *Timeline) Items() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, len(t.entries))
	for i, e := range t.entries {
		ids[i] = e.id
	}
	return ids
}

// Position returns the position within the active item.
func (t *Timeline) Position() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.position
}

// State returns the playback state.
func (t *Timeline) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// IsShuffled returns the shuffle flag last forwarded by the queue engine.
func (t *Timeline) IsShuffled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.shuffle
}

// RepeatMode returns the repeat mode.
func (t *Timeline) RepeatMode() queue.RepeatMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.repeat
}

func (t *Timeline) onItemEndLocked() {
	switch {
	case t.repeat == queue.RepeatOne:
		t.position = 0
		t.sendTrackChangedLocked(ReasonRepeat)
	case t.current < len(t.entries)-1:
		t.current++
		t.loadLocked(0)
		t.sendTrackChangedLocked(ReasonAuto)
	case t.repeat == queue.RepeatAll:
		t.current = 0
		t.loadLocked(0)
		t.sendTrackChangedLocked(ReasonRepeat)
	default:
		zlog.Debug().Msgf("playback: reached end of timeline: items=%d", len(t.entries))
		t.state = StateIdle
		t.position = 0
		t.sendEventLocked(Event{Type: EventQueueEnded, ItemID: t.currentIDLocked(), Index: t.current, State: t.state})
	}
}

// loadLocked prepares the active item for playback from startPosition.
func (t *Timeline) loadLocked(startPosition time.Duration) {
	t.position = 0
	t.ready = false
	t.pendingSeek = max(0, startPosition)
}

func (t *Timeline) resetLocked() {
	t.current = -1
	t.state = StateIdle
	t.position = 0
	t.ready = false
	t.pendingSeek = 0
}

func (t *Timeline) withinLocked(position time.Duration) bool {
	dur := t.entries[t.current].duration
	return dur > 0 && position < dur
}

func (t *Timeline) currentIDLocked() string {
	if t.current < 0 || t.current >= len(t.entries) {
		return ""
	}
	return t.entries[t.current].id
}

func (t *Timeline) sendTrackChangedLocked(reason Reason) {
	t.sendEventLocked(Event{
		Type:   EventTrackChanged,
		ItemID: t.currentIDLocked(),
		Index:  t.current,
		Reason: reason,
		State:  t.state,
	})
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (t *Timeline) sendEventLocked(e Event) {
	select {
	case t.eventCh <- e:
	case <-t.ctx.Done():
	default:
		zlog.Warn().Msgf("playback: event channel full, dropping %s", e.Type)
	}
}
