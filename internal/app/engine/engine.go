// Package engine provides the playback queue engine: the three-segment queue
// model, its mutation protocol and the combined play order.
package engine

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playqueue/internal/domain/queue"
	"github.com/osa030/playqueue/internal/domain/track"
)

// Config holds engine configuration.
type Config struct {
	HistorySize  int           // Shuffle history cap
	RecentWindow int           // History entries treated as recently played
	SaveTimeout  time.Duration // Timeout for a single background save
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		HistorySize:  50,
		RecentWindow: 20,
		SaveTimeout:  2 * time.Second,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets the observer publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithStore enables background persistence of the play-next and user-queue segments.
func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithRand sets the random source used by the shuffle.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithLogger sets the logger. Defaults to the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine owns the queue structure. All mutations are serialized by mu and
// mirrored to the playback engine while still holding it.
type Engine struct {
	mu sync.RWMutex

	// Segments. Combined order is main[0..current] ++ playNext ++ main[current+1..].
	main     *deque.Deque[*queue.Item]
	playNext *deque.Deque[*queue.Item]
	lookup   map[string]*queue.Item
	current  int

	// Shuffle
	shuffled        bool
	shuffleSnapshot []*queue.Item
	history         *deque.Deque[string]
	rng             *rand.Rand

	repeat          queue.RepeatMode
	playNextCounter int
	context         *track.PlayContext
	seq             uint64

	config    Config
	playback  PlaybackEngine
	publisher Publisher
	store     Store
	persister *persister
	log       zerolog.Logger
}

// New creates an engine driving the given playback engine.
func New(playback PlaybackEngine, config Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if config.HistorySize <= 0 {
		config.HistorySize = def.HistorySize
	}
	if config.RecentWindow <= 0 || config.RecentWindow > config.HistorySize {
		config.RecentWindow = min(def.RecentWindow, config.HistorySize)
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = def.SaveTimeout
	}

	e := &Engine{
		main:     deque.New[*queue.Item](),
		playNext: deque.New[*queue.Item](),
		lookup:   make(map[string]*queue.Item),
		history:  deque.New[string](config.HistorySize),
		config:   config,
		playback: playback,
		log:      zlog.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.store != nil {
		e.persister = newPersister(e.store, config.SaveTimeout, e.log)
	}
	return e
}

// Close stops background persistence after the last pending save.
func (e *Engine) Close() {
	e.mu.Lock()
	p := e.persister
	e.persister = nil
	e.mu.Unlock()

	if p != nil {
		p.close()
	}
}

// Items returns the combined play order with positions filled in.
func (e *Engine) Items() []queue.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.itemsLocked()
}

// View returns the combined play order and the state it projects to, read
// under one lock. State.CurrentIndex addresses items.
func (e *Engine) View() ([]queue.Item, queue.State) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.itemsLocked(), e.stateLocked()
}

// Current returns the item at the current index.
func (e *Engine) Current() (*queue.Item, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	it := e.currentItemLocked()
	if it == nil {
		return nil, false
	}
	return copyItem(it, e.current), true
}

// CurrentIndex returns the position of the current item in the combined order.
func (e *Engine) CurrentIndex() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Len returns the number of items in the combined order.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lenLocked()
}

// HasNext reports whether an item follows the current one.
func (e *Engine) HasNext() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked().HasNext
}

// HasPrevious reports whether an item precedes the current one.
func (e *Engine) HasPrevious() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked().HasPrevious
}

// State returns the current state projection.
func (e *Engine) State() queue.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

// PlayNextCount returns the play-next badge counter.
func (e *Engine) PlayNextCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.playNextCounter
}

// IsShuffled reports whether shuffle is enabled.
func (e *Engine) IsShuffled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.shuffled
}

// Repeat returns the repeat mode.
func (e *Engine) Repeat() queue.RepeatMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.repeat
}

// Contains reports whether an item with the given ID is queued.
func (e *Engine) Contains(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.lookup[id]
	return ok
}

// History returns recently played IDs, oldest first.
func (e *Engine) History() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, e.history.Len())
	for i := range out {
		out[i] = e.history.At(i)
	}
	return out
}

// Snapshot returns the persisted view of the queue.
func (e *Engine) Snapshot() queue.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Engine) stateLocked() queue.State {
	n := e.lenLocked()
	return queue.State{
		TotalCount:    n,
		CurrentIndex:  e.current,
		HasNext:       n > 0 && (e.current < n-1 || e.repeat == queue.RepeatAll),
		HasPrevious:   n > 0 && e.current > 0,
		Shuffle:       e.shuffled,
		Repeat:        e.repeat,
		PlayNextCount: e.playNext.Len(),
		Context:       e.context,
	}
}

func (e *Engine) snapshotLocked() queue.Snapshot {
	snap := queue.Snapshot{
		PlayNextIDs:     make([]string, 0, e.playNext.Len()),
		UserQueueIDs:    make([]string, 0),
		PlayNextCounter: e.playNextCounter,
	}
	// Count only items a reloaded base sequence would contain.
	for i := 0; i < e.current && i < e.main.Len(); i++ {
		if it := e.main.At(i); it.Segment == queue.SegmentMain && !it.PlayedNext {
			snap.CurrentMainIndex++
		}
	}
	for i := 0; i < e.playNext.Len(); i++ {
		snap.PlayNextIDs = append(snap.PlayNextIDs, e.playNext.At(i).ID)
	}
	for i := e.current + 1; i < e.main.Len(); i++ {
		if it := e.main.At(i); it.Segment == queue.SegmentUserQueue {
			snap.UserQueueIDs = append(snap.UserQueueIDs, it.ID)
		}
	}
	return snap
}

// publishLocked sends the post-mutation state to observers. ev may be nil.
func (e *Engine) publishLocked(ev *queue.ChangeEvent) {
	if ev != nil {
		e.seq++
		ev.Seq = e.seq
		e.log.Debug().Msgf("queue: %s seq=%d size=%d current=%d", ev.Type, ev.Seq, e.lenLocked(), e.current)
	}
	if e.publisher == nil {
		return
	}
	var cur *queue.Item
	if it := e.currentItemLocked(); it != nil {
		cur = copyItem(it, e.current)
	}
	e.publisher.Publish(queue.Update{
		State:   e.stateLocked(),
		Event:   ev,
		Current: cur,
	})
}

func (e *Engine) persistLocked() {
	if e.persister != nil {
		e.persister.submit(e.snapshotLocked())
	}
}

// engineErr logs a failed playback engine call. The model is not rolled back.
func (e *Engine) engineErr(op string, err error) {
	if err != nil {
		e.log.Warn().Msgf("queue: engine %s failed, model and engine may diverge: %v", op, err)
	}
}

func copyItem(it *queue.Item, pos int) *queue.Item {
	c := *it
	c.Position = pos
	return &c
}
