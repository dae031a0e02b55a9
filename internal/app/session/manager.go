// Package session provides the session manager that wires the queue engine
// to the playback timeline, the observer hub and the persistent store.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playqueue/internal/app/engine"
	"github.com/osa030/playqueue/internal/app/notification"
	"github.com/osa030/playqueue/internal/app/playback"
	"github.com/osa030/playqueue/internal/app/restore"
	"github.com/osa030/playqueue/internal/domain/playlist"
	"github.com/osa030/playqueue/internal/domain/track"
	"github.com/osa030/playqueue/internal/infra/config"
)

var (
	ErrSessionNotRunning = errors.New("session is not running")
	ErrAlreadyStarted    = errors.New("session already started")
	ErrNoResolver        = errors.New("no track resolver configured")
	ErrNoStore           = errors.New("no queue store configured")
)

// Resolver looks up track and playlist metadata.
type Resolver interface {
	restore.Resolver
	GetPlaylist(ctx context.Context, playlistURL string) (*playlist.Playlist, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore enables persistence and restore.
func WithStore(s engine.Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithResolver enables playlist loading and metadata lookup.
func WithResolver(r Resolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithTickInterval overrides the playback clock interval. A non-positive
// interval disables the clock; the timeline then only moves on explicit calls.
func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) { m.tickInterval = d }
}

// Manager manages the playback session.
type Manager struct {
	mu sync.Mutex

	// Components
	engine   *engine.Engine
	timeline *playback.Timeline
	hub      *notification.Hub
	store    engine.Store
	resolver Resolver
	restorer *restore.Restorer

	phase        Phase
	tickInterval time.Duration

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, opts ...Option) *Manager {
	m := &Manager{
		timeline:     playback.NewTimeline(playback.Config{EventBuffer: cfg.Playback.EventBuffer}),
		hub:          notification.NewHub(cfg.Queue.SubscriberBuffer),
		tickInterval: cfg.Playback.TickInterval(),
		phase:        PhaseIdle,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	engineOpts := []engine.Option{engine.WithPublisher(m.hub)}
	if m.store != nil {
		engineOpts = append(engineOpts, engine.WithStore(m.store))
		m.restorer = restore.New(m.store, m.resolver)
	}
	m.engine = engine.New(m.timeline, engine.Config{
		HistorySize:  cfg.Queue.HistorySize,
		RecentWindow: cfg.Queue.RecentWindow,
		SaveTimeout:  cfg.Store.SaveTimeout(),
	}, engineOpts...)

	return m
}

// Engine returns the queue engine.
func (m *Manager) Engine() *engine.Engine {
	return m.engine
}

// Timeline returns the playback timeline.
func (m *Manager) Timeline() *playback.Timeline {
	return m.timeline
}

// Hub returns the observer hub.
func (m *Manager) Hub() *notification.Hub {
	return m.hub
}

// Phase returns the session phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Start starts the playback event loop and, if enabled, the playback clock.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseIdle {
		return ErrAlreadyStarted
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.phase = PhaseRunning

	m.wg.Add(1)
	go m.playbackLoop()

	if m.tickInterval > 0 {
		m.wg.Add(1)
		go m.clockLoop()
	}

	zlog.Info().Msgf("session: started: tick_interval=%v persistence=%t resolver=%t",
		m.tickInterval, m.store != nil, m.resolver != nil)
	return nil
}

// Stop stops the loops and releases the engine, the timeline and the hub.
// The last queue snapshot is flushed before Stop returns.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.phase == PhaseStopped {
		m.mu.Unlock()
		return
	}
	wasRunning := m.phase == PhaseRunning
	m.phase = PhaseStopped
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	if wasRunning {
		m.wg.Wait()
	}

	m.engine.Close()
	m.timeline.Close()
	if last, ok := m.hub.Latest(); ok {
		zlog.Info().Msgf("session: final queue: items=%d current=%d play_next=%d",
			last.State.TotalCount, last.State.CurrentIndex, last.State.PlayNextCount)
	}
	m.hub.Close()

	zlog.Info().Msg("session: stopped")
	close(m.done)
}

// Done returns a channel that is closed once the session has stopped.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// FetchPlaylist resolves a playlist without touching the queue.
func (m *Manager) FetchPlaylist(ctx context.Context, playlistURL string) (*playlist.Playlist, error) {
	if m.resolver == nil {
		return nil, ErrNoResolver
	}
	pl, err := m.resolver.GetPlaylist(ctx, playlistURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load playlist")
	}
	return pl, nil
}

// LoadPlaylist replaces the queue with a playlist.
func (m *Manager) LoadPlaylist(ctx context.Context, playlistURL string, autoplay bool) (*playlist.Playlist, error) {
	pl, err := m.FetchPlaylist(ctx, playlistURL)
	if err != nil {
		return nil, err
	}
	zlog.Info().Msgf("session: loaded playlist: id=%s name=%s track_count=%d", pl.ID, pl.Name, len(pl.Tracks))

	m.engine.SetQueue(pl.Tracks, 0, autoplay, 0, pl.Context())
	return pl, nil
}

// ResolveTracks looks up tracks by ID. Without a resolver the tracks carry
// their IDs only.
func (m *Manager) ResolveTracks(ctx context.Context, ids []string) ([]track.Track, error) {
	if m.resolver == nil {
		out := make([]track.Track, len(ids))
		for i, id := range ids {
			out[i] = track.Track{ID: id}
		}
		return out, nil
	}
	tracks, err := m.resolver.GetTracks(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve tracks")
	}
	return tracks, nil
}

// Restore replays the persisted play-next and user-queue segments. See
// restore.Restorer.Restore for how base is used.
func (m *Manager) Restore(ctx context.Context, base []track.Track, baseCtx *track.PlayContext) (restore.Result, error) {
	if m.restorer == nil {
		return restore.Result{}, ErrNoStore
	}
	return m.restorer.Restore(ctx, m.engine, base, baseCtx)
}

// Play starts or resumes playback.
func (m *Manager) Play() error {
	return m.timeline.Play()
}

// Pause pauses playback.
func (m *Manager) Pause() error {
	return m.timeline.Pause()
}

// Skip skips to the next item.
func (m *Manager) Skip() error {
	return m.timeline.Skip()
}

// Previous goes back one item.
func (m *Manager) Previous() error {
	return m.timeline.Previous()
}

// playbackLoop handles playback events.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("session: playback loop panicked: %v", r)
			zlog.Info().Msg("session: restarting playback loop")
			m.wg.Add(1)
			go m.playbackLoop()
		}
		m.wg.Done()
	}()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event := <-m.timeline.Events():
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	zlog.Debug().Msgf("session: playback event: type=%s item=%s index=%d reason=%s",
		event.Type, event.ItemID, event.Index, event.Reason)

	switch event.Type {
	case playback.EventTrackChanged:
		m.engine.SyncCurrentFromEngine()
		if event.ItemID == "" {
			return
		}
		m.engine.OnTrackChanged(event.ItemID)
		// The in-memory timeline has nothing to load.
		m.timeline.MarkReady()

	case playback.EventStateChanged:
		zlog.Info().Msgf("session: playback %s: item=%s", event.State, event.ItemID)

	case playback.EventQueueEnded:
		zlog.Info().Msgf("session: reached end of queue: last=%s", event.ItemID)
	}
}

// clockLoop advances the timeline in real time.
func (m *Manager) clockLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.timeline.Tick(now.Sub(last))
			last = now
		}
	}
}
