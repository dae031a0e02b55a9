package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playqueue/internal/app/playback"
	"github.com/osa030/playqueue/internal/app/session"
	"github.com/osa030/playqueue/internal/domain/playlist"
	"github.com/osa030/playqueue/internal/domain/queue"
	"github.com/osa030/playqueue/internal/domain/track"
	"github.com/osa030/playqueue/internal/infra/config"
)

func newTestConsole(t *testing.T) (*console, *session.Manager, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)

	mgr := session.NewManager(cfg, session.WithTickInterval(0))
	t.Cleanup(mgr.Stop)

	var out bytes.Buffer
	return newConsole(mgr, &out), mgr, &out
}

func execAll(t *testing.T, c *console, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, c.exec(context.Background(), line), line)
	}
}

func TestConsole_QueueCommands(t *testing.T) {
	c, mgr, _ := newTestConsole(t)
	eng := mgr.Engine()

	execAll(t, c, "set a@Queen b@Bowie c")
	assert.Equal(t, []string{"a", "b", "c"}, queue.IDs(eng.Items()))
	assert.Equal(t, []string{"Queen"}, eng.Items()[0].Track.Artists)
	assert.Empty(t, eng.Items()[2].Track.Artists)

	execAll(t, c, "next p", "user u")
	assert.Equal(t, []string{"a", "p", "b", "c", "u"}, queue.IDs(eng.Items()))
	assert.Equal(t, 1, eng.PlayNextCount())

	execAll(t, c, "add d")
	assert.Equal(t, []string{"a", "p", "b", "c", "u", "d"}, queue.IDs(eng.Items()))

	execAll(t, c, "rm 1")
	assert.Equal(t, []string{"a", "b", "c", "u", "d"}, queue.IDs(eng.Items()))

	execAll(t, c, "move 4 1")
	assert.Equal(t, []string{"a", "d", "b", "c", "u"}, queue.IDs(eng.Items()))

	execAll(t, c, "repeat all", "shuffle on")
	assert.Equal(t, queue.RepeatAll, eng.Repeat())
	assert.True(t, eng.IsShuffled())
	assert.Equal(t, "a", eng.Items()[0].ID, "current item leads the shuffled order")

	execAll(t, c, "shuffle off", "clear keep")
	assert.Equal(t, []string{"a"}, queue.IDs(eng.Items()))

	execAll(t, c, "clear")
	assert.Zero(t, eng.Len())
}

func TestConsole_PlaybackCommands(t *testing.T) {
	c, mgr, out := newTestConsole(t)

	err := c.exec(context.Background(), "play")
	assert.ErrorIs(t, err, playback.ErrEmpty)

	execAll(t, c, "set a b", "play")
	assert.Equal(t, playback.StatePlaying, mgr.Timeline().State())

	execAll(t, c, "skip")
	assert.Equal(t, 1, mgr.Timeline().CurrentIndex())
	execAll(t, c, "prev", "pause")
	assert.Equal(t, 0, mgr.Timeline().CurrentIndex())
	assert.Equal(t, playback.StatePaused, mgr.Timeline().State())

	execAll(t, c, "show")
	assert.Contains(t, out.String(), ">   0  a")
	assert.Contains(t, out.String(), "items=2 play_next=0 shuffle=off repeat=none playback=paused")
}

func TestConsole_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{name: "unknown command", line: "dance", want: errUnknownCommand},
		{name: "set without tracks", line: "set", want: errUsage},
		{name: "move needs two indexes", line: "move 1", want: errUsage},
		{name: "move needs numbers", line: "move a b", want: errUsage},
		{name: "rm needs a number", line: "rm x", want: errUsage},
		{name: "bad clear flag", line: "clear all", want: errUsage},
		{name: "bad shuffle flag", line: "shuffle maybe", want: errUsage},
		{name: "load without resolver", line: "load spotify:playlist:x", want: session.ErrNoResolver},
		{name: "quit", line: "quit", want: errQuit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestConsole(t)
			assert.ErrorIs(t, c.exec(context.Background(), tt.line), tt.want)
		})
	}

	c, _, _ := newTestConsole(t)
	assert.Error(t, c.exec(context.Background(), "repeat sometimes"))
	assert.NoError(t, c.exec(context.Background(), "   "))
}

func TestConsole_Run(t *testing.T) {
	c, mgr, out := newTestConsole(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input := strings.NewReader("set a b\nbogus\nshow\nquit\nset c\n")
	require.NoError(t, c.run(ctx, input))

	assert.Equal(t, []string{"a", "b"}, queue.IDs(mgr.Engine().Items()))
	assert.Contains(t, out.String(), "error: ")
	assert.Contains(t, out.String(), "items=2")
}

func TestConsole_RunStopsAtEOF(t *testing.T) {
	c, mgr, _ := newTestConsole(t)

	require.NoError(t, c.run(context.Background(), strings.NewReader("set a\nhelp")))
	assert.Equal(t, []string{"a"}, queue.IDs(mgr.Engine().Items()))
}

func TestConsole_ShowPlaylistContext(t *testing.T) {
	c, mgr, out := newTestConsole(t)
	pl := &playlist.Playlist{
		ID:   "pl1",
		Name: "Road Trip",
		URL:  "https://open.spotify.com/playlist/pl1",
		Tracks: []track.Track{
			{ID: "a", Name: "First"},
			{ID: "b", Name: "Second", Artists: []string{"Queen"}},
		},
	}
	mgr.Engine().SetQueue(pl.Tracks, 1, false, 0, pl.Context())

	execAll(t, c, "show")
	assert.Contains(t, out.String(), "    0  First")
	assert.Contains(t, out.String(), ">   1  Second - Queen")
	assert.Contains(t, out.String(), "playlist: Road Trip (2 tracks) https://open.spotify.com/playlist/pl1")
}

// lockedBuffer is a bytes.Buffer safe for concurrent writers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsole_WatchPrintsNowPlaying(t *testing.T) {
	_, mgr, _ := newTestConsole(t)
	var out lockedBuffer
	c := newConsole(mgr, &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.watch(ctx)
	}()
	require.Eventually(t, func() bool { return mgr.Hub().SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	eng := mgr.Engine()
	eng.SetQueue([]track.Track{{ID: "a", Name: "First"}, {ID: "b", Name: "Second"}}, 0, false, 0, nil)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "now playing: First")
	}, time.Second, 5*time.Millisecond)

	eng.AddToEnd([]track.Track{{ID: "c"}}, nil)
	eng.RemoveByID("a")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "now playing: Second")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, strings.Count(out.String(), "now playing: First"))

	cancel()
	<-done
	assert.Zero(t, mgr.Hub().SubscriberCount())
}
