package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playqueue/internal/app/playback"
	"github.com/osa030/playqueue/internal/domain/queue"
	"github.com/osa030/playqueue/internal/domain/track"
)

func newTimeline(t *testing.T) *playback.Timeline {
	t.Helper()
	tl := playback.NewTimeline(playback.Config{EventBuffer: 64})
	t.Cleanup(tl.Close)
	return tl
}

func TestEngine_SyncConsumesPlayNext(t *testing.T) {
	rec := &recorder{}
	e, tl := newTestEngine(t, WithPublisher(rec))
	e.SetQueue(mk("a", "b", "c"), 0, true, 0, nil)
	e.PlayNext(mk("x", "y"), nil)

	require.NoError(t, tl.Skip())
	e.SyncCurrentFromEngine()

	assert.Equal(t, []string{"a", "x", "y", "b", "c"}, ids(e))
	assert.Equal(t, 1, e.CurrentIndex())
	assert.Equal(t, 1, e.PlayNextCount())
	cur, _ := e.Current()
	assert.Equal(t, queue.SegmentMain, cur.Segment)
	assertConsistent(t, e, tl)

	require.NoError(t, tl.Skip())
	e.SyncCurrentFromEngine()
	assert.Equal(t, 2, e.CurrentIndex())
	assert.Zero(t, e.PlayNextCount())
	assert.Empty(t, e.Snapshot().PlayNextIDs)

	// Nothing moved, nothing published.
	n := len(rec.updates)
	e.SyncCurrentFromEngine()
	assert.Len(t, rec.updates, n)
}

func TestEngine_SnapshotIndexSkipsPlayedNextItems(t *testing.T) {
	e, tl := newTestEngine(t)
	e.SetQueue(mk("a", "b", "c", "d"), 0, false, 0, nil)
	e.PlayNext(mk("x"), nil)
	e.AddToUserQueue(mk("u"))

	require.NoError(t, tl.Skip())
	e.SyncCurrentFromEngine()
	assert.Equal(t, 1, e.Snapshot().CurrentMainIndex, "x is playing, a is behind it")

	require.NoError(t, tl.Skip())
	e.SyncCurrentFromEngine()
	cur, _ := e.Current()
	require.Equal(t, "b", cur.ID)
	assert.True(t, e.Items()[1].PlayedNext)
	assert.Equal(t, 1, e.Snapshot().CurrentMainIndex)

	for range 3 {
		require.NoError(t, tl.Skip())
		e.SyncCurrentFromEngine()
	}
	cur, _ = e.Current()
	require.Equal(t, "u", cur.ID)
	assert.Equal(t, 4, e.Snapshot().CurrentMainIndex)
}

func TestEngine_SyncBackwards(t *testing.T) {
	e, tl := newTestEngine(t)
	e.SetQueue(mk("a", "b", "c"), 2, true, 0, nil)

	require.NoError(t, tl.Previous())
	e.SyncCurrentFromEngine()

	assert.Equal(t, 1, e.CurrentIndex())
	assert.True(t, e.HasNext())
	assertConsistent(t, e, tl)
}

func TestEngine_SyncResyncsOnDivergence(t *testing.T) {
	rec := &recorder{}
	e, tl := newTestEngine(t, WithPublisher(rec))
	e.SetQueue(mk("a", "b", "c"), 0, false, 0, nil)
	rec.reset()

	// The timeline changes behind the engine's back.
	require.NoError(t, tl.RemoveAt(1))
	e.SyncCurrentFromEngine()

	assert.Equal(t, []string{"a", "c"}, ids(e))
	assert.False(t, e.Contains("b"))
	events := rec.events()
	require.Len(t, events, 1)
	assert.Equal(t, queue.EventQueueReordered, events[0].Type)
	assert.Len(t, events[0].NewOrder, 2)
	assertConsistent(t, e, tl)
}

func TestEngine_ResyncAdoptsUnknownItems(t *testing.T) {
	e, tl := newTestEngine(t)
	e.SetQueue(mk("a", "b"), 1, false, 0, nil)

	stranger := queue.NewItem(track.Track{ID: "zz"}, queue.SegmentPlayNext, queue.SourceAlbum, nil)
	require.NoError(t, tl.InsertAt(0, []*queue.Item{stranger}))
	e.ResyncFromEngine()

	items := e.Items()
	assert.Equal(t, []string{"zz", "a", "b"}, queue.IDs(items))
	assert.Equal(t, 2, e.CurrentIndex())
	assert.Equal(t, queue.SegmentMain, items[0].Segment)
	assert.Equal(t, queue.SourceUserAdded, items[0].Source)
	assert.Equal(t, "song a", items[1].Track.Name, "known items keep their payload")
	assertConsistent(t, e, tl)
}

func TestEngine_ResyncKeepsPlayNextTags(t *testing.T) {
	e, tl := newTestEngine(t)
	e.SetQueue(mk("a", "b", "c"), 0, false, 0, nil)
	e.PlayNext(mk("x", "y"), nil)

	e.ResyncFromEngine()

	items := e.Items()
	assert.Equal(t, []string{"a", "x", "y", "b", "c"}, queue.IDs(items))
	assert.Equal(t, queue.SegmentPlayNext, items[1].Segment)
	assert.Equal(t, queue.SegmentPlayNext, items[2].Segment)
	assert.Equal(t, 2, e.PlayNextCount())
	assertConsistent(t, e, tl)
}

func TestEngine_OnTrackChangedPublishesState(t *testing.T) {
	rec := &recorder{}
	e, _ := newTestEngine(t, WithPublisher(rec))
	e.SetQueue(mk("a", "b"), 0, false, 0, nil)
	rec.reset()

	e.OnTrackChanged("a")

	require.Len(t, rec.updates, 1)
	assert.Nil(t, rec.updates[0].Event)
	require.NotNil(t, rec.updates[0].Current)
	assert.Equal(t, "a", rec.updates[0].Current.ID)
	assert.Equal(t, []string{"a"}, e.History())
}
