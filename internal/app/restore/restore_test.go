package restore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playqueue/internal/app/engine"
	"github.com/osa030/playqueue/internal/app/playback"
	"github.com/osa030/playqueue/internal/domain/queue"
	"github.com/osa030/playqueue/internal/domain/track"
)

type fakeStore struct {
	snap *queue.Snapshot
	err  error
}

func (s *fakeStore) Save(_ context.Context, snap queue.Snapshot) error {
	s.snap = &snap
	return nil
}

func (s *fakeStore) Load(_ context.Context) (*queue.Snapshot, error) {
	return s.snap, s.err
}

type fakeResolver struct {
	known map[string]track.Track
	err   error
	asked []string
}

func (r *fakeResolver) GetTracks(_ context.Context, ids []string) ([]track.Track, error) {
	r.asked = append(r.asked, ids...)
	if r.err != nil {
		return nil, r.err
	}
	var out []track.Track
	for _, id := range ids {
		if t, ok := r.known[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func tracks(ids ...string) []track.Track {
	out := make([]track.Track, len(ids))
	for i, id := range ids {
		out[i] = track.Track{ID: id, Name: "song " + id}
	}
	return out
}

func newEngine() *engine.Engine {
	return engine.New(playback.NewTimeline(playback.Config{}), engine.DefaultConfig())
}

func segments(items []queue.Item) map[string]queue.Segment {
	out := make(map[string]queue.Segment, len(items))
	for _, it := range items {
		out[it.ID] = it.Segment
	}
	return out
}

func TestRestorer_NothingStored(t *testing.T) {
	r := New(&fakeStore{}, nil)
	_, err := r.Restore(context.Background(), newEngine(), nil, nil)
	assert.ErrorIs(t, err, ErrNothingStored)
}

func TestRestorer_StoreError(t *testing.T) {
	r := New(&fakeStore{err: errors.New("disk on fire")}, nil)
	_, err := r.Restore(context.Background(), newEngine(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load stored queue")
}

func TestRestorer_WithBase(t *testing.T) {
	store := &fakeStore{snap: &queue.Snapshot{
		PlayNextIDs:      []string{"p1", "p2"},
		UserQueueIDs:     []string{"u1"},
		CurrentMainIndex: 1,
		PlayNextCounter:  2,
	}}
	resolver := &fakeResolver{known: map[string]track.Track{
		"p1": {ID: "p1", Name: "next one"},
		"u1": {ID: "u1", Name: "mine"},
	}}
	eng := newEngine()

	res, err := New(store, resolver).Restore(context.Background(), eng, tracks("b1", "b2", "b3"), nil)
	require.NoError(t, err)
	assert.Equal(t, Result{PlayNext: 1, UserQueue: 1, Skipped: 1}, res)
	assert.Equal(t, []string{"p1", "p2", "u1"}, resolver.asked)

	items := eng.Items()
	assert.Equal(t, []string{"b1", "b2", "p1", "b3", "u1"}, queue.IDs(items))
	assert.Equal(t, 1, eng.CurrentIndex())
	assert.Equal(t, "next one", items[2].Track.Name)

	seg := segments(items)
	assert.Equal(t, queue.SegmentPlayNext, seg["p1"])
	assert.Equal(t, queue.SegmentUserQueue, seg["u1"])
	assert.Equal(t, queue.SegmentMain, seg["b3"])
}

func TestRestorer_BaseIndexClamped(t *testing.T) {
	store := &fakeStore{snap: &queue.Snapshot{CurrentMainIndex: 10}}
	eng := newEngine()

	_, err := New(store, nil).Restore(context.Background(), eng, tracks("b1", "b2"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.CurrentIndex())
}

func TestRestorer_ResumesAfterPlayedNextItems(t *testing.T) {
	tl := playback.NewTimeline(playback.Config{})
	defer tl.Close()
	played := engine.New(tl, engine.DefaultConfig())
	defer played.Close()

	played.SetQueue(tracks("a", "b", "c", "d"), 0, false, 0, nil)
	played.PlayNext(tracks("x"), nil)
	for range 2 {
		require.NoError(t, tl.Skip())
		played.SyncCurrentFromEngine()
	}
	cur, ok := played.Current()
	require.True(t, ok)
	require.Equal(t, "b", cur.ID)

	snap := played.Snapshot()
	assert.Equal(t, 1, snap.CurrentMainIndex)

	eng := newEngine()
	_, err := New(&fakeStore{snap: &snap}, nil).Restore(context.Background(), eng, tracks("a", "b", "c", "d"), nil)
	require.NoError(t, err)

	restored, ok := eng.Current()
	require.True(t, ok)
	assert.Equal(t, "b", restored.ID)
}

func TestRestorer_WithoutBase(t *testing.T) {
	store := &fakeStore{snap: &queue.Snapshot{
		PlayNextIDs:  []string{"p1"},
		UserQueueIDs: []string{"u1", "u2"},
	}}
	eng := newEngine()
	eng.SetQueue(tracks("old1", "old2"), 0, false, 0, nil)

	res, err := New(store, nil).Restore(context.Background(), eng, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.PlayNext+res.UserQueue)

	items := eng.Items()
	assert.Equal(t, []string{"p1", "u1", "u2"}, queue.IDs(items))
	assert.Equal(t, 0, eng.CurrentIndex())
	assert.False(t, eng.Contains("old1"))
}

func TestRestorer_ResolverFailureFallsBackToIDs(t *testing.T) {
	store := &fakeStore{snap: &queue.Snapshot{UserQueueIDs: []string{"u1"}}}
	resolver := &fakeResolver{err: errors.New("503 Service Unavailable")}
	eng := newEngine()

	res, err := New(store, resolver).Restore(context.Background(), eng, tracks("b1"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UserQueue)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, []string{"b1", "u1"}, queue.IDs(eng.Items()))
}
