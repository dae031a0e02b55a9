package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playqueue/internal/domain/track"
)

func TestSourceForContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      *track.PlayContext
		expected Source
	}{
		{name: "no context", ctx: nil, expected: SourceUserAdded},
		{name: "album", ctx: &track.PlayContext{Type: track.ContextAlbum}, expected: SourceAlbum},
		{name: "playlist", ctx: &track.PlayContext{Type: track.ContextPlaylist}, expected: SourcePlaylist},
		{name: "liked songs", ctx: &track.PlayContext{Type: track.ContextLikedSongs}, expected: SourceLiked},
		{name: "search", ctx: &track.PlayContext{Type: track.ContextSearch}, expected: SourceUserAdded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SourceForContext(tt.ctx))
		})
	}
}

func TestParseRepeatMode(t *testing.T) {
	tests := []struct {
		input    string
		expected RepeatMode
		wantErr  bool
	}{
		{input: "none", expected: RepeatNone},
		{input: "off", expected: RepeatNone},
		{input: " ALL ", expected: RepeatAll},
		{input: "one", expected: RepeatOne},
		{input: "shuffle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRepeatMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) RepeatMode {
	t.Helper()
	m, err := ParseRepeatMode(s)
	require.NoError(t, err)
	return m
}

func TestNewItem(t *testing.T) {
	ctx := &track.PlayContext{Type: track.ContextAlbum, ID: "album-1"}
	a := NewItem(track.Track{ID: "t1"}, SegmentPlayNext, SourceAlbum, ctx)
	b := NewItem(track.Track{ID: "t1"}, SegmentPlayNext, SourceAlbum, ctx)

	assert.Equal(t, "t1", a.ID)
	assert.NotEmpty(t, a.UID)
	assert.NotEqual(t, a.UID, b.UID, "each insertion gets its own tag")
	assert.Equal(t, SegmentPlayNext, a.Segment)
	assert.False(t, a.AddedAt.IsZero())
	assert.Same(t, ctx, a.Context)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "item_added", EventItemAdded.String())
	assert.Equal(t, "queue_shuffled", EventQueueShuffled.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
