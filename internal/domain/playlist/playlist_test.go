package playlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playqueue/internal/domain/track"
)

func TestPlaylist_TrackIDs(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []track.Track
		expected []string
	}{
		{
			name:     "empty playlist",
			tracks:   []track.Track{},
			expected: []string{},
		},
		{
			name: "single track",
			tracks: []track.Track{
				{ID: "track-1"},
			},
			expected: []string{"track-1"},
		},
		{
			name: "multiple tracks",
			tracks: []track.Track{
				{ID: "track-1"},
				{ID: "track-2"},
				{ID: "track-3"},
			},
			expected: []string{"track-1", "track-2", "track-3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{
				ID:     "playlist-1",
				Tracks: tt.tracks,
			}

			result := p.TrackIDs()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestPlaylist_TotalDuration(t *testing.T) {
	p := &Playlist{
		ID: "playlist-1",
		Tracks: []track.Track{
			{ID: "track-1", Duration: 2 * time.Minute},
			{ID: "track-2", Duration: 3*time.Minute + 30*time.Second},
			{ID: "track-3"}, // unknown duration
		},
	}

	assert.Equal(t, 5*time.Minute+30*time.Second, p.TotalDuration())
	assert.Zero(t, (&Playlist{}).TotalDuration())
}

func TestPlaylist_Context(t *testing.T) {
	p := &Playlist{
		ID:          "playlist-123",
		Name:        "My Awesome Playlist",
		Description: "A test playlist",
		URL:         "https://open.spotify.com/playlist/playlist-123",
		Tracks: []track.Track{
			{ID: "track-1", Name: "Song 1"},
			{ID: "track-2", Name: "Song 2"},
		},
	}

	ctx := p.Context()
	require.NotNil(t, ctx)
	assert.Equal(t, track.ContextPlaylist, ctx.Type)
	assert.Equal(t, "playlist-123", ctx.ID)
	assert.Equal(t, "My Awesome Playlist", ctx.Name)

	meta, err := MetadataOf(ctx)
	require.NoError(t, err)
	assert.Equal(t, Metadata{URL: p.URL, Description: "A test playlist", TrackCount: 2}, meta)
}

func TestMetadataOf_RejectsOtherContexts(t *testing.T) {
	_, err := MetadataOf(nil)
	assert.Error(t, err)

	_, err = MetadataOf(&track.PlayContext{Type: track.ContextAlbum, ID: "album-1"})
	assert.Error(t, err)

	_, err = MetadataOf(&track.PlayContext{
		Type:     track.ContextPlaylist,
		Metadata: map[string]any{"track_count": "many"},
	})
	assert.Error(t, err)
}
