// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/playqueue/internal/domain/track"
)

// Playlist represents a resolved playlist.
type Playlist struct {
	ID          string        // Playlist ID
	Name        string        // Playlist name
	Description string        // Playlist description
	URL         string        // Shareable URL
	Tracks      []track.Track // Tracks in the playlist
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the total duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

// Metadata is the metadata bag of a playlist play context.
type Metadata struct {
	URL         string `mapstructure:"url"`
	Description string `mapstructure:"description"`
	TrackCount  int    `mapstructure:"track_count"`
}

// Context returns the play context for queueing this playlist.
func (p *Playlist) Context() *track.PlayContext {
	return &track.PlayContext{
		Type: track.ContextPlaylist,
		ID:   p.ID,
		Name: p.Name,
		Metadata: map[string]any{
			"url":         p.URL,
			"description": p.Description,
			"track_count": len(p.Tracks),
		},
	}
}

// MetadataOf decodes the metadata of a playlist play context.
func MetadataOf(ctx *track.PlayContext) (Metadata, error) {
	var meta Metadata
	if ctx == nil || ctx.Type != track.ContextPlaylist {
		return meta, errors.New("not a playlist context")
	}
	if err := ctx.DecodeMetadata(&meta); err != nil {
		return meta, err
	}
	return meta, nil
}
