// Package track provides the Track domain entity and the context it plays in.
package track

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// Track represents a resolved, playable track.
type Track struct {
	ID          string        // Stable media ID
	Name        string        // Track name
	Artists     []string      // Artist names, main artist first
	Album       string        // Album name
	AlbumArtURL string        // Album art URL
	Duration    time.Duration // Track duration (zero if unknown)
	URL         string        // Playable or shareable URL
}

// PrimaryArtist returns the main artist, or "" when the track carries no artist metadata.
func (t *Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return strings.TrimSpace(t.Artists[0])
}

// SameArtist reports whether both tracks share the same main artist.
// Tracks without artist metadata never match.
func (t *Track) SameArtist(other *Track) bool {
	a, b := t.PrimaryArtist(), other.PrimaryArtist()
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

// ContextType describes why a run of tracks is playing.
type ContextType string

const (
	ContextAlbum      ContextType = "ALBUM"
	ContextPlaylist   ContextType = "PLAYLIST"
	ContextArtist     ContextType = "ARTIST"
	ContextGenre      ContextType = "GENRE"
	ContextSearch     ContextType = "SEARCH"
	ContextLikedSongs ContextType = "LIKED_SONGS"
	ContextDiscover   ContextType = "DISCOVER"
)

// PlayContext describes the source of a run of queued tracks.
// It is treated as immutable once attached to queued items; use Clone
// before handing a context to code that may modify it.
type PlayContext struct {
	Type     ContextType
	ID       string
	Name     string
	Metadata map[string]any
}

// Clone returns a deep-enough copy (the metadata map is copied, values are shared).
func (c *PlayContext) Clone() *PlayContext {
	if c == nil {
		return nil
	}
	out := *c
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// DecodeMetadata decodes the metadata bag into out, which must be a pointer
// to a struct tagged with `mapstructure`.
func (c *PlayContext) DecodeMetadata(out any) error {
	if c == nil || len(c.Metadata) == 0 {
		return nil
	}
	if err := mapstructure.Decode(c.Metadata, out); err != nil {
		return errors.Wrapf(err, "failed to decode metadata of context %s", c.ID)
	}
	return nil
}
