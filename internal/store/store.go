// Package store persists the artist hierarchy and user records.
package store

import (
	"context"
	"errors"
	"regexp"

	"trackvault/internal/catalog"
)

var (
	// ErrNotFound signals that no document matched.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a unique constraint was violated.
	ErrConflict = errors.New("already exists")
)

// MetadataStore holds the artist documents with their embedded albums and
// tracks.
type MetadataStore interface {
	ArtistByName(ctx context.Context, name string) (catalog.Artist, error)
	ArtistByID(ctx context.Context, id string) (catalog.Artist, error)
	InsertArtist(ctx context.Context, artist catalog.Artist) error
	// ReplaceArtist overwrites the stored document with the same id.
	ReplaceArtist(ctx context.Context, artist catalog.Artist) error
	DeleteArtist(ctx context.Context, id string) error
	PullAlbum(ctx context.Context, artistID, albumID string) error
	PullTrack(ctx context.Context, artistID, albumID, trackID string) error
	// SetTrackBlob writes the blob reference onto the track with the given id,
	// wherever it lives. A nil blobID clears the reference.
	SetTrackBlob(ctx context.Context, trackID string, blobID *string) error
	FindTrack(ctx context.Context, trackID string) (catalog.TrackRef, error)
	FindAlbum(ctx context.Context, albumID string) (catalog.AlbumRef, error)
	// Search matches artist names, album names and track titles that contain
	// phrase, ignoring case.
	Search(ctx context.Context, phrase string) (catalog.Matches, error)
}

// UserRepository stores authenticated users.
type UserRepository interface {
	// EnsureUser inserts u unless a user with the same id exists, and returns
	// the stored record either way.
	EnsureUser(ctx context.Context, u catalog.User) (catalog.User, error)
	UserByID(ctx context.Context, id string) (catalog.User, error)
}

func phrasePattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(phrase))
}

// collectMatches walks artists and keeps every entity whose name matches re.
// Results are grouped tracks first, then albums, then artists.
func collectMatches(artists []catalog.Artist, re *regexp.Regexp) catalog.Matches {
	var m catalog.Matches
	for _, artist := range artists {
		for _, album := range artist.Albums {
			for _, track := range album.Tracks {
				if re.MatchString(track.Title) {
					m.Tracks = append(m.Tracks, catalog.TrackRef{Artist: artist, Album: album, Track: track})
				}
			}
		}
	}
	for _, artist := range artists {
		for _, album := range artist.Albums {
			if re.MatchString(album.Name) {
				m.Albums = append(m.Albums, catalog.AlbumRef{Artist: artist, Album: album})
			}
		}
	}
	for _, artist := range artists {
		if re.MatchString(artist.Name) {
			m.Artists = append(m.Artists, artist)
		}
	}
	return m
}
