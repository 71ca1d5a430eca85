// Package search answers phrase and id lookups over the catalog.
package search

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trackvault/internal/catalog"
	"trackvault/internal/store"
)

// MinPhraseLength is the shortest phrase, in characters, that is searched.
const MinPhraseLength = 3

var (
	// ErrPhraseTooShort indicates a phrase below MinPhraseLength.
	ErrPhraseTooShort = errors.New("search phrase must have at least 3 characters")
	// ErrInvalidID indicates an id that is not a UUID.
	ErrInvalidID = errors.New("invalid id")
	// ErrNotFound indicates no entity has the requested id.
	ErrNotFound = errors.New("entity not found")
)

// Result types.
const (
	TypeTrack  = "track"
	TypeAlbum  = "album"
	TypeArtist = "artist"
)

// Result is one typed search hit.
type Result struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Number     int             `json:"number,omitempty"`
	Duration   float64         `json:"duration,omitempty"`
	Year       int             `json:"year,omitempty"`
	Mimetype   string          `json:"mimetype,omitempty"`
	BlobID     *string         `json:"blobId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	FileID     string          `json:"fileId,omitempty"`
	AlbumName  string          `json:"albumName,omitempty"`
	ArtistName string          `json:"artistName,omitempty"`
	Tracks     []catalog.Track `json:"tracks,omitempty"`
	Albums     []catalog.Album `json:"albums,omitempty"`
}

// Store is the read side of the metadata store used by search.
type Store interface {
	Search(ctx context.Context, phrase string) (catalog.Matches, error)
	FindTrack(ctx context.Context, trackID string) (catalog.TrackRef, error)
	FindAlbum(ctx context.Context, albumID string) (catalog.AlbumRef, error)
	ArtistByID(ctx context.Context, id string) (catalog.Artist, error)
}

// Cache keeps phrase results between catalog changes.
type Cache interface {
	// Get looks phrase up. The returned Entry is bound to the catalog
	// generation current at lookup time.
	Get(ctx context.Context, phrase string) (Entry, error)
	// Set fills a missed entry. Results filed under a generation that has
	// since been invalidated are never served.
	Set(ctx context.Context, entry Entry, results []Result) error
	Invalidate(ctx context.Context) error
}

// Entry is the outcome of a cache lookup.
type Entry struct {
	Key     string
	Hit     bool
	Results []Result
}

// Service exposes search operations.
type Service struct {
	store Store
	cache Cache
	log   zerolog.Logger
}

// New constructs a search service. cache may be nil.
func New(s Store, cache Cache, log zerolog.Logger) *Service {
	return &Service{store: s, cache: cache, log: log}
}

// Search returns tracks, albums and artists whose names contain phrase.
func (s *Service) Search(ctx context.Context, phrase string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(phrase) < MinPhraseLength {
		return nil, ErrPhraseTooShort
	}

	var (
		entry     Entry
		cacheable bool
	)
	if s.cache != nil {
		e, err := s.cache.Get(ctx, phrase)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("phrase", phrase).Msg("search cache read failed")
		case e.Hit:
			return e.Results, nil
		default:
			entry, cacheable = e, true
		}
	}

	matches, err := s.store.Search(ctx, phrase)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", phrase, err)
	}

	results := make([]Result, 0, len(matches.Tracks)+len(matches.Albums)+len(matches.Artists))
	for _, ref := range matches.Tracks {
		results = append(results, trackResult(ref))
	}
	for _, ref := range matches.Albums {
		results = append(results, albumResult(ref))
	}
	for _, artist := range matches.Artists {
		results = append(results, artistResult(artist))
	}

	if cacheable {
		if err := s.cache.Set(ctx, entry, results); err != nil {
			s.log.Warn().Err(err).Str("phrase", phrase).Msg("search cache write failed")
		}
	}
	return results, nil
}

// ByID returns the track, album or artist with the given id, checked in
// that order.
func (s *Service) ByID(ctx context.Context, id string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Result{}, ErrInvalidID
	}

	trackRef, err := s.store.FindTrack(ctx, id)
	if err == nil {
		return trackResult(trackRef), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("find track %s: %w", id, err)
	}

	albumRef, err := s.store.FindAlbum(ctx, id)
	if err == nil {
		return albumResult(albumRef), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("find album %s: %w", id, err)
	}

	artist, err := s.store.ArtistByID(ctx, id)
	if err == nil {
		return artistResult(artist), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("find artist %s: %w", id, err)
	}
	return Result{}, ErrNotFound
}

// CatalogChanged drops cached results.
func (s *Service) CatalogChanged(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		s.log.Error().Err(err).Msg("invalidate search cache")
	}
}

func trackResult(ref catalog.TrackRef) Result {
	t := ref.Track
	return Result{
		Type:       TypeTrack,
		ID:         t.ID,
		Title:      t.Title,
		Number:     t.Number,
		Duration:   t.Duration,
		Year:       t.Year,
		Mimetype:   t.Mimetype,
		BlobID:     t.BlobID,
		UserID:     t.UserID,
		FileID:     t.FileID,
		AlbumName:  ref.Album.Name,
		ArtistName: ref.Artist.Name,
	}
}

func albumResult(ref catalog.AlbumRef) Result {
	return Result{
		Type:       TypeAlbum,
		ID:         ref.Album.ID,
		Title:      ref.Album.Name,
		Year:       ref.Album.Year,
		ArtistName: ref.Artist.Name,
		Tracks:     ref.Album.Tracks,
	}
}

func artistResult(a catalog.Artist) Result {
	return Result{
		Type:   TypeArtist,
		ID:     a.ID,
		Title:  a.Name,
		Albums: a.Albums,
	}
}
