package tracks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trackvault/internal/catalog"
	"trackvault/internal/store"
)

// DuplicateTitleMessage is reported when the album already holds the title.
const DuplicateTitleMessage = "Track with specified title already exists!"

// Store describes the hierarchy persistence the track workflows rely on.
type Store interface {
	ArtistByName(ctx context.Context, name string) (catalog.Artist, error)
	ArtistByID(ctx context.Context, id string) (catalog.Artist, error)
	InsertArtist(ctx context.Context, artist catalog.Artist) error
	ReplaceArtist(ctx context.Context, artist catalog.Artist) error
	DeleteArtist(ctx context.Context, id string) error
	PullAlbum(ctx context.Context, artistID, albumID string) error
	PullTrack(ctx context.Context, artistID, albumID, trackID string) error
	SetTrackBlob(ctx context.Context, trackID string, blobID *string) error
	FindTrack(ctx context.Context, trackID string) (catalog.TrackRef, error)
}

// UpdateResult is the outcome of a hierarchy upsert. Updated is false when
// the title already existed, in which case nothing was written.
type UpdateResult struct {
	Updated bool
	Message string
	Artist  catalog.Artist
	Track   catalog.Track
}

// HierarchyUpdater inserts tracks into the artist -> album -> track tree.
type HierarchyUpdater struct {
	store Store
	queue *Queue
	log   zerolog.Logger
	newID func() string
}

// NewHierarchyUpdater wires an updater that serializes through queue.
func NewHierarchyUpdater(s Store, queue *Queue, log zerolog.Logger) *HierarchyUpdater {
	return &HierarchyUpdater{store: s, queue: queue, log: log, newID: uuid.NewString}
}

// Update adds pt under its artist and album, creating either when missing.
// The first entity created is recorded in j so Undo can remove it.
func (h *HierarchyUpdater) Update(ctx context.Context, j *Journal, pt catalog.ParsedTrack, owner, fileID string) (UpdateResult, error) {
	var res UpdateResult
	err := h.queue.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = h.update(ctx, j, pt, owner, fileID)
		return err
	})
	return res, err
}

func (h *HierarchyUpdater) update(ctx context.Context, j *Journal, pt catalog.ParsedTrack, owner, fileID string) (UpdateResult, error) {
	var step Step

	artist, err := h.store.ArtistByName(ctx, pt.ArtistName)
	switch {
	case errors.Is(err, store.ErrNotFound):
		artist = catalog.Artist{ID: h.newID(), Name: pt.ArtistName, Albums: []catalog.Album{}}
		if err := h.store.InsertArtist(ctx, artist); err != nil {
			return UpdateResult{}, fmt.Errorf("%w: insert artist: %w", ErrStorage, err)
		}
		step = Step{Kind: ArtistInserted, ArtistID: artist.ID}
	case err != nil:
		return UpdateResult{}, fmt.Errorf("%w: find artist: %w", ErrStorage, err)
	}

	albumIdx := artist.AlbumByName(pt.AlbumName)
	if albumIdx < 0 {
		artist.Albums = append(artist.Albums, catalog.Album{
			ID:     h.newID(),
			Name:   pt.AlbumName,
			Year:   pt.Year,
			Tracks: []catalog.Track{},
		})
		albumIdx = len(artist.Albums) - 1
		if step.Kind == 0 {
			step.Kind = AlbumInserted
		}
	}
	album := &artist.Albums[albumIdx]

	if album.HasTitle(pt.Title) {
		return UpdateResult{Updated: false, Message: DuplicateTitleMessage, Artist: artist}, nil
	}

	track := catalog.Track{
		ID:       h.newID(),
		Number:   pt.Number,
		Title:    pt.Title,
		Duration: pt.Duration,
		Year:     pt.Year,
		Mimetype: pt.Mimetype,
		UserID:   owner,
		FileID:   fileID,
	}
	album.Tracks = append(album.Tracks, track)
	if step.Kind == 0 {
		step.Kind = TrackInserted
	}
	step.ArtistID = artist.ID
	step.AlbumID = album.ID
	step.TrackID = track.ID

	if err := h.store.ReplaceArtist(ctx, artist); err != nil {
		// The freshly inserted artist document still has to go on rollback.
		if step.Kind == ArtistInserted {
			j.Record(step)
		}
		return UpdateResult{}, fmt.Errorf("%w: save artist: %w", ErrStorage, err)
	}
	j.Record(step)

	h.log.Debug().
		Str("artist_id", artist.ID).
		Str("album_id", album.ID).
		Str("track_id", track.ID).
		Stringer("step", step.Kind).
		Msg("track added to hierarchy")

	return UpdateResult{Updated: true, Artist: artist, Track: track}, nil
}

// Undo reverses a hierarchy step. Only the records the step created are
// removed: when other tracks or albums were added under the same artist or
// album in the meantime, the step falls back to pulling just its own album
// or track.
func (h *HierarchyUpdater) Undo(ctx context.Context, step Step) error {
	return h.queue.Do(ctx, func(ctx context.Context) error {
		return h.undo(ctx, step)
	})
}

func (h *HierarchyUpdater) undo(ctx context.Context, step Step) error {
	artist, err := h.store.ArtistByID(ctx, step.ArtistID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find artist: %w", err)
	}

	albumIdx := artist.AlbumIndex(step.AlbumID)
	if albumIdx < 0 {
		if step.Kind == ArtistInserted && len(artist.Albums) == 0 {
			return ignoreNotFound(h.store.DeleteArtist(ctx, artist.ID))
		}
		return nil
	}
	album := artist.Albums[albumIdx]

	remaining := 0
	for _, t := range album.Tracks {
		if t.ID != step.TrackID {
			remaining++
		}
	}
	hasTrack := remaining < len(album.Tracks)

	switch {
	case step.Kind == ArtistInserted && remaining == 0 && len(artist.Albums) == 1:
		return ignoreNotFound(h.store.DeleteArtist(ctx, artist.ID))
	case step.Kind != TrackInserted && remaining == 0:
		return ignoreNotFound(h.store.PullAlbum(ctx, artist.ID, album.ID))
	case hasTrack:
		return ignoreNotFound(h.store.PullTrack(ctx, artist.ID, album.ID, step.TrackID))
	}
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
