package tracks

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"trackvault/internal/blob"
	"trackvault/internal/catalog"
	"trackvault/internal/store"
)

// Removed names the highest level of the hierarchy a removal deleted.
type Removed string

const (
	RemovedTrack  Removed = "track"
	RemovedAlbum  Removed = "album"
	RemovedArtist Removed = "artist"
)

// Remover deletes tracks, cascading to the album and artist when the track
// was the last one holding them.
type Remover struct {
	store    Store
	blobs    blob.Store
	queue    *Queue
	notifier ChangeNotifier
	log      zerolog.Logger
}

// NewRemover wires a Remover. It must share its queue with the
// HierarchyUpdater. notifier may be nil.
func NewRemover(s Store, blobs blob.Store, queue *Queue, notifier ChangeNotifier, log zerolog.Logger) *Remover {
	return &Remover{store: s, blobs: blobs, queue: queue, notifier: notifier, log: log}
}

// Remove deletes the track if user owns it or is an admin.
func (r *Remover) Remove(ctx context.Context, trackID string, user catalog.User) (Removed, error) {
	var (
		removed Removed
		blobID  *string
	)
	err := r.queue.Do(ctx, func(ctx context.Context) error {
		ref, err := r.store.FindTrack(ctx, trackID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrTrackNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: find track: %w", ErrStorage, err)
		}
		if !user.IsAdmin && ref.Track.UserID != user.ID {
			return ErrForbidden
		}

		switch {
		case len(ref.Album.Tracks) > 1:
			removed = RemovedTrack
			err = r.store.PullTrack(ctx, ref.Artist.ID, ref.Album.ID, trackID)
		case len(ref.Artist.Albums) > 1:
			removed = RemovedAlbum
			err = r.store.PullAlbum(ctx, ref.Artist.ID, ref.Album.ID)
		default:
			removed = RemovedArtist
			err = r.store.DeleteArtist(ctx, ref.Artist.ID)
		}
		if err != nil {
			return fmt.Errorf("%w: remove %s: %w", ErrStorage, removed, err)
		}
		blobID = ref.Track.BlobID
		return nil
	})
	if err != nil {
		return "", err
	}

	if blobID != nil {
		if err := r.blobs.Delete(ctx, *blobID); err != nil && !errors.Is(err, blob.ErrNotFound) {
			r.log.Error().Err(err).Str("blob_id", *blobID).Msg("delete blob of removed track")
		}
	}
	if r.notifier != nil {
		r.notifier.CatalogChanged(ctx)
	}

	r.log.Info().
		Str("track_id", trackID).
		Str("user_id", user.ID).
		Str("removed", string(removed)).
		Msg("track removed")
	return removed, nil
}
