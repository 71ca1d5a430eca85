package tracks

import (
	"context"
	"errors"
	"fmt"

	"trackvault/internal/blob"
	"trackvault/internal/catalog"
	"trackvault/internal/metadata"
	"trackvault/internal/store"
)

// CoverFinder reads the picture embedded in a track's audio.
type CoverFinder struct {
	store  Store
	blobs  blob.Store
	reader metadata.Reader
}

// NewCoverFinder wires a CoverFinder.
func NewCoverFinder(s Store, blobs blob.Store, reader metadata.Reader) *CoverFinder {
	return &CoverFinder{store: s, blobs: blobs, reader: reader}
}

// Cover returns the embedded picture of the track.
func (c *CoverFinder) Cover(ctx context.Context, trackID string) (catalog.Cover, error) {
	ref, err := c.store.FindTrack(ctx, trackID)
	if errors.Is(err, store.ErrNotFound) {
		return catalog.Cover{}, ErrTrackNotFound
	}
	if err != nil {
		return catalog.Cover{}, fmt.Errorf("%w: find track: %w", ErrStorage, err)
	}
	if !ref.Track.Playable() {
		return catalog.Cover{}, ErrCoverNotFound
	}

	rc, err := c.blobs.Open(ctx, *ref.Track.BlobID, 0, -1)
	if errors.Is(err, blob.ErrNotFound) {
		return catalog.Cover{}, ErrCoverNotFound
	}
	if err != nil {
		return catalog.Cover{}, fmt.Errorf("%w: open blob: %w", ErrStorage, err)
	}
	defer rc.Close()

	cover, err := c.reader.Cover(ctx, rc)
	if err != nil {
		return catalog.Cover{}, fmt.Errorf("%w: read cover: %w", ErrParse, err)
	}
	if cover == nil {
		return catalog.Cover{}, ErrCoverNotFound
	}
	return *cover, nil
}
