package tracks

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestCoverFinder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustUpload(t, "u1", trackFile("c.mp3", "A", "B", "C"))
	id, blobID := trackID(t, f, "A", "B", "C")

	cover, err := f.covers.Cover(ctx, id)
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	if cover.Format != "image/png" || !bytes.Equal(cover.Data, []byte{1, 2, 3}) {
		t.Fatalf("unexpected cover: %+v", cover)
	}

	if _, err := f.covers.Cover(ctx, "missing"); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}

	if err := f.blobs.Delete(ctx, blobID); err != nil {
		t.Fatalf("delete blob: %v", err)
	}
	if _, err := f.covers.Cover(ctx, id); !errors.Is(err, ErrCoverNotFound) {
		t.Fatalf("expected ErrCoverNotFound, got %v", err)
	}
}

func TestCoverFinderTrackWithoutBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.hierarchy.Update(ctx, &Journal{}, parsed("A", "B", "C"), "u1", "c.mp3")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := f.covers.Cover(ctx, res.Track.ID); !errors.Is(err, ErrCoverNotFound) {
		t.Fatalf("expected ErrCoverNotFound, got %v", err)
	}
}
