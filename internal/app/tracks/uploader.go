package tracks

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"trackvault/internal/blob"
	"trackvault/internal/catalog"
	"trackvault/internal/store"
)

// BackrefStore writes the blob reference onto a track.
type BackrefStore interface {
	SetTrackBlob(ctx context.Context, trackID string, blobID *string) error
}

// BlobUploader persists audio bytes and links them to their track.
//
// Bytes are staged while the metadata is still being parsed, because both
// readers are fed from the same source in lockstep. The staged blob becomes
// visible only through Upload; Discard throws it away.
//
// The back-reference lives inside the artist document, which the hierarchy
// updater rewrites whole, so it is written through the same queue.
type BlobUploader struct {
	blobs blob.Store
	store BackrefStore
	queue *Queue
	log   zerolog.Logger
	newID func() string
}

// NewBlobUploader wires an uploader that links blobs through queue.
func NewBlobUploader(blobs blob.Store, s BackrefStore, queue *Queue, log zerolog.Logger) *BlobUploader {
	return &BlobUploader{blobs: blobs, store: s, queue: queue, log: log, newID: uuid.NewString}
}

func (u *BlobUploader) setBackref(ctx context.Context, trackID string, blobID *string) error {
	return u.queue.Do(ctx, func(ctx context.Context) error {
		return u.store.SetTrackBlob(ctx, trackID, blobID)
	})
}

// Staging is an in-progress blob write.
type Staging struct {
	ID     string
	src    io.ReadCloser
	w      blob.Writer
	done   chan struct{}
	size   int64
	digest string
	err    error
}

// Stage starts copying src into a new uncommitted blob. src is closed when
// the copy ends.
func (u *BlobUploader) Stage(ctx context.Context, src io.ReadCloser) *Staging {
	st := &Staging{ID: u.newID(), src: src, done: make(chan struct{})}
	go func() {
		defer close(st.done)
		defer src.Close()

		w, err := u.blobs.Create(ctx, st.ID)
		if err != nil {
			st.err = fmt.Errorf("%w: create blob: %w", ErrStorage, err)
			return
		}

		h, err := blake2b.New256(nil)
		if err != nil {
			_ = w.Abort(ctx)
			st.err = fmt.Errorf("%w: digest: %w", ErrStorage, err)
			return
		}

		n, err := io.Copy(io.MultiWriter(w, h), src)
		if err != nil {
			if abortErr := w.Abort(context.WithoutCancel(ctx)); abortErr != nil {
				u.log.Error().Err(abortErr).Str("blob_id", st.ID).Msg("abort partial blob")
			}
			st.err = fmt.Errorf("%w: write blob: %w", ErrStorage, err)
			return
		}

		st.w = w
		st.size = n
		st.digest = hex.EncodeToString(h.Sum(nil))
	}()
	return st
}

// Upload waits for staging to finish, commits the blob with the track's
// tags and writes its id onto the track. Both effects are recorded in j.
func (u *BlobUploader) Upload(ctx context.Context, j *Journal, st *Staging, pt catalog.ParsedTrack, track catalog.Track) (catalog.Track, error) {
	<-st.done
	if st.err != nil {
		return catalog.Track{}, st.err
	}

	meta := blob.Meta{
		ArtistName: pt.ArtistName,
		Title:      pt.Title,
		AlbumName:  pt.AlbumName,
		Year:       pt.Year,
		Mimetype:   pt.Mimetype,
		Digest:     st.digest,
	}
	if err := st.w.Commit(ctx, meta); err != nil {
		_ = st.w.Abort(context.WithoutCancel(ctx))
		return catalog.Track{}, fmt.Errorf("%w: commit blob: %w", ErrStorage, err)
	}
	j.Record(Step{Kind: BlobCommitted, TrackID: track.ID, BlobID: st.ID})

	blobID := st.ID
	if err := u.setBackref(ctx, track.ID, &blobID); err != nil {
		return catalog.Track{}, fmt.Errorf("%w: link blob: %w", ErrStorage, err)
	}
	j.Record(Step{Kind: BackrefWritten, TrackID: track.ID, BlobID: st.ID})

	u.log.Debug().
		Str("blob_id", st.ID).
		Str("track_id", track.ID).
		Int64("bytes", st.size).
		Msg("blob committed")

	track.BlobID = &blobID
	return track, nil
}

// Discard stops staging and removes whatever was written.
func (u *BlobUploader) Discard(ctx context.Context, st *Staging) {
	_ = st.src.Close()
	<-st.done
	if st.err != nil {
		return
	}
	if err := st.w.Abort(context.WithoutCancel(ctx)); err != nil {
		u.log.Error().Err(err).Str("blob_id", st.ID).Msg("discard staged blob")
	}
}

// Undo reverses a BlobCommitted or BackrefWritten step. Missing records are
// not an error.
func (u *BlobUploader) Undo(ctx context.Context, step Step) error {
	switch step.Kind {
	case BackrefWritten:
		err := u.setBackref(ctx, step.TrackID, nil)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("clear blob reference: %w", err)
		}
	case BlobCommitted:
		err := u.blobs.Delete(ctx, step.BlobID)
		if err != nil && !errors.Is(err, blob.ErrNotFound) {
			return fmt.Errorf("delete blob: %w", err)
		}
	default:
		return fmt.Errorf("blob uploader cannot undo %s", step.Kind)
	}
	return nil
}
