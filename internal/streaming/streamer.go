// Package streaming serves byte windows of stored tracks.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"trackvault/internal/blob"
	"trackvault/internal/catalog"
	"trackvault/internal/store"
)

// ErrNotFound indicates the track or its blob does not exist.
var ErrNotFound = errors.New("track not found")

// TrackFinder locates a track anywhere in the hierarchy.
type TrackFinder interface {
	FindTrack(ctx context.Context, trackID string) (catalog.TrackRef, error)
}

// Streamer opens range windows over track blobs.
type Streamer struct {
	tracks TrackFinder
	blobs  blob.Store
	log    zerolog.Logger
}

// NewStreamer wires a Streamer.
func NewStreamer(tracks TrackFinder, blobs blob.Store, log zerolog.Logger) *Streamer {
	return &Streamer{tracks: tracks, blobs: blobs, log: log}
}

// Window is an opened byte range ready to be written to a client.
type Window struct {
	Range       Range
	Size        int64
	ContentType string
	// Digest is the content hash recorded when the blob was committed.
	Digest string
	Body   io.ReadCloser
}

// Open resolves rangeHeader against the track's blob and opens the
// matching window. The caller must close Body, usually through Serve.
func (s *Streamer) Open(ctx context.Context, trackID, rangeHeader string) (*Window, error) {
	ref, err := s.tracks.FindTrack(ctx, trackID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find track: %w", err)
	}
	if !ref.Track.Playable() {
		return nil, ErrNotFound
	}
	blobID := *ref.Track.BlobID

	info, err := s.blobs.Stat(ctx, blobID)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat blob: %w", err)
	}

	r, err := ParseRange(rangeHeader, info.Length)
	if err != nil {
		return nil, err
	}

	body, err := s.blobs.Open(ctx, blobID, r.Start, r.Length())
	if errors.Is(err, blob.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}

	s.log.Debug().
		Str("track_id", trackID).
		Str("blob_id", blobID).
		Int64("start", r.Start).
		Int64("end", r.End).
		Int64("size", info.Length).
		Msg("stream window opened")

	mimetype := ref.Track.Mimetype
	if mimetype == "" {
		mimetype = info.Meta.Mimetype
	}
	return &Window{
		Range:       r,
		Size:        info.Length,
		ContentType: ContentType(mimetype),
		Digest:      info.Meta.Digest,
		Body:        body,
	}, nil
}

// Serve writes the window as a 206 response and closes Body.
func (w *Window) Serve(rw http.ResponseWriter) error {
	defer w.Body.Close()

	h := rw.Header()
	h.Set("Content-Range", w.Range.ContentRange(w.Size))
	h.Set("Content-Length", strconv.FormatInt(w.Range.Length(), 10))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", "no-cache")
	h.Set("Content-Type", w.ContentType)
	if w.Digest != "" {
		h.Set("ETag", strconv.Quote(w.Digest))
	}
	rw.WriteHeader(http.StatusPartialContent)

	if _, err := io.Copy(rw, w.Body); err != nil {
		return fmt.Errorf("copy window: %w", err)
	}
	return nil
}

// ContentType maps a stored mimetype to the type advertised to players.
func ContentType(mimetype string) string {
	switch mimetype {
	case "audio/mpeg", "audio/mp3":
		return "audio/mp3"
	case "audio/flac", "audio/x-flac":
		return "audio/flac"
	case "":
		return "application/octet-stream"
	default:
		return mimetype
	}
}
