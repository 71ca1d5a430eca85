// Package blob stores audio payloads as chunked, id-addressed objects.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no committed blob has the requested id.
var ErrNotFound = errors.New("blob not found")

// Meta is the descriptive tag saved alongside a blob.
type Meta struct {
	ArtistName string `bson:"artistName" json:"artistName"`
	Title      string `bson:"title" json:"title"`
	AlbumName  string `bson:"albumName" json:"albumName"`
	Year       int    `bson:"year" json:"year"`
	Mimetype   string `bson:"mimeType" json:"mimeType"`
	Digest     string `bson:"digest" json:"digest"`
}

// Info describes a committed blob.
type Info struct {
	ID     string
	Length int64
	Meta   Meta
}

// Writer stages bytes for a new blob. Nothing is visible to readers until
// Commit returns. Abort discards everything written so far.
type Writer interface {
	io.Writer
	Commit(ctx context.Context, meta Meta) error
	Abort(ctx context.Context) error
}

// Store is the chunked binary store used for track audio.
type Store interface {
	// Create opens a writer for a new blob with the given id.
	Create(ctx context.Context, id string) (Writer, error)
	// Open returns length bytes starting at offset. A negative length reads
	// to the end of the blob.
	Open(ctx context.Context, id string, offset, length int64) (io.ReadCloser, error)
	Stat(ctx context.Context, id string) (Info, error)
	// Delete removes a committed blob. Deleting a missing blob returns
	// ErrNotFound.
	Delete(ctx context.Context, id string) error
}
