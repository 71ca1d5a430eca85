// Package metadata extracts track tags from uploaded audio.
package metadata

import (
	"context"
	"io"
	"time"

	"trackvault/internal/catalog"
)

// Tags is the raw, unvalidated result of reading an audio file.
type Tags struct {
	Artist      string
	Album       string
	Title       string
	TrackNumber string
	Year        string
	Duration    time.Duration
	Cover       *catalog.Cover
}

// Reader consumes an audio stream and reports its tags.
type Reader interface {
	// Read consumes src to the end.
	Read(ctx context.Context, src io.Reader) (Tags, error)
	// Cover reads only as much of src as needed to find the embedded
	// picture. It returns nil when the file has none.
	Cover(ctx context.Context, src io.Reader) (*catalog.Cover, error)
}
