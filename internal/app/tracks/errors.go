package tracks

import (
	"errors"

	"trackvault/internal/catalog"
)

var (
	// ErrMalformedUpload signals a multipart body that could not be read.
	ErrMalformedUpload = errors.New("malformed upload")
	// ErrNoFiles indicates the request carried no file parts.
	ErrNoFiles = errors.New("no files provided")
	// ErrInvalidTrack indicates required metadata is missing or malformed.
	ErrInvalidTrack = errors.New("invalid track")
	// ErrParse indicates the audio metadata could not be read.
	ErrParse = errors.New("unable to read track metadata")
	// ErrTrackExists signals a title already present under the same artist
	// and album.
	ErrTrackExists = errors.New("track already exists")
	// ErrStorage wraps unexpected metadata or blob store failures.
	ErrStorage = errors.New("storage failure")
	// ErrTrackNotFound indicates no track has the requested id.
	ErrTrackNotFound = errors.New("track not found")
	// ErrForbidden indicates the caller neither owns the track nor is an admin.
	ErrForbidden = errors.New("track not owned by user")
	// ErrCoverNotFound indicates the track has no playable blob or no
	// embedded picture.
	ErrCoverNotFound = errors.New("cover not found")
)

// RejectionError reports a track refused by validation or by the hierarchy
// update, together with the candidate that was refused.
type RejectionError struct {
	Err     error
	Message string
	Track   *catalog.ParsedTrack
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(err error, message string, track *catalog.ParsedTrack) *RejectionError {
	return &RejectionError{Err: err, Message: message, Track: track}
}
