package tracks

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"trackvault/internal/catalog"
	"trackvault/internal/metadata"
	"trackvault/internal/store"
)

const (
	MissingFieldsMessage = "Not all required track fields are provided (track number, title, duration, album name, artist name, year and mimetype)."
	MissingCoverMessage  = "No album cover provided."
	TrackExistsMessage   = "Track already exists!"
)

// Verdict is the outcome of a validation check.
type Verdict struct {
	OK      bool
	Message string
}

// ValidateFields converts raw tags into a candidate track and checks that
// every required field is present, that year and number are numeric and
// that a cover picture is embedded. It never touches storage.
func ValidateFields(tags metadata.Tags, mimetype string) (catalog.ParsedTrack, Verdict) {
	number, numberOK := leadingInt(tags.TrackNumber)
	year, yearOK := leadingInt(tags.Year)

	pt := catalog.ParsedTrack{
		ArtistName: tags.Artist,
		AlbumName:  tags.Album,
		Title:      tags.Title,
		Number:     number,
		Duration:   tags.Duration.Seconds(),
		Year:       year,
		Mimetype:   mimetype,
		Cover:      tags.Cover,
	}

	complete := numberOK && yearOK &&
		pt.Title != "" &&
		pt.AlbumName != "" &&
		pt.ArtistName != "" &&
		pt.Duration > 0 &&
		pt.Mimetype != ""
	if !complete {
		return pt, Verdict{Message: MissingFieldsMessage}
	}
	if pt.Cover == nil || len(pt.Cover.Data) == 0 {
		return pt, Verdict{Message: MissingCoverMessage}
	}
	return pt, Verdict{OK: true}
}

// leadingInt parses the digits at the start of s, so "4/12" yields 4 and
// "2001-05-01" yields 2001. Zero is not a valid value.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ArtistFinder is the read-only lookup used by PresenceValidator.
type ArtistFinder interface {
	ArtistByName(ctx context.Context, name string) (catalog.Artist, error)
}

// PresenceValidator reports whether a title already exists under an
// artist's album. Names are matched exactly.
type PresenceValidator struct {
	store ArtistFinder
}

// NewPresenceValidator wires the validator to the hierarchy store.
func NewPresenceValidator(s ArtistFinder) *PresenceValidator {
	return &PresenceValidator{store: s}
}

// Exists walks artist, album and title in that order.
func (p *PresenceValidator) Exists(ctx context.Context, artistName, albumName, title string) (bool, error) {
	artist, err := p.store.ArtistByName(ctx, artistName)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	i := artist.AlbumByName(albumName)
	if i < 0 {
		return false, nil
	}
	return artist.Albums[i].HasTitle(title), nil
}
