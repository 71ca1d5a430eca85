package metadata

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2"

	"trackvault/internal/catalog"
)

// ID3Reader reads ID3v2 tags and estimates duration from the MPEG stream
// when the tag carries no TLEN frame.
type ID3Reader struct{}

// NewID3Reader returns a Reader for MP3 uploads.
func NewID3Reader() *ID3Reader {
	return &ID3Reader{}
}

func (r *ID3Reader) Read(ctx context.Context, src io.Reader) (Tags, error) {
	if err := ctx.Err(); err != nil {
		return Tags{}, err
	}
	br := bufio.NewReaderSize(src, 64*1024)

	tag, err := id3v2.ParseReader(br, id3v2.Options{Parse: true})
	if err != nil {
		return Tags{}, fmt.Errorf("parse id3 tag: %w", err)
	}

	t := Tags{
		Artist:      clean(tag.Artist()),
		Album:       clean(tag.Album()),
		Title:       clean(tag.Title()),
		Year:        clean(tag.Year()),
		TrackNumber: clean(tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text),
		Cover:       firstPicture(tag),
	}
	if ms, err := strconv.ParseInt(clean(tag.GetTextFrame(tag.CommonID("Length")).Text), 10, 64); err == nil && ms > 0 {
		t.Duration = time.Duration(ms) * time.Millisecond
	}

	audioBytes, bitrate, err := scanAudio(br)
	if err != nil {
		return Tags{}, fmt.Errorf("read audio stream: %w", err)
	}
	if t.Duration == 0 && bitrate > 0 {
		t.Duration = time.Duration(audioBytes * 8 * int64(time.Second) / int64(bitrate))
	}
	return t, nil
}

func (r *ID3Reader) Cover(ctx context.Context, src io.Reader) (*catalog.Cover, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tag, err := id3v2.ParseReader(src, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("parse id3 tag: %w", err)
	}
	return firstPicture(tag), nil
}

func firstPicture(tag *id3v2.Tag) *catalog.Cover {
	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		return &catalog.Cover{Format: pic.MimeType, Data: pic.Picture}
	}
	return nil
}

func clean(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

// scanAudio finds the first MPEG frame header and counts the bytes from
// there to the end of the stream. The bitrate is in bits per second, zero
// when no frame was found.
func scanAudio(br *bufio.Reader) (int64, int, error) {
	var prev byte
	for {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return 0, 0, nil
		}
		if err != nil {
			return 0, 0, err
		}
		if prev == 0xFF && b&0xE0 == 0xE0 {
			next, err := br.Peek(1)
			if err != nil && !errors.Is(err, io.EOF) {
				return 0, 0, err
			}
			if len(next) == 1 {
				if kbps, ok := frameBitrate(b, next[0]); ok {
					n, err := io.Copy(io.Discard, br)
					if err != nil {
						return 0, 0, err
					}
					return n + 2, kbps * 1000, nil
				}
			}
		}
		prev = b
	}
}

var (
	mpeg1Bitrates = [3][15]int{
		{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
		{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
	}
	mpeg2Bitrates = [3][15]int{
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	}
)

// frameBitrate decodes the second and third bytes of an MPEG audio frame
// header and returns the bitrate in kbit/s.
func frameBitrate(b1, b2 byte) (int, bool) {
	version := (b1 >> 3) & 0x03
	layer := (b1 >> 1) & 0x03
	index := b2 >> 4
	sampleRate := (b2 >> 2) & 0x03

	if version == 1 || layer == 0 || index == 0 || index == 15 || sampleRate == 3 {
		return 0, false
	}

	// layer bits: 3 = Layer I, 2 = Layer II, 1 = Layer III
	row := 3 - int(layer)
	if version == 3 {
		return mpeg1Bitrates[row][index], true
	}
	return mpeg2Bitrates[row][index], true
}
