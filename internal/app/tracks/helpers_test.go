package tracks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trackvault/internal/blob"
	"trackvault/internal/catalog"
	"trackvault/internal/metadata"
	"trackvault/internal/store"
)

// fakeReader understands payloads of the form
// "artist=A;album=B;title=C;number=1;year=2001" followed by arbitrary audio
// bytes after a newline. A payload starting with "corrupt" fails to parse.
type fakeReader struct{}

func (fakeReader) Read(ctx context.Context, src io.Reader) (metadata.Tags, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return metadata.Tags{}, err
	}
	if bytes.HasPrefix(data, []byte("corrupt")) {
		return metadata.Tags{}, errors.New("no id3 header")
	}
	header, _, _ := strings.Cut(string(data), "\n")
	tags := metadata.Tags{
		TrackNumber: "1",
		Year:        "2001",
		Duration:    3 * time.Minute,
		Cover:       &catalog.Cover{Format: "image/png", Data: []byte{1, 2, 3}},
	}
	for _, kv := range strings.Split(header, ";") {
		k, v, _ := strings.Cut(kv, "=")
		switch k {
		case "artist":
			tags.Artist = v
		case "album":
			tags.Album = v
		case "title":
			tags.Title = v
		case "number":
			tags.TrackNumber = v
		case "year":
			tags.Year = v
		case "nocover":
			tags.Cover = nil
		}
	}
	return tags, nil
}

func (r fakeReader) Cover(ctx context.Context, src io.Reader) (*catalog.Cover, error) {
	tags, err := r.Read(ctx, src)
	if err != nil {
		return nil, err
	}
	return tags.Cover, nil
}

type testFile struct {
	name string
	data []byte
}

func trackFile(name, artist, album, title string) testFile {
	header := fmt.Sprintf("artist=%s;album=%s;title=%s\n", artist, album, title)
	audio := bytes.Repeat([]byte{0xAA}, 100_000)
	return testFile{name: name, data: append([]byte(header), audio...)}
}

func multipartReader(t *testing.T, files ...testFile) *multipart.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("note", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="track"; filename=%q`, f.name))
		h.Set("Content-Type", "audio/mpeg")
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := pw.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return multipart.NewReader(&buf, w.Boundary())
}

type fixture struct {
	store     *store.Memory
	blobs     *blob.Memory
	queue     *Queue
	hierarchy *HierarchyUpdater
	uploader  *BlobUploader
	pipeline  *Pipeline
	remover   *Remover
	covers    *CoverFinder
	changes   *changeCounter
}

type changeCounter struct{ n int }

func (c *changeCounter) CatalogChanged(context.Context) { c.n++ }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	f := &fixture{
		store:   store.NewMemory(),
		blobs:   blob.NewMemory(4096),
		queue:   NewQueue(),
		changes: &changeCounter{},
	}
	t.Cleanup(f.queue.Close)

	f.hierarchy = NewHierarchyUpdater(f.store, f.queue, log)
	f.uploader = NewBlobUploader(f.blobs, f.store, f.queue, log)
	f.pipeline = NewPipeline(fakeReader{}, f.hierarchy, f.uploader, NewPresenceValidator(f.store), f.changes, log)
	f.remover = NewRemover(f.store, f.blobs, f.queue, f.changes, log)
	f.covers = NewCoverFinder(f.store, f.blobs, fakeReader{})
	return f
}

func (f *fixture) upload(t *testing.T, owner string, files ...testFile) ([]string, error) {
	t.Helper()
	return f.pipeline.Upload(context.Background(), multipartReader(t, files...), owner)
}

func (f *fixture) mustUpload(t *testing.T, owner string, files ...testFile) []string {
	t.Helper()
	ids, err := f.upload(t, owner, files...)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return ids
}

func (f *fixture) artist(t *testing.T, name string) catalog.Artist {
	t.Helper()
	a, err := f.store.ArtistByName(context.Background(), name)
	if err != nil {
		t.Fatalf("artist %q: %v", name, err)
	}
	return a
}

func parsed(artist, album, title string) catalog.ParsedTrack {
	return catalog.ParsedTrack{
		ArtistName: artist,
		AlbumName:  album,
		Title:      title,
		Number:     1,
		Duration:   180,
		Year:       2001,
		Mimetype:   "audio/mpeg",
	}
}
