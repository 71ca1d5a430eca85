package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trackvault/internal/catalog"
	"trackvault/internal/store"
)

type fixtureIDs struct {
	artist, album, track string
	blob                 string
}

func seededStore(t *testing.T) (*store.Memory, fixtureIDs) {
	t.Helper()
	ids := fixtureIDs{
		artist: uuid.NewString(),
		album:  uuid.NewString(),
		track:  uuid.NewString(),
		blob:   uuid.NewString(),
	}
	blobID := ids.blob
	s := store.NewMemory()
	err := s.InsertArtist(context.Background(), catalog.Artist{
		ID:   ids.artist,
		Name: "Night Drive",
		Albums: []catalog.Album{{
			ID:   ids.album,
			Name: "Nightfall",
			Year: 2019,
			Tracks: []catalog.Track{{
				ID:       ids.track,
				Number:   1,
				Title:    "Into the Night",
				Duration: 241,
				Year:     2019,
				Mimetype: "audio/mpeg",
				BlobID:   &blobID,
				UserID:   "u1",
				FileID:   "night.mp3",
			}},
		}},
	})
	if err != nil {
		t.Fatalf("insert artist: %v", err)
	}
	return s, ids
}

type countingCache struct {
	entries     map[string][]Result
	gen         int
	gets, sets  int
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: make(map[string][]Result)}
}

func (c *countingCache) Get(_ context.Context, phrase string) (Entry, error) {
	c.gets++
	key := fmt.Sprintf("%d:%s", c.gen, phrase)
	r, ok := c.entries[key]
	return Entry{Key: key, Hit: ok, Results: r}, nil
}

func (c *countingCache) Set(_ context.Context, e Entry, results []Result) error {
	c.sets++
	c.entries[e.Key] = results
	return nil
}

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidated++
	c.gen++
	return nil
}

func TestSearchOrdersByType(t *testing.T) {
	s, ids := seededStore(t)
	svc := New(s, nil, zerolog.Nop())

	results, err := svc.Search(context.Background(), "NIGHT")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %+v", len(results), results)
	}

	want := []struct{ typ, id string }{
		{TypeTrack, ids.track},
		{TypeAlbum, ids.album},
		{TypeArtist, ids.artist},
	}
	for i, w := range want {
		if results[i].Type != w.typ || results[i].ID != w.id {
			t.Fatalf("result %d: expected %s %s, got %s %s", i, w.typ, w.id, results[i].Type, results[i].ID)
		}
	}
	if results[0].AlbumName != "Nightfall" || results[0].ArtistName != "Night Drive" {
		t.Fatalf("track result missing parents: %+v", results[0])
	}
}

func TestSearchTreatsPhraseLiterally(t *testing.T) {
	s, _ := seededStore(t)
	svc := New(s, nil, zerolog.Nop())

	results, err := svc.Search(context.Background(), "N.ght")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for regex metacharacters, got %+v", results)
	}
}

func TestSearchRejectsShortPhrase(t *testing.T) {
	svc := New(store.NewMemory(), nil, zerolog.Nop())

	for _, phrase := range []string{"", "ab", "ńą"} {
		if _, err := svc.Search(context.Background(), phrase); !errors.Is(err, ErrPhraseTooShort) {
			t.Fatalf("phrase %q: expected ErrPhraseTooShort, got %v", phrase, err)
		}
	}
}

func TestSearchUsesCache(t *testing.T) {
	s, _ := seededStore(t)
	cache := newCountingCache()
	svc := New(s, cache, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.Search(ctx, "night"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := svc.Search(ctx, "night"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if cache.sets != 1 || cache.gets != 2 {
		t.Fatalf("expected one miss and one hit, got %d sets and %d gets", cache.sets, cache.gets)
	}

	svc.CatalogChanged(ctx)
	if cache.invalidated != 1 {
		t.Fatalf("expected invalidation")
	}
	if _, err := svc.Search(ctx, "night"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if cache.sets != 2 {
		t.Fatalf("expected a fresh lookup after invalidation, got %d sets", cache.sets)
	}
}

func TestByID(t *testing.T) {
	s, ids := seededStore(t)
	svc := New(s, nil, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name     string
		id       string
		wantType string
		wantErr  error
	}{
		{name: "track", id: ids.track, wantType: TypeTrack},
		{name: "album", id: ids.album, wantType: TypeAlbum},
		{name: "artist", id: ids.artist, wantType: TypeArtist},
		{name: "unknown", id: uuid.NewString(), wantErr: ErrNotFound},
		{name: "malformed", id: "not-a-uuid", wantErr: ErrInvalidID},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.ByID(ctx, tc.id)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("by id: %v", err)
			}
			if res.Type != tc.wantType || res.ID != tc.id {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}

	res, err := svc.ByID(ctx, ids.track)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if res.BlobID == nil || *res.BlobID != ids.blob || res.Title != "Into the Night" {
		t.Fatalf("track document incomplete: %+v", res)
	}
}
