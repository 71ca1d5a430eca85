package search

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v9"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trackvault/internal/catalog"
	"trackvault/internal/store"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, ttl), mr
}

func mustGet(t *testing.T, cache *RedisCache, phrase string) Entry {
	t.Helper()
	e, err := cache.Get(context.Background(), phrase)
	if err != nil {
		t.Fatalf("get %q: %v", phrase, err)
	}
	return e
}

func sampleResults() []Result {
	blobID := "b-1"
	return []Result{
		{
			Type:       TypeTrack,
			ID:         "t-1",
			Title:      "Into the Night",
			Number:     1,
			Duration:   241.5,
			Year:       2019,
			Mimetype:   "audio/mpeg",
			BlobID:     &blobID,
			UserID:     "u1",
			FileID:     "night.mp3",
			AlbumName:  "Nightfall",
			ArtistName: "Night Drive",
		},
		{Type: TypeArtist, ID: "a-1", Title: "Night Drive"},
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, _ := newRedisCache(t, time.Minute)
	ctx := context.Background()

	miss, err := cache.Get(ctx, "night")
	if err != nil || miss.Hit {
		t.Fatalf("expected miss, got %+v err=%v", miss, err)
	}

	want := sampleResults()
	if err := cache.Set(ctx, miss, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	hit, err := cache.Get(ctx, "NIGHT")
	if err != nil || !hit.Hit {
		t.Fatalf("expected hit, got %+v err=%v", hit, err)
	}
	if !reflect.DeepEqual(hit.Results, want) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, hit.Results)
	}
}

func TestRedisCacheEmptyResults(t *testing.T) {
	cache, _ := newRedisCache(t, time.Minute)
	ctx := context.Background()

	miss := mustGet(t, cache, "nothing")
	if err := cache.Set(ctx, miss, []Result{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	hit := mustGet(t, cache, "nothing")
	if !hit.Hit || len(hit.Results) != 0 {
		t.Fatalf("expected empty hit, got %+v", hit)
	}
}

func TestRedisCacheInvalidate(t *testing.T) {
	cache, _ := newRedisCache(t, time.Minute)
	ctx := context.Background()

	if err := cache.Set(ctx, mustGet(t, cache, "night"), sampleResults()); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if e := mustGet(t, cache, "night"); e.Hit {
		t.Fatalf("expected miss after invalidate, got %+v", e)
	}
}

func TestRedisCacheExpires(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	if err := cache.Set(ctx, mustGet(t, cache, "night"), sampleResults()); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if e := mustGet(t, cache, "night"); e.Hit {
		t.Fatalf("expected miss after ttl, got %+v", e)
	}
}

func TestRedisCacheDropsFillFromInvalidatedGeneration(t *testing.T) {
	cache, _ := newRedisCache(t, time.Minute)
	ctx := context.Background()

	miss := mustGet(t, cache, "night")
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := cache.Set(ctx, miss, []Result{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if e := mustGet(t, cache, "night"); e.Hit {
		t.Fatalf("results computed before invalidation were served: %+v", e)
	}
}

// changingStore publishes a new artist right after answering a search, the
// way an upload committing mid-request would.
type changingStore struct {
	*store.Memory
	once   sync.Once
	change func()
}

func (s *changingStore) Search(ctx context.Context, phrase string) (catalog.Matches, error) {
	m, err := s.Memory.Search(ctx, phrase)
	s.once.Do(s.change)
	return m, err
}

func TestSearchAfterConcurrentChangeSeesNewCatalog(t *testing.T) {
	cache, _ := newRedisCache(t, time.Minute)
	ctx := context.Background()

	mem := store.NewMemory()
	st := &changingStore{Memory: mem}
	svc := New(st, cache, zerolog.Nop())
	st.change = func() {
		err := mem.InsertArtist(ctx, catalog.Artist{ID: uuid.NewString(), Name: "Night Drive", Albums: []catalog.Album{}})
		if err != nil {
			t.Errorf("insert artist: %v", err)
		}
		svc.CatalogChanged(ctx)
	}

	first, err := svc.Search(ctx, "night")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(first) != 0 {
		t.Fatalf("expected empty catalog on first search, got %+v", first)
	}

	second, err := svc.Search(ctx, "night")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(second) != 1 || second[0].Title != "Night Drive" {
		t.Fatalf("expected the new artist after invalidation, got %+v", second)
	}
}
