package store

import (
	"context"
	"sort"
	"sync"

	"trackvault/internal/catalog"
)

// Memory is an in-process MetadataStore and UserRepository.
type Memory struct {
	mu      sync.RWMutex
	artists map[string]catalog.Artist
	order   []string
	users   map[string]catalog.User
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		artists: make(map[string]catalog.Artist),
		users:   make(map[string]catalog.User),
	}
}

func (m *Memory) ArtistByName(ctx context.Context, name string) (catalog.Artist, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Artist{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if a := m.artists[id]; a.Name == name {
			return a.Clone(), nil
		}
	}
	return catalog.Artist{}, ErrNotFound
}

func (m *Memory) ArtistByID(ctx context.Context, id string) (catalog.Artist, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Artist{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artists[id]
	if !ok {
		return catalog.Artist{}, ErrNotFound
	}
	return a.Clone(), nil
}

func (m *Memory) InsertArtist(ctx context.Context, artist catalog.Artist) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artists[artist.ID]; ok {
		return ErrConflict
	}
	for _, id := range m.order {
		if m.artists[id].Name == artist.Name {
			return ErrConflict
		}
	}
	m.artists[artist.ID] = artist.Clone()
	m.order = append(m.order, artist.ID)
	return nil
}

func (m *Memory) ReplaceArtist(ctx context.Context, artist catalog.Artist) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artists[artist.ID]; !ok {
		return ErrNotFound
	}
	m.artists[artist.ID] = artist.Clone()
	return nil
}

func (m *Memory) DeleteArtist(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artists[id]; !ok {
		return ErrNotFound
	}
	delete(m.artists, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) PullAlbum(ctx context.Context, artistID, albumID string) error {
	return m.mutate(ctx, artistID, func(a *catalog.Artist) bool {
		i := a.AlbumIndex(albumID)
		if i < 0 {
			return false
		}
		a.Albums = append(a.Albums[:i], a.Albums[i+1:]...)
		return true
	})
}

func (m *Memory) PullTrack(ctx context.Context, artistID, albumID, trackID string) error {
	return m.mutate(ctx, artistID, func(a *catalog.Artist) bool {
		i := a.AlbumIndex(albumID)
		if i < 0 {
			return false
		}
		album := &a.Albums[i]
		j := album.TrackIndex(trackID)
		if j < 0 {
			return false
		}
		album.Tracks = append(album.Tracks[:j], album.Tracks[j+1:]...)
		return true
	})
}

func (m *Memory) SetTrackBlob(ctx context.Context, trackID string, blobID *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, artist := range m.artists {
		for i := range artist.Albums {
			for j := range artist.Albums[i].Tracks {
				if artist.Albums[i].Tracks[j].ID != trackID {
					continue
				}
				updated := artist.Clone()
				if blobID != nil {
					ref := *blobID
					updated.Albums[i].Tracks[j].BlobID = &ref
				} else {
					updated.Albums[i].Tracks[j].BlobID = nil
				}
				m.artists[id] = updated
				return nil
			}
		}
	}
	return ErrNotFound
}

func (m *Memory) FindTrack(ctx context.Context, trackID string) (catalog.TrackRef, error) {
	if err := ctx.Err(); err != nil {
		return catalog.TrackRef{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if ref, ok := m.artists[id].LocateTrack(trackID); ok {
			ref.Artist = ref.Artist.Clone()
			return ref, nil
		}
	}
	return catalog.TrackRef{}, ErrNotFound
}

func (m *Memory) FindAlbum(ctx context.Context, albumID string) (catalog.AlbumRef, error) {
	if err := ctx.Err(); err != nil {
		return catalog.AlbumRef{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		artist := m.artists[id]
		if i := artist.AlbumIndex(albumID); i >= 0 {
			c := artist.Clone()
			return catalog.AlbumRef{Artist: c, Album: c.Albums[i]}, nil
		}
	}
	return catalog.AlbumRef{}, ErrNotFound
}

func (m *Memory) Search(ctx context.Context, phrase string) (catalog.Matches, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Matches{}, err
	}
	m.mu.RLock()
	artists := make([]catalog.Artist, 0, len(m.order))
	for _, id := range m.order {
		artists = append(artists, m.artists[id].Clone())
	}
	m.mu.RUnlock()
	return collectMatches(artists, phrasePattern(phrase)), nil
}

// Artists returns a snapshot of every artist sorted by name.
func (m *Memory) Artists() []catalog.Artist {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Artist, 0, len(m.artists))
	for _, a := range m.artists {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Memory) EnsureUser(ctx context.Context, u catalog.User) (catalog.User, error) {
	if err := ctx.Err(); err != nil {
		return catalog.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.ID]; ok {
		return existing, nil
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) UserByID(ctx context.Context, id string) (catalog.User, error) {
	if err := ctx.Err(); err != nil {
		return catalog.User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return catalog.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) mutate(ctx context.Context, artistID string, fn func(*catalog.Artist) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	artist, ok := m.artists[artistID]
	if !ok {
		return ErrNotFound
	}
	updated := artist.Clone()
	if !fn(&updated) {
		return ErrNotFound
	}
	m.artists[artistID] = updated
	return nil
}
