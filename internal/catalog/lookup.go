package catalog

// AlbumIndex returns the position of the album with the given id, or -1.
func (a Artist) AlbumIndex(id string) int {
	for i := range a.Albums {
		if a.Albums[i].ID == id {
			return i
		}
	}
	return -1
}

// AlbumByName returns the position of the album with exactly this name, or -1.
func (a Artist) AlbumByName(name string) int {
	for i := range a.Albums {
		if a.Albums[i].Name == name {
			return i
		}
	}
	return -1
}

// TrackIndex returns the position of the track with the given id, or -1.
func (a Album) TrackIndex(id string) int {
	for i := range a.Tracks {
		if a.Tracks[i].ID == id {
			return i
		}
	}
	return -1
}

// HasTitle reports whether a track with exactly this title exists.
func (a Album) HasTitle(title string) bool {
	for _, t := range a.Tracks {
		if t.Title == title {
			return true
		}
	}
	return false
}

// LocateTrack finds a track anywhere under the artist.
func (a Artist) LocateTrack(id string) (TrackRef, bool) {
	for _, album := range a.Albums {
		if i := album.TrackIndex(id); i >= 0 {
			return TrackRef{Artist: a, Album: album, Track: album.Tracks[i]}, true
		}
	}
	return TrackRef{}, false
}

// Clone returns a deep copy so callers can mutate freely.
func (a Artist) Clone() Artist {
	out := Artist{ID: a.ID, Name: a.Name, Albums: make([]Album, len(a.Albums))}
	for i, album := range a.Albums {
		c := album
		c.Tracks = make([]Track, len(album.Tracks))
		for j, t := range album.Tracks {
			if t.BlobID != nil {
				id := *t.BlobID
				t.BlobID = &id
			}
			c.Tracks[j] = t
		}
		out.Albums[i] = c
	}
	return out
}
