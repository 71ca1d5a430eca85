// Package catalog defines the artist -> album -> track documents shared by the
// storage, upload and search layers.
package catalog

// Artist is the root document of the hierarchy. Albums and their tracks are
// embedded.
type Artist struct {
	ID     string  `bson:"_id" json:"id"`
	Name   string  `bson:"name" json:"name"`
	Albums []Album `bson:"albums" json:"albums"`
}

// Album groups tracks released under one name by an artist.
type Album struct {
	ID     string  `bson:"_id" json:"id"`
	Name   string  `bson:"name" json:"name"`
	Year   int     `bson:"year" json:"year"`
	Tracks []Track `bson:"tracks" json:"tracks"`
}

// Track is a playable entry. BlobID stays nil until the audio bytes are
// committed to blob storage.
type Track struct {
	ID       string  `bson:"_id" json:"id"`
	Number   int     `bson:"number" json:"number"`
	Title    string  `bson:"title" json:"title"`
	Duration float64 `bson:"duration" json:"duration"`
	Year     int     `bson:"year" json:"year"`
	Mimetype string  `bson:"mimetype" json:"mimetype"`
	BlobID   *string `bson:"blobId" json:"blobId"`
	UserID   string  `bson:"userId" json:"userId"`
	FileID   string  `bson:"fileId" json:"fileId"`
}

// Playable reports whether the track has committed audio.
func (t Track) Playable() bool {
	return t.BlobID != nil && *t.BlobID != ""
}

// Cover is an embedded album picture.
type Cover struct {
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

// ParsedTrack is the candidate produced from an uploaded file's metadata.
type ParsedTrack struct {
	ArtistName string  `json:"artistName"`
	AlbumName  string  `json:"albumName"`
	Title      string  `json:"title"`
	Number     int     `json:"number"`
	Duration   float64 `json:"duration"`
	Year       int     `json:"year"`
	Mimetype   string  `json:"mimetype"`
	Cover      *Cover  `json:"cover,omitempty"`
}

// User is an externally authenticated identity.
type User struct {
	ID        string `bson:"_id" json:"id"`
	Login     string `bson:"login" json:"login"`
	AvatarURL string `bson:"avatarUrl" json:"avatarUrl"`
	IsAdmin   bool   `bson:"isAdmin" json:"isAdmin"`
}

// TrackRef locates a track inside its hierarchy.
type TrackRef struct {
	Artist Artist
	Album  Album
	Track  Track
}

// AlbumRef locates an album inside its artist.
type AlbumRef struct {
	Artist Artist
	Album  Album
}

// Matches groups the entities whose names contain a search phrase.
type Matches struct {
	Tracks  []TrackRef
	Albums  []AlbumRef
	Artists []Artist
}
