package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trackvault/internal/catalog"
)

const (
	artistsCollection = "artists"
	usersCollection   = "users"
)

// Mongo keeps artists and users in MongoDB collections.
type Mongo struct {
	artists *mongo.Collection
	users   *mongo.Collection
}

// NewMongo sets up a Mongo store on the given database.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		artists: db.Collection(artistsCollection),
		users:   db.Collection(usersCollection),
	}
}

// EnsureIndexes creates the indexes lookups rely on. It is safe to call on
// every start.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.artists.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "albums._id", Value: 1}}},
		{Keys: bson.D{{Key: "albums.tracks._id", Value: 1}}},
		{Keys: bson.D{{Key: "albums.tracks.blobId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create artist indexes: %w", err)
	}
	return nil
}

func (m *Mongo) ArtistByName(ctx context.Context, name string) (catalog.Artist, error) {
	return m.findArtist(ctx, bson.M{"name": name})
}

func (m *Mongo) ArtistByID(ctx context.Context, id string) (catalog.Artist, error) {
	return m.findArtist(ctx, bson.M{"_id": id})
}

func (m *Mongo) InsertArtist(ctx context.Context, artist catalog.Artist) error {
	if artist.Albums == nil {
		artist.Albums = []catalog.Album{}
	}
	if _, err := m.artists.InsertOne(ctx, artist); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert artist: %w", err)
	}
	return nil
}

func (m *Mongo) ReplaceArtist(ctx context.Context, artist catalog.Artist) error {
	res, err := m.artists.ReplaceOne(ctx, bson.M{"_id": artist.ID}, artist)
	if err != nil {
		return fmt.Errorf("replace artist: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteArtist(ctx context.Context, id string) error {
	res, err := m.artists.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete artist: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) PullAlbum(ctx context.Context, artistID, albumID string) error {
	filter := bson.M{"_id": artistID, "albums._id": albumID}
	update := bson.M{"$pull": bson.M{"albums": bson.M{"_id": albumID}}}
	return m.updateOne(ctx, "pull album", filter, update)
}

func (m *Mongo) PullTrack(ctx context.Context, artistID, albumID, trackID string) error {
	filter := bson.M{"_id": artistID, "albums._id": albumID}
	update := bson.M{"$pull": bson.M{"albums.$.tracks": bson.M{"_id": trackID}}}
	return m.updateOne(ctx, "pull track", filter, update)
}

func (m *Mongo) SetTrackBlob(ctx context.Context, trackID string, blobID *string) error {
	filter := bson.M{"albums.tracks._id": trackID}
	update := bson.M{"$set": bson.M{"albums.$[].tracks.$[track].blobId": blobID}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"track._id": trackID}},
	})

	res, err := m.artists.UpdateMany(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("set track blob: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) FindTrack(ctx context.Context, trackID string) (catalog.TrackRef, error) {
	artist, err := m.findArtist(ctx, bson.M{"albums.tracks._id": trackID})
	if err != nil {
		return catalog.TrackRef{}, err
	}
	ref, ok := artist.LocateTrack(trackID)
	if !ok {
		return catalog.TrackRef{}, ErrNotFound
	}
	return ref, nil
}

func (m *Mongo) FindAlbum(ctx context.Context, albumID string) (catalog.AlbumRef, error) {
	artist, err := m.findArtist(ctx, bson.M{"albums._id": albumID})
	if err != nil {
		return catalog.AlbumRef{}, err
	}
	i := artist.AlbumIndex(albumID)
	if i < 0 {
		return catalog.AlbumRef{}, ErrNotFound
	}
	return catalog.AlbumRef{Artist: artist, Album: artist.Albums[i]}, nil
}

// Search narrows the candidates server-side and then picks out the matching
// entities from each artist document.
func (m *Mongo) Search(ctx context.Context, phrase string) (catalog.Matches, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(phrase), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"albums.name": pattern},
		bson.M{"albums.tracks.title": pattern},
	}}

	cur, err := m.artists.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return catalog.Matches{}, fmt.Errorf("search artists: %w", err)
	}
	var artists []catalog.Artist
	if err := cur.All(ctx, &artists); err != nil {
		return catalog.Matches{}, fmt.Errorf("decode artists: %w", err)
	}
	return collectMatches(artists, phrasePattern(phrase)), nil
}

func (m *Mongo) EnsureUser(ctx context.Context, u catalog.User) (catalog.User, error) {
	_, err := m.users.UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$setOnInsert": u},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return catalog.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return m.UserByID(ctx, u.ID)
}

func (m *Mongo) UserByID(ctx context.Context, id string) (catalog.User, error) {
	var u catalog.User
	if err := m.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.User{}, ErrNotFound
		}
		return catalog.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (m *Mongo) findArtist(ctx context.Context, filter bson.M) (catalog.Artist, error) {
	var a catalog.Artist
	if err := m.artists.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.Artist{}, ErrNotFound
		}
		return catalog.Artist{}, fmt.Errorf("find artist: %w", err)
	}
	return a, nil
}

func (m *Mongo) updateOne(ctx context.Context, op string, filter, update bson.M) error {
	res, err := m.artists.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
