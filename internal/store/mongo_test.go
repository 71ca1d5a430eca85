package store

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"trackvault/internal/catalog"
)

func artistDoc() bson.D {
	return bson.D{
		{Key: "_id", Value: "ar-1"},
		{Key: "name", Value: "Autechre"},
		{Key: "albums", Value: bson.A{
			bson.D{
				{Key: "_id", Value: "al-1"},
				{Key: "name", Value: "Amber"},
				{Key: "year", Value: 1994},
				{Key: "tracks", Value: bson.A{
					bson.D{
						{Key: "_id", Value: "t-1"},
						{Key: "number", Value: 1},
						{Key: "title", Value: "Foil"},
						{Key: "blobId", Value: nil},
					},
				}},
			},
		}},
	}
}

func TestMongoArtistLookups(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("by name", func(mt *mtest.T) {
		s := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "trackvault.artists", mtest.FirstBatch, artistDoc()))

		a, err := s.ArtistByName(context.Background(), "Autechre")
		if err != nil {
			mt.Fatalf("ArtistByName: %v", err)
		}
		if a.ID != "ar-1" || len(a.Albums) != 1 || a.Albums[0].Tracks[0].Title != "Foil" {
			mt.Fatalf("unexpected artist: %#v", a)
		}
		if a.Albums[0].Tracks[0].BlobID != nil {
			mt.Fatalf("expected nil blob id")
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		s := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "trackvault.artists", mtest.FirstBatch))

		if _, err := s.ArtistByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("find track", func(mt *mtest.T) {
		s := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "trackvault.artists", mtest.FirstBatch, artistDoc()))

		ref, err := s.FindTrack(context.Background(), "t-1")
		if err != nil {
			mt.Fatalf("FindTrack: %v", err)
		}
		if ref.Artist.Name != "Autechre" || ref.Album.Name != "Amber" || ref.Track.ID != "t-1" {
			mt.Fatalf("unexpected ref: %#v", ref)
		}
	})
}

func TestMongoInsertArtistDuplicate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("duplicate key", func(mt *mtest.T) {
		s := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := s.InsertArtist(context.Background(), artistFixture())
		if !errors.Is(err, ErrConflict) {
			mt.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	mt.Run("success", func(mt *mtest.T) {
		s := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		if err := s.InsertArtist(context.Background(), artistFixture()); err != nil {
			mt.Fatalf("InsertArtist: %v", err)
		}
	})
}

func TestMongoSetTrackBlob(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("matched", func(mt *mtest.T) {
		s := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		id := "blob-1"
		if err := s.SetTrackBlob(context.Background(), "t-1", &id); err != nil {
			mt.Fatalf("SetTrackBlob: %v", err)
		}
	})

	mt.Run("unknown track", func(mt *mtest.T) {
		s := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		if err := s.SetTrackBlob(context.Background(), "t-9", nil); !errors.Is(err, ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMongoSearch(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("filters matches", func(mt *mtest.T) {
		s := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "trackvault.artists", mtest.FirstBatch, artistDoc()))

		got, err := s.Search(context.Background(), "foi")
		if err != nil {
			mt.Fatalf("Search: %v", err)
		}
		if len(got.Tracks) != 1 || len(got.Albums) != 0 || len(got.Artists) != 0 {
			mt.Fatalf("unexpected matches: %#v", got)
		}
	})
}

func artistFixture() catalog.Artist {
	return catalog.Artist{ID: "ar-1", Name: "Autechre"}
}

func TestMongoEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("lookup indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		if err := NewMongo(mt.DB).EnsureIndexes(context.Background()); err != nil {
			mt.Fatalf("EnsureIndexes: %v", err)
		}

		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "createIndexes" {
			mt.Fatalf("expected createIndexes, got %+v", evt)
		}
		specs, err := evt.Command.Lookup("indexes").Array().Values()
		if err != nil {
			mt.Fatalf("indexes: %v", err)
		}

		got := make(map[string]bool)
		for _, v := range specs {
			elems, err := v.Document().Lookup("key").Document().Elements()
			if err != nil {
				mt.Fatalf("index key: %v", err)
			}
			got[elems[0].Key()] = true
		}
		for _, want := range []string{"name", "albums._id", "albums.tracks._id", "albums.tracks.blobId"} {
			if !got[want] {
				mt.Fatalf("missing index on %s, got %v", want, got)
			}
		}
	})
}
