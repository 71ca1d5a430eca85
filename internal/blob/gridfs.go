package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFS stores blobs in a MongoDB GridFS bucket.
type GridFS struct {
	bucket *gridfs.Bucket
	files  *mongo.Collection
}

// NewGridFS opens the named bucket on db.
func NewGridFS(db *mongo.Database, name string, chunkSize int32) (*GridFS, error) {
	opts := options.GridFSBucket().SetName(name)
	if chunkSize > 0 {
		opts.SetChunkSizeBytes(chunkSize)
	}
	bucket, err := gridfs.NewBucket(db, opts)
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket %s: %w", name, err)
	}
	return &GridFS{bucket: bucket, files: db.Collection(name + ".files")}, nil
}

// Create implements Store.
func (g *GridFS) Create(ctx context.Context, id string) (Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	us, err := g.bucket.OpenUploadStreamWithID(id, id)
	if err != nil {
		return nil, fmt.Errorf("open upload stream: %w", err)
	}
	return &gridWriter{fs: g, id: id, stream: us}, nil
}

// Open implements Store.
func (g *GridFS) Open(ctx context.Context, id string, offset, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := g.bucket.OpenDownloadStream(id)
	if err != nil {
		return nil, mapGridErr(err)
	}
	if offset > 0 {
		if _, err := ds.Skip(offset); err != nil {
			_ = ds.Close()
			return nil, fmt.Errorf("seek blob %s: %w", id, err)
		}
	}
	var r io.Reader = ds
	if length >= 0 {
		r = io.LimitReader(ds, length)
	}
	return readCloser{Reader: r, Closer: ds}, nil
}

// Stat implements Store.
func (g *GridFS) Stat(ctx context.Context, id string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	ds, err := g.bucket.OpenDownloadStream(id)
	if err != nil {
		return Info{}, mapGridErr(err)
	}
	defer ds.Close()

	file := ds.GetFile()
	info := Info{ID: id, Length: file.Length}
	if len(file.Metadata) > 0 {
		if err := bson.Unmarshal(file.Metadata, &info.Meta); err != nil {
			return Info{}, fmt.Errorf("decode blob metadata: %w", err)
		}
	}
	return info, nil
}

// Delete implements Store.
func (g *GridFS) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.bucket.Delete(id); err != nil {
		return mapGridErr(err)
	}
	return nil
}

func mapGridErr(err error) error {
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return ErrNotFound
	}
	return err
}

type readCloser struct {
	io.Reader
	io.Closer
}

type gridWriter struct {
	fs     *GridFS
	id     string
	stream *gridfs.UploadStream
}

func (w *gridWriter) Write(p []byte) (int, error) {
	return w.stream.Write(p)
}

// Commit flushes the remaining chunk, writes the files document and then
// attaches the metadata.
func (w *gridWriter) Commit(ctx context.Context, meta Meta) error {
	if err := w.stream.Close(); err != nil {
		return fmt.Errorf("close upload stream: %w", err)
	}
	_, err := w.fs.files.UpdateOne(ctx, bson.M{"_id": w.id}, bson.M{"$set": bson.M{"metadata": meta}})
	if err != nil {
		_ = w.fs.bucket.Delete(w.id)
		return fmt.Errorf("tag blob %s: %w", w.id, err)
	}
	return nil
}

func (w *gridWriter) Abort(context.Context) error {
	if err := w.stream.Abort(); err != nil {
		return fmt.Errorf("abort upload stream: %w", err)
	}
	return nil
}
