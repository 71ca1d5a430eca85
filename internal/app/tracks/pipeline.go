package tracks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trackvault/internal/catalog"
	"trackvault/internal/metadata"
	"trackvault/internal/streamdup"
)

// ChangeNotifier is told when committed catalog content changed.
type ChangeNotifier interface {
	CatalogChanged(ctx context.Context)
}

// Pipeline turns multipart uploads into tracks. A request either commits
// every file it carries or none of them.
type Pipeline struct {
	reader    metadata.Reader
	hierarchy *HierarchyUpdater
	uploader  *BlobUploader
	presence  *PresenceValidator
	notifier  ChangeNotifier
	log       zerolog.Logger
}

// NewPipeline wires the upload pipeline. notifier may be nil.
func NewPipeline(reader metadata.Reader, hierarchy *HierarchyUpdater, uploader *BlobUploader, presence *PresenceValidator, notifier ChangeNotifier, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		reader:    reader,
		hierarchy: hierarchy,
		uploader:  uploader,
		presence:  presence,
		notifier:  notifier,
		log:       log,
	}
}

type fileInput struct {
	index    int
	name     string
	mimetype string
	parse    io.ReadCloser
	upload   io.ReadCloser
}

// Upload reads every file part of mr concurrently and returns the committed
// blob ids in the order the files were declared. On the first failure the
// remaining parts are drained, staged blobs are discarded and everything
// already committed is reversed, newest first. The first error is returned.
func (p *Pipeline) Upload(ctx context.Context, mr *multipart.Reader, owner string) ([]string, error) {
	j := &Journal{}
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	blobIDs := make(map[int]string)
	count := 0

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			g.Go(func() error { return fmt.Errorf("%w: %w", ErrMalformedUpload, err) })
			break
		}
		if part.FileName() == "" || gctx.Err() != nil {
			// NextPart discards whatever is left of this part.
			continue
		}

		dup := streamdup.New(2)
		in := fileInput{
			index:    count,
			name:     part.FileName(),
			mimetype: part.Header.Get("Content-Type"),
			parse:    dup.Branch(0),
			upload:   dup.Branch(1),
		}
		count++

		g.Go(func() error {
			blobID, err := p.process(gctx, j, in, owner)
			if err != nil {
				return err
			}
			mu.Lock()
			blobIDs[in.index] = blobID
			mu.Unlock()
			return nil
		})

		if err := dup.Pump(gctx, part); err != nil {
			g.Go(func() error { return fmt.Errorf("%w: read %s: %w", ErrMalformedUpload, in.name, err) })
		}
	}

	err := g.Wait()
	if err == nil && count == 0 {
		return nil, ErrNoFiles
	}
	if err != nil {
		p.rollback(context.WithoutCancel(ctx), j)
		return nil, err
	}

	if p.notifier != nil {
		p.notifier.CatalogChanged(ctx)
	}

	out := make([]string, count)
	for i := range out {
		out[i] = blobIDs[i]
	}
	return out, nil
}

func (p *Pipeline) process(ctx context.Context, j *Journal, in fileInput, owner string) (string, error) {
	log := p.log.With().Str("file", in.name).Logger()
	staging := p.uploader.Stage(ctx, in.upload)

	pt, err := p.parse(ctx, in.parse, in.mimetype)
	if err != nil {
		p.uploader.Discard(ctx, staging)
		return "", err
	}

	res, err := p.hierarchy.Update(ctx, j, pt, owner, in.name)
	if err != nil {
		p.uploader.Discard(ctx, staging)
		return "", err
	}
	if !res.Updated {
		p.uploader.Discard(ctx, staging)
		return "", reject(ErrTrackExists, res.Message, &pt)
	}

	track, err := p.uploader.Upload(ctx, j, staging, pt, res.Track)
	if err != nil {
		return "", err
	}

	log.Info().
		Str("track_id", track.ID).
		Str("blob_id", *track.BlobID).
		Str("artist", pt.ArtistName).
		Str("album", pt.AlbumName).
		Str("title", pt.Title).
		Msg("track uploaded")
	return *track.BlobID, nil
}

// parse reads the metadata branch and validates the fields. The branch is
// closed afterwards so the duplicator stops feeding it.
func (p *Pipeline) parse(ctx context.Context, r io.ReadCloser, mimetype string) (catalog.ParsedTrack, error) {
	defer r.Close()

	tags, err := p.reader.Read(ctx, r)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return catalog.ParsedTrack{}, ctxErr
		}
		return catalog.ParsedTrack{}, reject(ErrParse, err.Error(), nil)
	}

	pt, verdict := ValidateFields(tags, mimetype)
	if !verdict.OK {
		return catalog.ParsedTrack{}, reject(ErrInvalidTrack, verdict.Message, &pt)
	}
	return pt, nil
}

// Validate parses the first file part of mr and checks that it could be
// uploaded. Nothing is persisted.
func (p *Pipeline) Validate(ctx context.Context, mr *multipart.Reader) (catalog.ParsedTrack, error) {
	var part *multipart.Part
	for {
		next, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return catalog.ParsedTrack{}, ErrNoFiles
		}
		if err != nil {
			return catalog.ParsedTrack{}, fmt.Errorf("%w: %w", ErrMalformedUpload, err)
		}
		if next.FileName() != "" {
			part = next
			break
		}
	}
	defer drain(mr)

	pt, err := p.parse(ctx, part, part.Header.Get("Content-Type"))
	if err != nil {
		return catalog.ParsedTrack{}, err
	}

	exists, err := p.presence.Exists(ctx, pt.ArtistName, pt.AlbumName, pt.Title)
	if err != nil {
		return catalog.ParsedTrack{}, fmt.Errorf("%w: presence check: %w", ErrStorage, err)
	}
	if exists {
		return catalog.ParsedTrack{}, reject(ErrTrackExists, TrackExistsMessage, &pt)
	}
	return pt, nil
}

func drain(mr *multipart.Reader) {
	for {
		if _, err := mr.NextPart(); err != nil {
			return
		}
	}
}

func (p *Pipeline) rollback(ctx context.Context, j *Journal) {
	steps := j.Steps()
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		log := p.log.With().
			Stringer("step", step.Kind).
			Str("artist_id", step.ArtistID).
			Str("track_id", step.TrackID).
			Str("blob_id", step.BlobID).
			Logger()

		if err := p.reverse(ctx, step); err != nil {
			log.Error().Err(err).Msg("rollback step failed")
			continue
		}
		log.Info().Msg("rolled back")
	}
}

func (p *Pipeline) reverse(ctx context.Context, step Step) error {
	switch step.Kind {
	case ArtistInserted, AlbumInserted, TrackInserted:
		return p.hierarchy.Undo(ctx, step)
	case BlobCommitted, BackrefWritten:
		return p.uploader.Undo(ctx, step)
	default:
		return fmt.Errorf("unknown step kind %d", step.Kind)
	}
}
