// Package tracks implements track upload, validation, removal and cover
// lookup.
package tracks

import (
	"context"
	"mime/multipart"

	"trackvault/internal/catalog"
)

// Service bundles the track workflows exposed over HTTP.
type Service struct {
	pipeline *Pipeline
	remover  *Remover
	covers   *CoverFinder
}

// New wires a Service.
func New(pipeline *Pipeline, remover *Remover, covers *CoverFinder) *Service {
	return &Service{pipeline: pipeline, remover: remover, covers: covers}
}

func (s *Service) Upload(ctx context.Context, mr *multipart.Reader, owner string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.pipeline.Upload(ctx, mr, owner)
}

func (s *Service) Validate(ctx context.Context, mr *multipart.Reader) (catalog.ParsedTrack, error) {
	if err := ctx.Err(); err != nil {
		return catalog.ParsedTrack{}, err
	}
	return s.pipeline.Validate(ctx, mr)
}

func (s *Service) Remove(ctx context.Context, trackID string, user catalog.User) (Removed, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.remover.Remove(ctx, trackID, user)
}

func (s *Service) Cover(ctx context.Context, trackID string) (catalog.Cover, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Cover{}, err
	}
	return s.covers.Cover(ctx, trackID)
}
