// Package users resolves authenticated callers to stored user records.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"trackvault/internal/catalog"
	"trackvault/internal/store"
)

// ErrNotFound indicates no user has the requested id.
var ErrNotFound = errors.New("user not found")

// Authenticator verifies a bearer token and returns the identity it carries.
type Authenticator interface {
	Verify(token string) (catalog.User, error)
}

// Repository persists users.
type Repository interface {
	EnsureUser(ctx context.Context, u catalog.User) (catalog.User, error)
	UserByID(ctx context.Context, id string) (catalog.User, error)
}

// Service exposes user workflows.
type Service struct {
	auth Authenticator
	repo Repository
	log  zerolog.Logger
}

// New wires a Service.
func New(auth Authenticator, repo Repository, log zerolog.Logger) *Service {
	return &Service{auth: auth, repo: repo, log: log}
}

// Authenticate verifies token and returns the stored user, creating it on
// first sight. Existing records are never updated from token claims, so the
// admin flag always comes from storage.
func (s *Service) Authenticate(ctx context.Context, token string) (catalog.User, error) {
	if err := ctx.Err(); err != nil {
		return catalog.User{}, err
	}
	claimed, err := s.auth.Verify(token)
	if err != nil {
		return catalog.User{}, err
	}
	u, err := s.repo.EnsureUser(ctx, claimed)
	if err != nil {
		return catalog.User{}, fmt.Errorf("ensure user %s: %w", claimed.ID, err)
	}
	return u, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (catalog.User, error) {
	if err := ctx.Err(); err != nil {
		return catalog.User{}, err
	}
	u, err := s.repo.UserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return catalog.User{}, ErrNotFound
	}
	if err != nil {
		return catalog.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}
