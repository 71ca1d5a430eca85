package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trackvault/internal/catalog"
)

// PostgresUsers is a UserRepository backed by the users table created by
// cmd/migrate.
type PostgresUsers struct {
	db *sql.DB
}

// NewPostgresUsers wires a repository to an open database handle.
func NewPostgresUsers(db *sql.DB) *PostgresUsers {
	return &PostgresUsers{db: db}
}

func (p *PostgresUsers) EnsureUser(ctx context.Context, u catalog.User) (catalog.User, error) {
	if _, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, login, avatar_url, is_admin)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, u.ID, u.Login, u.AvatarURL, u.IsAdmin); err != nil {
		return catalog.User{}, fmt.Errorf("insert user: %w", err)
	}
	return p.UserByID(ctx, u.ID)
}

func (p *PostgresUsers) UserByID(ctx context.Context, id string) (catalog.User, error) {
	var u catalog.User
	err := p.db.QueryRowContext(ctx, `
		SELECT id, login, avatar_url, is_admin
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Login, &u.AvatarURL, &u.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.User{}, ErrNotFound
		}
		return catalog.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}
