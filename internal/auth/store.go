package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-intel/vantage-intel/internal/shared"
)

// Store defines persistence operations for credentials.
type Store interface {
	Exists(ctx context.Context, username string) (bool, error)
	Insert(ctx context.Context, username, passwordHash, role string) error
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// PGStore implements Store using PostgreSQL. Uniqueness is enforced by the
// primary key on users.username, so concurrent inserts of the same name
// fail deterministically instead of racing the existence check.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL credential store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Exists reports whether a username is taken.
func (s *PGStore) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("auth: exists %w: %v", shared.ErrStorage, err)
	}
	return exists, nil
}

// Insert persists a new credential record.
func (s *PGStore) Insert(ctx context.Context, username, passwordHash, role string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3)`, username, passwordHash, role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrConflict
		}
		return fmt.Errorf("auth: insert user %w: %v", shared.ErrStorage, err)
	}
	return nil
}

// FindByUsername fetches a credential record.
func (s *PGStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.pool.QueryRow(ctx, `SELECT username, password_hash, role, created_at FROM users WHERE username = $1`, username).
		Scan(&user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user %w: %v", shared.ErrStorage, err)
	}
	return &user, nil
}

// FindRole returns just the role attached to username. Used by the
// session middleware to build the request identity without loading the
// password hash.
func (s *PGStore) FindRole(ctx context.Context, username string) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM users WHERE username = $1`, username).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("auth: find role %w: %v", shared.ErrStorage, err)
	}
	return role, nil
}

var _ Store = (*PGStore)(nil)
