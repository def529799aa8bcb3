package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-intel/vantage-intel/internal/platform/db"
	"github.com/vantage-intel/vantage-intel/internal/shared"
)

// Record is a persisted session row.
type Record struct {
	Token     string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Repository defines persistence operations for sessions.
type Repository interface {
	Insert(ctx context.Context, rec Record) error
	Get(ctx context.Context, token string) (*Record, error)
	// DeleteIfExpired removes the row only when its expiry has passed,
	// atomically against concurrent validators.
	DeleteIfExpired(ctx context.Context, token string, now time.Time) (bool, error)
	Delete(ctx context.Context, token string) error
	DeleteByUsername(ctx context.Context, username string) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL session repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert persists a new session row.
func (r *PGRepository) Insert(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (token, username, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		rec.Token, rec.Username, rec.ExpiresAt, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("session: insert %w: %v", shared.ErrStorage, err)
	}
	return nil
}

// Get fetches a session row by token.
func (r *PGRepository) Get(ctx context.Context, token string) (*Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx,
		`SELECT token, username, expires_at, created_at FROM sessions WHERE token = $1`, token).
		Scan(&rec.Token, &rec.Username, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("session: get %w: %v", shared.ErrStorage, err)
	}
	return &rec, nil
}

// DeleteIfExpired reaps the row when expired. It reports whether the row
// was removed. The check and delete run in one transaction so two
// concurrent validators cannot both observe the expired row.
func (r *PGRepository) DeleteIfExpired(ctx context.Context, token string, now time.Time) (bool, error) {
	var deleted bool
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE token = $1 AND expires_at <= $2`, token, now)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("session: reap %w: %v", shared.ErrStorage, err)
	}
	return deleted, nil
}

// Delete removes a session row. Deleting an absent token is not an error.
func (r *PGRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("session: delete %w: %v", shared.ErrStorage, err)
	}
	return nil
}

// DeleteByUsername removes every session owned by username, returning the
// revoked tokens so callers can drop cache entries. Served by the
// non-unique index on sessions.username.
func (r *PGRepository) DeleteByUsername(ctx context.Context, username string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM sessions WHERE username = $1 RETURNING token`, username)
	if err != nil {
		return nil, fmt.Errorf("session: revoke user %w: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("session: revoke user %w: %v", shared.ErrStorage, err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: revoke user %w: %v", shared.ErrStorage, err)
	}
	return tokens, nil
}

var _ Repository = (*PGRepository)(nil)
