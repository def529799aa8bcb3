package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vantage-intel/vantage-intel/internal/shared"
)

// Manager issues, validates, and revokes time-bounded session tokens.
// PostgreSQL is the system of record; Redis acts as a read-through cache
// on the validation hot path. A cache entry may serve validations for at
// most cacheTTLCap before the next Postgres round-trip, which bounds how
// long an out-of-band row change can go unnoticed; every in-band delete,
// revoke, and reap drops the cache key immediately. Every degraded path
// resolves to "not authenticated", never the other way around.
type Manager struct {
	repo   Repository
	cache  *redis.Client
	logger *slog.Logger
}

// NewManager constructs a Manager. cache may be nil to run without Redis.
func NewManager(logger *slog.Logger, repo Repository, cache *redis.Client) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{repo: repo, cache: cache, logger: logger}
}

// Create mints a 128-bit random token valid for the given duration,
// persists it, and returns it.
func (m *Manager) Create(ctx context.Context, username string, validity time.Duration) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	token := id.String()
	now := time.Now()
	rec := Record{
		Token:     token,
		Username:  username,
		ExpiresAt: now.Add(validity),
		CreatedAt: now,
	}
	if err := m.repo.Insert(ctx, rec); err != nil {
		return "", err
	}
	m.cacheSet(ctx, rec)
	return token, nil
}

// Validate reports whether token identifies a live session. Expired
// sessions are reaped lazily on the validation that discovers them.
func (m *Manager) Validate(ctx context.Context, token string) bool {
	_, ok := m.Resolve(ctx, token)
	return ok
}

// Resolve validates a token and returns the owning username. It never
// returns an error: unknown tokens, expired sessions, and storage
// failures all resolve to ok=false.
func (m *Manager) Resolve(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}

	// Cache entries are written only after a session was read from or
	// inserted into Postgres, carry a TTL no longer than cacheTTLCap, and
	// are dropped on every delete, revoke, and reap. Within that window a
	// hit is served without another Postgres round-trip.
	if username, ok := m.cacheGet(ctx, token); ok {
		return username, true
	}

	rec, err := m.repo.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			m.logger.Warn("session lookup failed", slog.String("token", truncate(token)), slog.Any("error", err))
		}
		return "", false
	}

	now := time.Now()
	if now.After(rec.ExpiresAt) {
		if _, err := m.repo.DeleteIfExpired(ctx, token, now); err != nil {
			m.logger.Warn("session reap failed", slog.String("token", truncate(token)), slog.Any("error", err))
		}
		m.cacheDel(ctx, token)
		return "", false
	}

	m.cacheSet(ctx, *rec)
	return rec.Username, true
}

// Delete revokes a session. Deleting an unknown token succeeds; only a
// storage failure reports false.
func (m *Manager) Delete(ctx context.Context, token string) bool {
	m.cacheDel(ctx, token)
	if err := m.repo.Delete(ctx, token); err != nil {
		m.logger.Warn("session delete failed", slog.String("token", truncate(token)), slog.Any("error", err))
		return false
	}
	return true
}

// RevokeUser removes every session owned by username and returns how many
// were revoked.
func (m *Manager) RevokeUser(ctx context.Context, username string) (int, error) {
	tokens, err := m.repo.DeleteByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	for _, token := range tokens {
		m.cacheDel(ctx, token)
	}
	return len(tokens), nil
}

// cacheTTLCap bounds how long a cache entry may serve validations before
// the next Postgres round-trip. It is the worst-case window during which
// a row changed behind the manager's back (manual SQL, a second
// deployment without the same cache) can still be answered from cache.
const cacheTTLCap = time.Minute

func (m *Manager) cacheKey(token string) string {
	return "session:" + token
}

func (m *Manager) cacheSet(ctx context.Context, rec Record) {
	if m.cache == nil {
		return
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if ttl > cacheTTLCap {
		ttl = cacheTTLCap
	}
	if err := m.cache.Set(ctx, m.cacheKey(rec.Token), rec.Username, ttl).Err(); err != nil {
		m.logger.Warn("session cache set failed", slog.Any("error", err))
	}
}

func (m *Manager) cacheGet(ctx context.Context, token string) (string, bool) {
	if m.cache == nil {
		return "", false
	}
	username, err := m.cache.Get(ctx, m.cacheKey(token)).Result()
	if err != nil {
		return "", false
	}
	return username, username != ""
}

func (m *Manager) cacheDel(ctx context.Context, token string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Del(ctx, m.cacheKey(token)).Err(); err != nil {
		m.logger.Warn("session cache del failed", slog.Any("error", err))
	}
}

// truncate shortens tokens for log lines so a full credential never lands
// in the logs.
func truncate(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "…"
}
