package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vantage-intel/vantage-intel/internal/shared"
)

type memoryRepo struct {
	mu      sync.Mutex
	recs    map[string]Record
	failing bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{recs: make(map[string]Record)}
}

func (r *memoryRepo) Insert(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return shared.ErrStorage
	}
	r.recs[rec.Token] = rec
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, token string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return nil, shared.ErrStorage
	}
	rec, ok := r.recs[token]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &rec, nil
}

func (r *memoryRepo) DeleteIfExpired(ctx context.Context, token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return false, shared.ErrStorage
	}
	rec, ok := r.recs[token]
	if !ok || now.Before(rec.ExpiresAt) {
		return false, nil
	}
	delete(r.recs, token)
	return true, nil
}

func (r *memoryRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return shared.ErrStorage
	}
	delete(r.recs, token)
	return nil
}

func (r *memoryRepo) DeleteByUsername(ctx context.Context, username string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return nil, shared.ErrStorage
	}
	var tokens []string
	for token, rec := range r.recs {
		if rec.Username == username {
			delete(r.recs, token)
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

func newTestManager(t *testing.T) (*Manager, *memoryRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newMemoryRepo()
	return NewManager(nil, repo, client), repo, mr
}

func TestCreateThenValidate(t *testing.T) {
	manager, _, mr := newTestManager(t)
	ctx := context.Background()

	token, err := manager.Create(ctx, "alice", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.True(t, manager.Validate(ctx, token))
	require.True(t, mr.Exists("session:"+token), "validation hot path should be cached")
}

func TestTokensAreUnique(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := manager.Create(ctx, "alice", time.Hour)
		require.NoError(t, err)
		require.False(t, seen[token], "token collision")
		seen[token] = true
	}
}

func TestValidateUnknownToken(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	require.False(t, manager.Validate(ctx, ""))
	require.False(t, manager.Validate(ctx, "no-such-token"))
	require.False(t, manager.Validate(ctx, "definitely\x00not a token"))
}

func TestLazyExpiryReapsOnValidate(t *testing.T) {
	manager, repo, _ := newTestManager(t)
	ctx := context.Background()

	rec := Record{
		Token:     "expired-token",
		Username:  "alice",
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, repo.Insert(ctx, rec))

	require.False(t, manager.Validate(ctx, rec.Token))

	_, err := repo.Get(ctx, rec.Token)
	require.ErrorIs(t, err, shared.ErrNotFound, "expired session must be reaped on discovery")

	require.False(t, manager.Validate(ctx, rec.Token), "stays invalid after the reap")
}

func TestValidateSurvivesCacheLoss(t *testing.T) {
	manager, _, mr := newTestManager(t)
	ctx := context.Background()

	token, err := manager.Create(ctx, "alice", time.Hour)
	require.NoError(t, err)

	mr.FlushAll()

	require.True(t, manager.Validate(ctx, token), "postgres is the source of truth")
	require.True(t, mr.Exists("session:"+token), "cache repopulated after the miss")
}

func TestCacheEntryTTLIsCapped(t *testing.T) {
	manager, _, mr := newTestManager(t)
	ctx := context.Background()

	token, err := manager.Create(ctx, "alice", 24*time.Hour)
	require.NoError(t, err)

	ttl := mr.TTL("session:" + token)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, cacheTTLCap, "cache entries must not outlive the staleness bound")
}

func TestStaleCacheEntryStopsServingWithinCap(t *testing.T) {
	manager, repo, mr := newTestManager(t)
	ctx := context.Background()

	token, err := manager.Create(ctx, "alice", time.Hour)
	require.NoError(t, err)

	// Remove the row behind the manager's back. The cached entry may keep
	// answering until its capped TTL runs out, and no longer.
	require.NoError(t, repo.Delete(ctx, token))
	require.True(t, manager.Validate(ctx, token))

	mr.FastForward(cacheTTLCap + time.Second)
	require.False(t, manager.Validate(ctx, token), "row removal must surface once the cache entry expires")
	require.False(t, mr.Exists("session:"+token))
}

func TestManagerRunsWithoutCache(t *testing.T) {
	repo := newMemoryRepo()
	manager := NewManager(nil, repo, nil)
	ctx := context.Background()

	token, err := manager.Create(ctx, "alice", time.Hour)
	require.NoError(t, err)
	require.True(t, manager.Validate(ctx, token))
	require.True(t, manager.Delete(ctx, token))
	require.False(t, manager.Validate(ctx, token))
}

func TestDeleteIsIdempotent(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	require.True(t, manager.Delete(ctx, "unknown-token"))

	token, err := manager.Create(ctx, "alice", time.Hour)
	require.NoError(t, err)
	require.True(t, manager.Delete(ctx, token))
	require.True(t, manager.Delete(ctx, token))
	require.False(t, manager.Validate(ctx, token))
}

func TestRevokeUserOnlyTouchesOwnSessions(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Create(ctx, "alice", time.Hour)
	require.NoError(t, err)
	second, err := manager.Create(ctx, "alice", time.Hour)
	require.NoError(t, err)
	other, err := manager.Create(ctx, "bob", time.Hour)
	require.NoError(t, err)

	n, err := manager.RevokeUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.False(t, manager.Validate(ctx, first))
	require.False(t, manager.Validate(ctx, second))
	require.True(t, manager.Validate(ctx, other))
}

func TestValidateFailsClosedOnStorageError(t *testing.T) {
	repo := newMemoryRepo()
	manager := NewManager(nil, repo, nil)
	ctx := context.Background()

	token, err := manager.Create(ctx, "alice", time.Hour)
	require.NoError(t, err)

	repo.failing = true
	require.False(t, manager.Validate(ctx, token), "storage failure must deny, never grant")
	require.False(t, manager.Delete(ctx, token), "delete reports the failed attempt")
}
