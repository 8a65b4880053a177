package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the substrate contract every backend has to meet.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "etr_cart_v1:missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "etr_cart_v1:a", `[{"sku":"jacket"}]`))
	got, err := s.Get(ctx, "etr_cart_v1:a")
	require.NoError(t, err)
	assert.Equal(t, `[{"sku":"jacket"}]`, got)

	// full overwrite, no merge
	require.NoError(t, s.Set(ctx, "etr_cart_v1:a", `[]`))
	got, err = s.Get(ctx, "etr_cart_v1:a")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)

	// keys are independent
	_, err = s.Get(ctx, "etr_cart_v1:b")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "etr_cart_v1:a"))
	_, err = s.Get(ctx, "etr_cart_v1:a")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	assert.NoError(t, s.Delete(ctx, "etr_cart_v1:a"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, "k", "v"), context.Canceled)
}

func TestMemoryStore_ConcurrentWriters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(ctx, "k", "v")
			_, _ = s.Get(ctx, "k")
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func setupSQLite(t *testing.T) *SQLiteStore {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	require.NoError(t, s.RunMigrations())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, setupSQLite(t))
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	s := setupSQLite(t)
	assert.NoError(t, s.RunMigrations())
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.RunMigrations())
	require.NoError(t, s.Set(ctx, "k", `{"version":2,"items":[]}`))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.RunMigrations())

	got, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"version":2,"items":[]}`, got)
}

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, ttl), mr
}

func TestRedisStore(t *testing.T) {
	s, _ := setupTestRedis(t, 0)
	exerciseStore(t, s)
}

func TestRedisStore_NoTTLByDefault(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	require.NoError(t, s.Set(context.Background(), "k", "v"))
	assert.Equal(t, time.Duration(0), mr.TTL("k"))
}

func TestRedisStore_WithTTL(t *testing.T) {
	s, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, s.Set(context.Background(), "k", "v"))
	assert.Equal(t, time.Hour, mr.TTL("k"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	mr.Close()

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "redis get failed")
}

type failingStore struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *failingStore) Get(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return "", f.err
}

func (f *failingStore) Set(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *failingStore) Delete(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func TestBreakerStore_OpensAfterConsecutiveFailures(t *testing.T) {
	backend := &failingStore{err: errors.New("connection refused")}
	s := WithBreaker(backend, BreakerSettings{Name: "test", MaxFailures: 3, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Get(ctx, "k")
		assert.ErrorContains(t, err, "connection refused")
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, backend.calls, "open breaker must not reach the backend")
}

func TestBreakerStore_NotFoundIsNotAFailure(t *testing.T) {
	backend := &failingStore{err: ErrNotFound}
	s := WithBreaker(backend, BreakerSettings{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := s.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, s.State())
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	exerciseStore(t, WithBreaker(NewMemoryStore(), BreakerSettings{Name: "memory"}))
}
