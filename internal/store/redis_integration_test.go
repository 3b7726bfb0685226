//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortener-ws/internal/shortener"
	"github.com/serroba/shortener-ws/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getRedisAddr() string {
	if addr := os.Getenv("SERVICE_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: getRedisAddr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	return client
}

func TestRedisStoreIntegration(t *testing.T) {
	client := newRedisClient(t)

	testRepositoryContract(t, func(_ *testing.T) shortener.Repository {
		return store.NewRedisStore(client)
	})
}

func TestRedisCacheRepositoryIntegration(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	t.Run("satisfies the repository contract", func(t *testing.T) {
		testRepositoryContract(t, func(_ *testing.T) shortener.Repository {
			return store.NewRedisCacheRepository(store.NewMemoryStore(), client, time.Minute, zap.NewNop())
		})
	})

	t.Run("serves resolved codes from the cache", func(t *testing.T) {
		inner := store.NewMemoryStore()
		cached := store.NewRedisCacheRepository(inner, client, time.Minute, zap.NewNop())
		code := uniqueCode()

		_, err := inner.Insert(ctx, code, "https://example.com/cached")
		require.NoError(t, err)

		first, err := cached.FindActiveByCode(ctx, code)
		require.NoError(t, err)

		// A fresh inner store no longer knows the code; the cache still does.
		fromCache := store.NewRedisCacheRepository(store.NewMemoryStore(), client, time.Minute, zap.NewNop())

		second, err := fromCache.FindActiveByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, first.OriginalURL, second.OriginalURL)
	})

	t.Run("deactivation overrides a cached entry", func(t *testing.T) {
		inner := store.NewMemoryStore()
		cached := store.NewRedisCacheRepository(inner, client, time.Minute, zap.NewNop())
		code := uniqueCode()

		_, err := cached.Insert(ctx, code, "https://example.com/"+uuid.NewString())
		require.NoError(t, err)

		_, err = cached.FindActiveByCode(ctx, code)
		require.NoError(t, err)

		_, _, err = cached.Deactivate(ctx, code)
		require.NoError(t, err)

		_, err = cached.FindActiveByCode(ctx, code)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestRateLimitRedisStoreIntegration(t *testing.T) {
	client := newRedisClient(t)
	s := store.NewRateLimitRedisStore(client)
	ctx := context.Background()
	key := uuid.NewString()

	for i := range 3 {
		count, err := s.Hit(ctx, key, time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(i+1), count)
	}

	other, err := s.Hit(ctx, uuid.NewString(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}
