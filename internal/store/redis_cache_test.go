package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortener-ws/internal/shortener"
	"github.com/serroba/shortener-ws/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedRedis answers commands without a server: reads miss and writes
// succeed unless configured to fail.
type scriptedRedis struct {
	mu      sync.Mutex
	failSet bool
	failDel bool
	deleted []string
}

func (h *scriptedRedis) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *scriptedRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *scriptedRedis) ProcessHook(_ redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()

		var err error

		switch cmd.Name() {
		case "get":
			err = redis.Nil
		case "set":
			if h.failSet {
				err = errors.New("set refused")
			}
		case "del":
			if h.failDel {
				err = errors.New("del refused")
			} else {
				h.deleted = append(h.deleted, cmd.Args()[1].(string))
			}
		}

		if err != nil {
			cmd.SetErr(err)
		}

		return err
	}
}

func newScriptedClient(t *testing.T, h *scriptedRedis) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(h)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedisCacheRepository_Deactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the entry when it cannot be overwritten", func(t *testing.T) {
		hook := &scriptedRedis{failSet: true}
		inner := store.NewMemoryStore()
		cached := store.NewRedisCacheRepository(inner, newScriptedClient(t, hook), time.Minute, zap.NewNop())

		_, err := inner.Insert(ctx, "abc123", "https://example.com")
		require.NoError(t, err)

		mapping, changed, err := cached.Deactivate(ctx, "abc123")

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, shortener.StatusDeactivated, mapping.Status)
		assert.Equal(t, []string{"shortener:cache:abc123"}, hook.deleted)

		_, err = cached.FindActiveByCode(ctx, "abc123")
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("returns the error when the entry can be neither overwritten nor deleted", func(t *testing.T) {
		hook := &scriptedRedis{failSet: true, failDel: true}
		inner := store.NewMemoryStore()
		cached := store.NewRedisCacheRepository(inner, newScriptedClient(t, hook), time.Minute, zap.NewNop())

		_, err := inner.Insert(ctx, "abc123", "https://example.com")
		require.NoError(t, err)

		_, _, err = cached.Deactivate(ctx, "abc123")

		require.Error(t, err)
		assert.ErrorContains(t, err, "set refused")
		assert.ErrorContains(t, err, "del refused")
	})

	t.Run("returns the error when the client is closed", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
		require.NoError(t, client.Close())

		inner := store.NewMemoryStore()
		cached := store.NewRedisCacheRepository(inner, client, time.Minute, zap.NewNop())

		_, err := inner.Insert(ctx, "abc123", "https://example.com")
		require.NoError(t, err)

		_, _, err = cached.Deactivate(ctx, "abc123")

		require.ErrorIs(t, err, redis.ErrClosed)

		stored, err := inner.FindByCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, shortener.StatusDeactivated, stored.Status, "the store write is kept")
	})

	t.Run("passes through store errors", func(t *testing.T) {
		cached := store.NewRedisCacheRepository(store.NewMemoryStore(), newScriptedClient(t, &scriptedRedis{}),
			time.Minute, zap.NewNop())

		_, _, err := cached.Deactivate(ctx, "missing")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}
