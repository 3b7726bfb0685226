package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortener-ws/internal/shortener"
)

// insertScript stores the mapping hash and url indexes atomically.
// KEYS: mapping, active url index, latest url index. ARGV: code, url, created_at.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 'code_exists'
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 'active_exists'
end
redis.call('HSET', KEYS[1], 'code', ARGV[1], 'original_url', ARGV[2], 'status', 'active', 'created_at', ARGV[3])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SET', KEYS[3], ARGV[1])
return 'ok'
`)

// deactivateScript flips the status and clears the active index if it still points at the code.
// It returns 'deactivated' only when this call changed the status.
// KEYS: mapping, active url index. ARGV: code, deactivated_at.
var deactivateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
if redis.call('HGET', KEYS[1], 'status') == 'active' then
  redis.call('HSET', KEYS[1], 'status', 'deactivated', 'deactivated_at', ARGV[2])
  if redis.call('GET', KEYS[2]) == ARGV[1] then
    redis.call('DEL', KEYS[2])
  end
  return 'deactivated'
end
return 'unchanged'
`)

// RedisStore is a Redis implementation of shortener.Repository.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis-backed mapping store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "shortener:",
	}
}

func (r *RedisStore) Insert(ctx context.Context, code shortener.Code, originalURL string) (*shortener.Mapping, error) {
	createdAt := time.Now().UTC()

	keys := []string{r.mappingKey(code), r.activeKey(originalURL), r.latestKey(originalURL)}

	result, err := insertScript.Run(ctx, r.client, keys,
		string(code), originalURL, createdAt.UnixNano()).Text()
	if err != nil {
		return nil, err
	}

	switch result {
	case "code_exists":
		return nil, shortener.ErrCodeExists
	case "active_exists":
		return nil, shortener.ErrActiveMappingExists
	}

	return &shortener.Mapping{
		Code:        code,
		OriginalURL: originalURL,
		Status:      shortener.StatusActive,
		CreatedAt:   createdAt,
	}, nil
}

func (r *RedisStore) FindActiveByURL(ctx context.Context, originalURL string) (*shortener.Mapping, error) {
	mapping, err := r.findByIndex(ctx, r.activeKey(originalURL))
	if err != nil {
		return nil, err
	}

	if !mapping.IsActive() {
		return nil, shortener.ErrNotFound
	}

	return mapping, nil
}

func (r *RedisStore) FindLatestByURL(ctx context.Context, originalURL string) (*shortener.Mapping, error) {
	return r.findByIndex(ctx, r.latestKey(originalURL))
}

func (r *RedisStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	result, err := r.client.HGetAll(ctx, r.mappingKey(code)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, shortener.ErrNotFound
	}

	return parseMappingHash(result), nil
}

func (r *RedisStore) FindActiveByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	mapping, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !mapping.IsActive() {
		return nil, shortener.ErrNotFound
	}

	return mapping, nil
}

func (r *RedisStore) Deactivate(ctx context.Context, code shortener.Code) (*shortener.Mapping, bool, error) {
	// The url is immutable, so reading it before the script is safe.
	current, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, false, err
	}

	keys := []string{r.mappingKey(code), r.activeKey(current.OriginalURL)}

	result, err := deactivateScript.Run(ctx, r.client, keys,
		string(code), time.Now().UTC().UnixNano()).Text()
	if err != nil {
		return nil, false, err
	}

	if result == "not_found" {
		return nil, false, shortener.ErrNotFound
	}

	mapping, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, false, err
	}

	return mapping, result == "deactivated", nil
}

// Shutdown is a no-op for RedisStore (client managed externally).
func (r *RedisStore) Shutdown() error {
	return nil
}

func (r *RedisStore) findByIndex(ctx context.Context, indexKey string) (*shortener.Mapping, error) {
	code, err := r.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return r.FindByCode(ctx, shortener.Code(code))
}

func (r *RedisStore) mappingKey(code shortener.Code) string {
	return r.prefix + "mapping:" + string(code)
}

func (r *RedisStore) activeKey(originalURL string) string {
	return r.prefix + "url:active:" + hashURL(originalURL)
}

func (r *RedisStore) latestKey(originalURL string) string {
	return r.prefix + "url:latest:" + hashURL(originalURL)
}

// hashURL keeps index keys short and free of separator characters.
func hashURL(originalURL string) string {
	sum := sha256.Sum256([]byte(originalURL))

	return hex.EncodeToString(sum[:])
}

func parseMappingHash(fields map[string]string) *shortener.Mapping {
	m := &shortener.Mapping{
		Code:        shortener.Code(fields["code"]),
		OriginalURL: fields["original_url"],
		Status:      shortener.Status(fields["status"]),
	}

	if nanos, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		m.CreatedAt = time.Unix(0, nanos).UTC()
	}

	if nanos, err := strconv.ParseInt(fields["deactivated_at"], 10, 64); err == nil {
		at := time.Unix(0, nanos).UTC()
		m.DeactivatedAt = &at
	}

	return m
}

// Compile-time check.
var _ shortener.Repository = (*RedisStore)(nil)
