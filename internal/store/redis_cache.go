package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortener-ws/internal/shortener"
	"go.uber.org/zap"
)

// RedisCacheRepository wraps a Repository with a Redis read-through cache for code resolution.
// Entries are only populated when absent, and deactivation overwrites them, so a racing
// populate cannot resurrect a deactivated code.
type RedisCacheRepository struct {
	store  shortener.Repository
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:  store,
		client: client,
		prefix: "shortener:cache:",
		ttl:    ttl,
		logger: logger,
	}
}

type cachedMapping struct {
	Code          shortener.Code   `json:"code"`
	OriginalURL   string           `json:"original_url"`
	Status        shortener.Status `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	DeactivatedAt *time.Time       `json:"deactivated_at,omitempty"`
}

func (r *RedisCacheRepository) Insert(
	ctx context.Context, code shortener.Code, originalURL string,
) (*shortener.Mapping, error) {
	return r.store.Insert(ctx, code, originalURL)
}

func (r *RedisCacheRepository) FindActiveByURL(ctx context.Context, originalURL string) (*shortener.Mapping, error) {
	return r.store.FindActiveByURL(ctx, originalURL)
}

func (r *RedisCacheRepository) FindLatestByURL(ctx context.Context, originalURL string) (*shortener.Mapping, error) {
	return r.store.FindLatestByURL(ctx, originalURL)
}

func (r *RedisCacheRepository) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	return r.store.FindByCode(ctx, code)
}

// FindActiveByCode checks the cache first and falls back to the store on a miss.
func (r *RedisCacheRepository) FindActiveByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	if cached, err := r.getFromCache(ctx, code); err == nil {
		if !cached.IsActive() {
			return nil, shortener.ErrNotFound
		}

		return cached, nil
	}

	mapping, err := r.store.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.populate(ctx, mapping)

	return mapping, nil
}

// Deactivate updates the store and then overwrites the cached entry. If the entry can be
// neither overwritten nor deleted the error is returned, since the cache would otherwise
// keep resolving the code until it expires.
func (r *RedisCacheRepository) Deactivate(ctx context.Context, code shortener.Code) (*shortener.Mapping, bool, error) {
	mapping, changed, err := r.store.Deactivate(ctx, code)
	if err != nil {
		return nil, false, err
	}

	if err := r.invalidate(ctx, mapping); err != nil {
		return nil, false, fmt.Errorf("invalidate cached mapping %s: %w", code, err)
	}

	return mapping, changed, nil
}

func (r *RedisCacheRepository) invalidate(ctx context.Context, mapping *shortener.Mapping) error {
	payload, err := encodeCached(mapping)
	if err == nil {
		err = r.client.Set(ctx, r.key(mapping.Code), payload, r.ttl).Err()
	}

	if err == nil {
		return nil
	}

	r.logger.Warn("failed to overwrite cached mapping, deleting it",
		zap.String("code", string(mapping.Code)),
		zap.Error(err),
	)

	if delErr := r.client.Del(ctx, r.key(mapping.Code)).Err(); delErr != nil {
		return errors.Join(err, delErr)
	}

	return nil
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	payload, err := r.client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	var c cachedMapping
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, err
	}

	return &shortener.Mapping{
		Code:          c.Code,
		OriginalURL:   c.OriginalURL,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
		DeactivatedAt: c.DeactivatedAt,
	}, nil
}

func (r *RedisCacheRepository) populate(ctx context.Context, mapping *shortener.Mapping) {
	payload, err := encodeCached(mapping)
	if err != nil {
		return
	}

	if err := r.client.SetNX(ctx, r.key(mapping.Code), payload, r.ttl).Err(); err != nil {
		r.logger.Warn("failed to populate cache",
			zap.String("code", string(mapping.Code)),
			zap.Error(err),
		)
	}
}

func (r *RedisCacheRepository) key(code shortener.Code) string {
	return r.prefix + string(code)
}

func encodeCached(mapping *shortener.Mapping) ([]byte, error) {
	return json.Marshal(cachedMapping{
		Code:          mapping.Code,
		OriginalURL:   mapping.OriginalURL,
		Status:        mapping.Status,
		CreatedAt:     mapping.CreatedAt,
		DeactivatedAt: mapping.DeactivatedAt,
	})
}

// Shutdown is a no-op for RedisCacheRepository (client managed externally).
func (r *RedisCacheRepository) Shutdown() error {
	return nil
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)
