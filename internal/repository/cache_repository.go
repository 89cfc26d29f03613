package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

// CacheRepository is the batched key-value store behind the statistics cache.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// GetMany returns the raw values stored under keys. Missing keys are absent from the result.
func (r *CacheRepository) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheUnavailable
	}
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget %d keys: %w", len(keys), err)
	}
	for i, value := range values {
		switch typed := value.(type) {
		case string:
			result[keys[i]] = []byte(typed)
		case nil:
		default:
			r.logger.Warn("unexpected cache value type", zap.String("key", keys[i]), zap.String("type", fmt.Sprintf("%T", typed)))
		}
	}
	return result, nil
}

// SetMany writes every entry in a single pipeline. The ttl bounds retention, not freshness.
func (r *CacheRepository) SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	if r.client == nil {
		return appErrors.ErrCacheUnavailable
	}
	if len(entries) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for key, value := range entries {
		pipe.Set(ctx, key, value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline set %d keys: %w", len(entries), err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
