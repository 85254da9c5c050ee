// Package cache holds the Redis-backed rendered-page cache for question
// pages. A disabled cache is represented by a nil *PageCache; every method
// is safe to call on it.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/qboard/qboard/pkg/config"
	"github.com/qboard/qboard/pkg/logging"
)

// ErrCacheDisabled is returned when cache operations are attempted but the
// cache is disabled.
var ErrCacheDisabled = fmt.Errorf("cache is disabled")

// PageCache wraps the Redis client behind question-page keys.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a page cache client, or nil when no Redis URL is configured.
func New(cfg *config.RedisConfig) (*PageCache, error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Redis page cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return &PageCache{client: client, ttl: cfg.PageTTL}, nil
}

func pageKey(questionID int64) string {
	return fmt.Sprintf("question:%d", questionID)
}

// Get retrieves the cached rendered page for a question.
func (c *PageCache) Get(ctx context.Context, questionID int64) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrCacheDisabled
	}
	return c.client.Get(ctx, pageKey(questionID)).Result()
}

// Set stores a rendered page under the question key.
func (c *PageCache) Set(ctx context.Context, questionID int64, page string) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Set(ctx, pageKey(questionID), page, c.ttl).Err()
}

// Invalidate drops the cached page. A nil cache reports success so the
// engine treats a disabled cache as always invalidated.
func (c *PageCache) Invalidate(ctx context.Context, questionID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, pageKey(questionID)).Err()
}

// Close closes the Redis connection
func (c *PageCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Health checks Redis health
func (c *PageCache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Ping(ctx).Err()
}
