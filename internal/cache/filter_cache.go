// Package cache holds the Redis-backed caches. Cached reads are an
// optimization only: every getter degrades to a miss on Redis errors so
// the database path stays authoritative.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jcastano/atelier/internal/models"
)

const (
	filterKeyPrefix = "filters:"
	filterKeyAll    = "filters:all"

	// DefaultFilterTTL bounds staleness of the filter sidebar between
	// catalog writes from another instance.
	DefaultFilterTTL = 5 * time.Minute
)

// NewRedisClient connects and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// FilterMetadataCache caches per-category filter metadata (price bounds,
// size and color vocabularies) with a TTL, invalidated on catalog writes.
type FilterMetadataCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewFilterMetadataCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *FilterMetadataCache {
	if ttl <= 0 {
		ttl = DefaultFilterTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FilterMetadataCache{client: client, ttl: ttl, logger: logger}
}

func filterKey(category string) string {
	if category == "" {
		return filterKeyAll
	}
	return filterKeyPrefix + category
}

// Get returns the cached metadata, or miss on absence, decode failure or
// Redis error.
func (c *FilterMetadataCache) Get(ctx context.Context, category string) (*models.FilterMetadata, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, filterKey(category)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("filter cache read failed", slog.Any("error", err))
		}
		return nil, false
	}

	var meta models.FilterMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		c.logger.Warn("filter cache entry corrupt, dropping", slog.Any("error", err))
		_ = c.client.Del(ctx, filterKey(category)).Err()
		return nil, false
	}

	return &meta, true
}

// Set stores the metadata under the category key with the cache TTL.
func (c *FilterMetadataCache) Set(ctx context.Context, category string, meta *models.FilterMetadata) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		c.logger.Warn("filter cache encode failed", slog.Any("error", err))
		return
	}

	if err := c.client.Set(ctx, filterKey(category), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("filter cache write failed", slog.Any("error", err))
	}
}

// Invalidate drops every filter key. Called on any product create, update
// or delete; a write in one category can still change the global bounds,
// so everything goes.
func (c *FilterMetadataCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, filterKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("filter cache scan failed", slog.Any("error", err))
		return
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn("filter cache invalidation failed", slog.Any("error", err))
		}
	}
}
