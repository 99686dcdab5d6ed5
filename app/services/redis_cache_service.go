package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/billing-resolver/app/models"
)

// RedisSearchCache shares normalization results across resolver
// processes so repeated billing uploads for the same house skip the
// search backend entirely.
type RedisSearchCache struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration

	hits   int64
	misses int64
}

func NewRedisSearchCache(redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisSearchCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSearchCache{
		client: client,
		logger: logger,
		prefix: "billing_resolver:addr:",
		ttl:    ttl,
	}, nil
}

func (c *RedisSearchCache) Get(ctx context.Context, key string) (*models.NormalizationResult, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result models.NormalizationResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		c.logger.Warn("drop undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	atomic.AddInt64(&c.hits, 1)
	c.logger.Debug("redis search cache hit", zap.String("key", key))
	return &result, true, nil
}

func (c *RedisSearchCache) Set(ctx context.Context, key string, result *models.NormalizationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Stats returns hit/miss counters since process start.
func (c *RedisSearchCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

func (c *RedisSearchCache) Close() error {
	return c.client.Close()
}
