package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// opTimeout bounds each Redis round trip; a slow cache is treated as a miss.
const opTimeout = 250 * time.Millisecond

// Redis is a JSON-encoded cache stored under prefix+key with a TTL.
// Redis errors are logged and surface as misses.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *Redis[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		c.logger.Warn("cache: redis get failed", zap.String("key", c.prefix+key), zap.Error(err))
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("cache: undecodable entry", zap.String("key", c.prefix+key), zap.Error(err))
		return zero, false
	}
	return v, true
}

func (c *Redis[T]) Set(key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache: encode failed", zap.String("key", c.prefix+key), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache: redis set failed", zap.String("key", c.prefix+key), zap.Error(err))
	}
}

func (c *Redis[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn("cache: redis del failed", zap.String("key", c.prefix+key), zap.Error(err))
	}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
