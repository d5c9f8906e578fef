package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend adapts a go-redis client to the Backend contract.
type RedisBackend struct {
	client *redis.Client
}

// OpenRedis connects to the Redis instance at url (redis:// or rediss://)
// and verifies the connection before returning.
func OpenRedis(ctx context.Context, url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisBackend{client: client}, nil
}

// NewRedisBackend wraps an already-configured client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	value, err := b.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", err
	}
	return value, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *RedisBackend) Del(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

// Close releases the underlying connection pool. Call once at shutdown.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
