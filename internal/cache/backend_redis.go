package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
)

// RedisBackend shares cache entries across the node's processes. Expiry is
// delegated to redis via SET EX; the cache layer still checks entry
// freshness itself, so a lagging eviction can never serve stale data.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an existing client. The client lifecycle is managed
// by the caller.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "cache backend get")
	}
	return val, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "cache backend set")
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "cache backend delete")
	}
	return nil
}
