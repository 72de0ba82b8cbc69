package cache

import (
	"context"
	"time"

	"agora/pkg/domain"
)

// Backend stores serialized cache entries under string keys. Implementations
// return sentinel.ErrNotFound for a missing or expired key and are free to
// evict anything at any time; the cache treats every backend answer as a
// hint, never as ledger truth.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "agora:entity:"

// entryKey namespaces entries per collection so invalidation and metrics
// stay collection-scoped even on a shared redis.
func entryKey(c domain.Collection, id domain.RecordID) string {
	return keyPrefix + c.String() + ":" + id.String()
}
