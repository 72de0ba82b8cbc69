package cache

import (
	"context"
	"sync"
	"time"

	"agora/pkg/platform/sentinel"
)

// MemoryBackend is a process-local Backend. Expired entries are evicted
// lazily on access, so there is no sweeper goroutine to manage; memory for
// abandoned keys is reclaimed only when the key is touched again, which is
// fine for the bounded set of entity ids one node serves.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value    []byte
	deadline time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !e.deadline.IsZero() && !time.Now().Before(e.deadline) {
		b.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have renewed
		// the entry since the read above.
		if cur, ok := b.entries[key]; ok && !cur.deadline.IsZero() && !time.Now().Before(cur.deadline) {
			delete(b.entries, key)
		}
		b.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}
	return e.value, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}
	b.mu.Lock()
	b.entries[key] = memoryEntry{value: value, deadline: deadline}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
	return nil
}

// Len reports the number of live entries, counting expired ones not yet
// evicted.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
