package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend used with --no-redis and in tests.
// Entries expire lazily on access.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return "", ErrMiss
	}
	if b.now().After(entry.expiresAt) {
		delete(b.entries, key)
		return "", ErrMiss
	}
	return entry.value, nil
}

func (b *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = memoryEntry{
		value:     value,
		expiresAt: b.now().Add(ttl),
	}
	return nil
}

func (b *MemoryBackend) Del(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key)
	return nil
}

// Len returns the number of live entries. Primarily useful in tests.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
