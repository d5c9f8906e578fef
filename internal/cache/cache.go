// Package cache provides a best-effort key/value accelerator in front of the
// durable store. The backend may be unavailable, evicted, or stale at any
// time; callers always fall back to the authoritative store on a miss.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quillmark/text-analyzer/internal/obs"
)

// ErrMiss is returned by backends when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// DefaultTTL is the per-entry expiry applied when no TTL is configured.
const DefaultTTL = 3600 * time.Second

// Backend is the volatile backing store contract. Implementations must be
// safe for concurrent use; durability is best-effort.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Cache wraps a Backend so that backend failures never propagate to callers:
// a failed Get reads as a miss, and failed Set/Del are logged and dropped.
// An unavailable backend makes the system slower, never less correct.
type Cache struct {
	backend Backend
	ttl     time.Duration
	log     *slog.Logger
}

// New creates a Cache over backend. A non-positive ttl falls back to DefaultTTL.
func New(backend Backend, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		backend: backend,
		ttl:     ttl,
		log:     obs.Pkg("cache"),
	}
}

// Get returns the cached value for key and whether it was present. Backend
// errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.Warn("cache get failed", "key", key, "err", err)
		}
		return "", false
	}
	return value, true
}

// Set stores value under key with the configured TTL. Failures are logged
// and swallowed.
func (c *Cache) Set(ctx context.Context, key, value string) {
	if err := c.backend.Set(ctx, key, value, c.ttl); err != nil {
		c.log.Warn("cache set failed", "key", key, "err", err)
	}
}

// Delete removes key. Failures are logged and swallowed.
func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.backend.Del(ctx, key); err != nil {
		c.log.Warn("cache delete failed", "key", key, "err", err)
	}
}
