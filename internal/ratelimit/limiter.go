// Package ratelimit provides per-subject request rate limiting.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting configuration.
type Config struct {
	RPS             float64       // Requests per second per subject
	Burst           int           // Burst size per subject
	CleanupInterval time.Duration // How often idle limiters are dropped
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	RPS:             10,
	Burst:           20,
	CleanupInterval: time.Hour,
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// RateLimiter manages one token bucket per subject.
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.RWMutex
	config   Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRateLimiter creates a rate limiter and starts its background cleanup
// goroutine. Call Stop to release it.
func NewRateLimiter(config Config) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		config:   config,
		stopCh:   make(chan struct{}),
	}

	rl.wg.Add(1)
	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a request from subject is within its rate limit.
func (rl *RateLimiter) Allow(subject string) bool {
	return rl.GetLimiter(subject).Allow()
}

// GetLimiter returns the limiter for subject, creating one if necessary.
func (rl *RateLimiter) GetLimiter(subject string) *rate.Limiter {
	// Fast path with read lock.
	rl.mu.RLock()
	entry, exists := rl.limiters[subject]
	if exists {
		entry.lastUsed = time.Now()
		rl.mu.RUnlock()
		return entry.limiter
	}
	rl.mu.RUnlock()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring the write lock.
	entry, exists = rl.limiters[subject]
	if exists {
		entry.lastUsed = time.Now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rl.config.RPS), rl.config.Burst)
	rl.limiters[subject] = &limiterEntry{
		limiter:  limiter,
		lastUsed: time.Now(),
	}
	return limiter
}

// Cleanup removes limiters idle for longer than the cleanup interval.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.config.CleanupInterval)
	for subject, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, subject)
		}
	}
}

// Stop terminates the cleanup goroutine and waits for it to exit.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
	rl.wg.Wait()
}

// Size returns the number of tracked subjects.
func (rl *RateLimiter) Size() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) cleanupLoop() {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-rl.stopCh:
			return
		}
	}
}
