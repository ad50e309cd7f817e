// Package ratelimit provides in-process token bucket rate limiting using
// golang.org/x/time/rate, globally or per key, and an HTTP middleware
// built on it.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter rate limits globally and per key.
type Limiter struct {
	mu       sync.Mutex
	config   Config
	limiters map[string]*limiterEntry

	// Global limiter for non-keyed operations
	globalLimiter *rate.Limiter

	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// New creates a rate limiter. A disabled config allows everything.
func New(config Config) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Limiter{
		config:        config,
		limiters:      make(map[string]*limiterEntry),
		globalLimiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstSize),
		lastCleanup:   time.Now(),
	}, nil
}

// TryAcquire attempts to acquire a token without blocking
func (rl *Limiter) TryAcquire() bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.globalLimiter.Allow()
}

// TryAcquireForKey attempts to acquire a token for a specific key
func (rl *Limiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.getLimiterForKey(key).Allow()
}

// getLimiterForKey gets or creates a rate limiter for a specific key
func (rl *Limiter) getLimiterForKey(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) > rl.config.CleanupPeriod {
		rl.cleanup()
	}

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{
			limiter:  rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize),
			lastUsed: time.Now(),
		}
		rl.limiters[key] = entry

		if len(rl.limiters) > rl.config.MaxKeys {
			rl.cleanup()
		}
	} else {
		entry.lastUsed = time.Now()
	}

	return entry.limiter
}

// cleanup removes limiters that haven't been used recently
func (rl *Limiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.CleanupPeriod)

	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}

	rl.lastCleanup = time.Now()
}

// Stats returns rate limiter statistics
func (rl *Limiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"enabled":             rl.config.Enabled,
		"requests_per_second": rl.config.RequestsPerSecond,
		"burst_size":          rl.config.BurstSize,
		"available_tokens":    rl.globalLimiter.Tokens(),
		"active_keys":         len(rl.limiters),
		"max_keys":            rl.config.MaxKeys,
	}
}
