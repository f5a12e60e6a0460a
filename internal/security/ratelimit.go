package security

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-key token bucket, one bucket per dashboard
// client (keyed by user ID or remote address), so one noisy client
// can't starve the others polling run status.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	lastUsed map[string]time.Time
	rps      int
	burst    int
}

// NewRateLimiter creates a rate limiter and starts its idle-bucket
// cleanup goroutine.
func NewRateLimiter(rps, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastUsed: make(map[string]time.Time),
		rps:      rps,
		burst:    burst,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether a request for key is allowed right now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lastUsed[key] = time.Now()
	limiter := rl.getLimiterUnsafe(key)
	return limiter.Allow()
}

// Wait blocks until a request for key is allowed.
func (rl *RateLimiter) Wait(key string) {
	rl.mu.Lock()
	rl.lastUsed[key] = time.Now()
	limiter := rl.getLimiterUnsafe(key)
	rl.mu.Unlock()

	limiter.Wait(context.Background())
}

func (rl *RateLimiter) getLimiterUnsafe(key string) *rate.Limiter {
	limiter, exists := rl.limiters[key]
	if exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(rl.rps), rl.burst)
	rl.limiters[key] = limiter
	return limiter
}

// cleanup evicts buckets idle for over an hour.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute * 10)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, lastUsed := range rl.lastUsed {
			if now.Sub(lastUsed) > time.Hour {
				delete(rl.limiters, key)
				delete(rl.lastUsed, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Reset drops the bucket for key, e.g. after a token refresh.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, key)
	delete(rl.lastUsed, key)
}

// GetStats returns bucket counters for the dashboard's own health endpoint.
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return map[string]interface{}{
		"total_limiters": len(rl.limiters),
		"rps":            rl.rps,
		"burst":          rl.burst,
	}
}
