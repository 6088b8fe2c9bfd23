package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Registry manages per-key buckets and windows, keyed by an opaque
// string (typically "{provider}:{model}", optionally extended with a
// tenant dimension). Process-wide by convention; RateLimitBucket state
// is lazily configured on first use and survives across requests (§3
// lifecycle rule).
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*TokenBucket
	windows map[string]*FixedWindowLimiter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[string]*TokenBucket), windows: make(map[string]*FixedWindowLimiter)}
}

// MakeKey joins non-empty parts with ':', the same convention as the
// rate-limit bucket-key template in §6 ("{provider}:{model}").
func MakeKey(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ":")
}

// ConfigureBucket installs or replaces the token bucket for key.
func (r *Registry) ConfigureBucket(key string, qps float64, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[key] = NewTokenBucket(qps, burst)
}

// ConfigureWindow installs or replaces the fixed window for key.
func (r *Registry) ConfigureWindow(key string, limit int, window time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[key] = NewFixedWindowLimiter(limit, window)
}

// Acquire runs the token bucket first (smoothing), then the fixed
// window (hard cap), in that order, when each is configured for key.
func (r *Registry) Acquire(ctx context.Context, key string, tokens float64, strategy Strategy, timeout time.Duration) error {
	r.mu.RLock()
	bucket := r.buckets[key]
	window := r.windows[key]
	r.mu.RUnlock()

	if bucket != nil {
		if err := bucket.Acquire(ctx, tokens, strategy, timeout); err != nil {
			return err
		}
	}
	if window != nil {
		if err := window.Acquire(ctx, strategy, timeout); err != nil {
			return err
		}
	}
	return nil
}
