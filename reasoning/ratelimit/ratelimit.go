// Package ratelimit implements the global rate limiter: a per-key
// token-bucket (smoothing) optionally backed by a fixed window (hard
// cap), as described in §4.6.
//
// Unlike the limiter this was ported from, the bucket/window acquire
// loops release their mutex before sleeping and re-check token
// availability on wake, instead of holding the lock across the sleep —
// holding it across sleep would serialize every waiter on the same
// bucket regardless of whether tokens had become available in the
// meantime.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/agentflow/types"
)

// Strategy selects what Acquire does when a key is not currently
// admissible.
type Strategy string

const (
	StrategyWait Strategy = "wait"
	StrategyFail Strategy = "fail"
)

// maxSleepPerCycle bounds a single wait iteration so a cancelled
// context or an updated timeout is noticed promptly rather than only
// after one long sleep.
const maxSleepPerCycle = 500 * time.Millisecond

// clock abstracts time.Now/time.Sleep for deterministic tests.
type clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time     { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// TokenBucket is a smoothing limiter: tokens refill continuously at qps
// and are capped at burst.
type TokenBucket struct {
	mu     sync.Mutex
	qps    float64
	burst  float64
	tokens float64
	last   time.Time
	clock  clock
}

// NewTokenBucket creates a bucket starting full (tokens == burst).
func NewTokenBucket(qps float64, burst int) *TokenBucket {
	return &TokenBucket{qps: qps, burst: float64(burst), tokens: float64(burst), last: time.Now(), clock: realClock{}}
}

// Acquire blocks (strategy "wait") or fails immediately (strategy
// "fail") until `tokens` units are available, honoring ctx cancellation
// and an optional timeout.
func (b *TokenBucket) Acquire(ctx context.Context, tokens float64, strategy Strategy, timeout time.Duration) error {
	if tokens <= 0 {
		return nil
	}
	start := b.clock.Now()
	for {
		wait, ok := b.tryAcquire(tokens)
		if ok {
			return nil
		}
		if strategy == StrategyFail {
			return types.NewError(types.ErrRateLimitExceeded, "rate limit exceeded (token bucket)").WithHTTPStatus(429)
		}
		if timeout > 0 && b.clock.Now().Sub(start)+wait > timeout {
			return types.NewError(types.ErrRateLimitTimeout, "rate limit timeout (token bucket)").WithHTTPStatus(429)
		}
		if wait > maxSleepPerCycle {
			wait = maxSleepPerCycle
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tryAcquire refills under the lock, decides admissibility, and
// releases before the caller sleeps — the fix for the lock-across-sleep
// bug this package is explicitly designed to avoid.
func (b *TokenBucket) tryAcquire(tokens float64) (wait time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	if elapsed := now.Sub(b.last); elapsed > 0 {
		b.tokens = minF(b.burst, b.tokens+elapsed.Seconds()*b.qps)
		b.last = now
	}
	if b.tokens >= tokens {
		b.tokens -= tokens
		return 0, true
	}
	needed := tokens - b.tokens
	rate := b.qps
	if rate <= 0 {
		rate = 1e-9
	}
	return time.Duration(needed / rate * float64(time.Second)), false
}

// FixedWindowLimiter caps admissions to `limit` per `window`.
type FixedWindowLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	clock       clock
}

// NewFixedWindowLimiter creates a window limiter starting at count 0.
func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{limit: limit, window: window, windowStart: time.Now(), clock: realClock{}}
}

// Acquire blocks or fails until the window has room for one more event.
func (w *FixedWindowLimiter) Acquire(ctx context.Context, strategy Strategy, timeout time.Duration) error {
	start := w.clock.Now()
	for {
		wait, ok := w.tryAcquire()
		if ok {
			return nil
		}
		if strategy == StrategyFail {
			return types.NewError(types.ErrRateLimitExceeded, "rate limit exceeded (window)").WithHTTPStatus(429)
		}
		if timeout > 0 && w.clock.Now().Sub(start)+wait > timeout {
			return types.NewError(types.ErrRateLimitTimeout, "rate limit timeout (window)").WithHTTPStatus(429)
		}
		if wait > maxSleepPerCycle {
			wait = maxSleepPerCycle
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (w *FixedWindowLimiter) tryAcquire() (wait time.Duration, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.clock.Now()
	if now.Sub(w.windowStart) >= w.window {
		w.windowStart = now
		w.count = 0
	}
	if w.count < w.limit {
		w.count++
		return 0, true
	}
	remaining := w.window - now.Sub(w.windowStart)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
