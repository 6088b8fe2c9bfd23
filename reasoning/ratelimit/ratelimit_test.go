package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/agentflow/reasoning/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// S5: qps=2, burst=1. Five sequential acquires should take at least
// 2.0s total (4 refills at 0.5s each), within scheduler tolerance.
func TestTokenBucket_SmoothsSequentialAcquires(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive; skip under -short")
	}
	b := ratelimit.NewTokenBucket(2, 1)
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Acquire(context.Background(), 1, ratelimit.StrategyWait, 0))
	}
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 1900*time.Millisecond)
}

// Boundary: the first `burst` acquires succeed immediately under any
// strategy; a bucket starts full.
func TestTokenBucket_BurstAllowsImmediateAcquires(t *testing.T) {
	b := ratelimit.NewTokenBucket(1, 3)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Acquire(context.Background(), 1, ratelimit.StrategyFail, 0))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

// Boundary: qps=0, burst>0 — the first `burst` acquires succeed, the
// next fails immediately under strategy "fail".
func TestTokenBucket_ZeroQPS_FailsAfterBurstExhausted(t *testing.T) {
	b := ratelimit.NewTokenBucket(0, 2)
	require.NoError(t, b.Acquire(context.Background(), 1, ratelimit.StrategyFail, 0))
	require.NoError(t, b.Acquire(context.Background(), 1, ratelimit.StrategyFail, 0))
	err := b.Acquire(context.Background(), 1, ratelimit.StrategyFail, 0)
	require.Error(t, err)
}

// Boundary: qps=0 under "wait" with a timeout raises RateLimitTimeout
// rather than blocking forever.
func TestTokenBucket_ZeroQPS_WaitTimesOut(t *testing.T) {
	b := ratelimit.NewTokenBucket(0, 1)
	require.NoError(t, b.Acquire(context.Background(), 1, ratelimit.StrategyWait, 0))
	err := b.Acquire(context.Background(), 1, ratelimit.StrategyWait, 200*time.Millisecond)
	require.Error(t, err)
}

// Strategy "fail" raises immediately once tokens are exhausted, with no
// sleeping.
func TestTokenBucket_StrategyFail_NoSleep(t *testing.T) {
	b := ratelimit.NewTokenBucket(0.001, 1)
	require.NoError(t, b.Acquire(context.Background(), 1, ratelimit.StrategyFail, 0))
	start := time.Now()
	err := b.Acquire(context.Background(), 1, ratelimit.StrategyFail, 0)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

// Context cancellation is honored mid-wait.
func TestTokenBucket_ContextCancellation(t *testing.T) {
	b := ratelimit.NewTokenBucket(0.001, 1)
	require.NoError(t, b.Acquire(context.Background(), 1, ratelimit.StrategyWait, 0))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := b.Acquire(ctx, 1, ratelimit.StrategyWait, 0)
	require.Error(t, err)
}

func TestFixedWindowLimiter_CapsWithinWindow(t *testing.T) {
	w := ratelimit.NewFixedWindowLimiter(2, time.Hour)
	require.NoError(t, w.Acquire(context.Background(), ratelimit.StrategyFail, 0))
	require.NoError(t, w.Acquire(context.Background(), ratelimit.StrategyFail, 0))
	err := w.Acquire(context.Background(), ratelimit.StrategyFail, 0)
	require.Error(t, err)
}

// With qps=0 a bucket never refills, so exactly `burst` acquires admit
// and the next one always fails, whatever burst happens to be.
func TestProperty_TokenBucket_BurstExactlyAdmitsBurstAcquires(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		burst := rapid.IntRange(1, 50).Draw(rt, "burst")
		b := ratelimit.NewTokenBucket(0, burst)

		for i := 0; i < burst; i++ {
			if err := b.Acquire(context.Background(), 1, ratelimit.StrategyFail, 0); err != nil {
				rt.Fatalf("acquire %d/%d within burst should succeed: %v", i+1, burst, err)
			}
		}
		if err := b.Acquire(context.Background(), 1, ratelimit.StrategyFail, 0); err == nil {
			rt.Fatalf("acquire beyond burst=%d should fail with qps=0", burst)
		}
	})
}

func TestRegistry_MakeKey_JoinsNonEmptyParts(t *testing.T) {
	assert.Equal(t, "openai:gpt-4", ratelimit.MakeKey("openai", "gpt-4"))
	assert.Equal(t, "openai:gpt-4:tenant-a", ratelimit.MakeKey("openai", "gpt-4", "tenant-a"))
	assert.Equal(t, "openai:gpt-4", ratelimit.MakeKey("openai", "gpt-4", ""))
}

// Token bucket is acquired before the fixed window, per §4.6. With a
// generous bucket and a tight window, the window is what ultimately
// blocks.
func TestRegistry_BucketThenWindow(t *testing.T) {
	r := ratelimit.NewRegistry()
	r.ConfigureBucket("k", 1000, 1000)
	r.ConfigureWindow("k", 1, time.Hour)

	require.NoError(t, r.Acquire(context.Background(), "k", 1, ratelimit.StrategyFail, 0))
	err := r.Acquire(context.Background(), "k", 1, ratelimit.StrategyFail, 0)
	require.Error(t, err)
}
