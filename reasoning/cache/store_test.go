package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/agentflow/reasoning/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiLevelResponseIDStore_SetThenGet(t *testing.T) {
	cfg := cache.DefaultConfig()
	store := cache.NewMultiLevelResponseIDStore(cfg, nil)
	ctx := context.Background()

	_, ok := store.Get(ctx, "k1")
	assert.False(t, ok)

	store.Set(ctx, "k1", "resp_123", time.Hour)
	v, ok := store.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, "resp_123", v)
}

func TestMultiLevelResponseIDStore_Disabled_IsNoOp(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.Enabled = false
	store := cache.NewMultiLevelResponseIDStore(cfg, nil)
	ctx := context.Background()

	store.Set(ctx, "k1", "resp_123", time.Hour)
	_, ok := store.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMultiLevelResponseIDStore_ExpiredEntryMisses(t *testing.T) {
	cfg := cache.DefaultConfig()
	store := cache.NewMultiLevelResponseIDStore(cfg, nil)
	ctx := context.Background()

	store.Set(ctx, "k1", "resp_123", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := store.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMultiLevelResponseIDStore_Delete(t *testing.T) {
	cfg := cache.DefaultConfig()
	store := cache.NewMultiLevelResponseIDStore(cfg, nil)
	ctx := context.Background()

	store.Set(ctx, "k1", "resp_123", time.Hour)
	store.Delete(ctx, "k1")
	_, ok := store.Get(ctx, "k1")
	assert.False(t, ok)
}

// Local-tier LRU eviction: once LocalMaxSize is exceeded, the
// least-recently-used entry is evicted first.
func TestMultiLevelResponseIDStore_LRUEvictsOldest(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.LocalMaxSize = 2
	cfg.EnableRedis = false
	store := cache.NewMultiLevelResponseIDStore(cfg, nil)
	ctx := context.Background()

	store.Set(ctx, "a", "1", time.Hour)
	store.Set(ctx, "b", "2", time.Hour)
	// touch "a" so "b" becomes the least-recently-used entry
	_, _ = store.Get(ctx, "a")
	store.Set(ctx, "c", "3", time.Hour)

	_, okA := store.Get(ctx, "a")
	_, okB := store.Get(ctx, "b")
	_, okC := store.Get(ctx, "c")
	assert.True(t, okA)
	assert.False(t, okB, "least-recently-used entry should have been evicted")
	assert.True(t, okC)
}

// §4.5 Open Question 5 resolution: a stale previous_response_id rejection
// evicts the cached mapping so the next call starts fresh.
func TestEvictOnRejectedID_EvictsOnlyWhenStale(t *testing.T) {
	cfg := cache.DefaultConfig()
	store := cache.NewMultiLevelResponseIDStore(cfg, nil)
	ctx := context.Background()
	store.Set(ctx, "k1", "resp_123", time.Hour)

	cache.EvictOnRejectedID(ctx, store, "k1", false)
	_, ok := store.Get(ctx, "k1")
	assert.True(t, ok, "non-stale rejection must not evict")

	cache.EvictOnRejectedID(ctx, store, "k1", true)
	_, ok = store.Get(ctx, "k1")
	assert.False(t, ok, "stale rejection must evict the mapping")
}

func TestEvictOnRejectedID_EmptyKeyIsNoOp(t *testing.T) {
	cfg := cache.DefaultConfig()
	store := cache.NewMultiLevelResponseIDStore(cfg, nil)
	ctx := context.Background()
	store.Set(ctx, "k1", "resp_123", time.Hour)

	cache.EvictOnRejectedID(ctx, store, "", true)
	_, ok := store.Get(ctx, "k1")
	assert.True(t, ok)
}
