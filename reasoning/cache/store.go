package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResponseIDStore persists prefixKey -> response_id mappings with
// per-entry TTL. Response-id entries are namespaced under "response_id:"
// to avoid collision with any other cached value a host might layer in
// alongside this store. Disabling a store at construction time makes
// Get/Set no-ops.
type ResponseIDStore interface {
	Get(ctx context.Context, prefixKey string) (string, bool)
	Set(ctx context.Context, prefixKey, responseID string, ttl time.Duration)
	Delete(ctx context.Context, prefixKey string)
}

const responseIDNamespace = "response_id:"

// localStore is an in-process LRU with per-entry expiry, the same shape
// as the local tier in llm/cache's MultiLevelCache but scoped to plain
// strings since response ids are small.
type localStore struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

type localEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

func newLocalStore(capacity int) *localStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &localStore{capacity: capacity, items: make(map[string]*list.Element), order: list.New()}
}

func (s *localStore) Get(ctx context.Context, prefixKey string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[prefixKey]
	if !ok {
		return "", false
	}
	e := el.Value.(*localEntry)
	if time.Now().After(e.expiresAt) {
		s.order.Remove(el)
		delete(s.items, prefixKey)
		return "", false
	}
	s.order.MoveToFront(el)
	return e.value, true
}

func (s *localStore) Set(ctx context.Context, prefixKey, responseID string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[prefixKey]; ok {
		el.Value.(*localEntry).value = responseID
		el.Value.(*localEntry).expiresAt = time.Now().Add(ttl)
		s.order.MoveToFront(el)
		return
	}
	el := s.order.PushFront(&localEntry{key: prefixKey, value: responseID, expiresAt: time.Now().Add(ttl)})
	s.items[prefixKey] = el
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*localEntry).key)
	}
}

func (s *localStore) Delete(ctx context.Context, prefixKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[prefixKey]; ok {
		s.order.Remove(el)
		delete(s.items, prefixKey)
	}
}

// RedisResponseIDStore persists response ids in Redis so they survive
// process restarts, matching the original's disk-backed cache intent.
type RedisResponseIDStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisResponseIDStore wraps an existing Redis client.
func NewRedisResponseIDStore(client *redis.Client, logger *zap.Logger) *RedisResponseIDStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisResponseIDStore{client: client, logger: logger}
}

func (r *RedisResponseIDStore) Get(ctx context.Context, prefixKey string) (string, bool) {
	val, err := r.client.Get(ctx, responseIDNamespace+prefixKey).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (r *RedisResponseIDStore) Set(ctx context.Context, prefixKey, responseID string, ttl time.Duration) {
	if err := r.client.Set(ctx, responseIDNamespace+prefixKey, responseID, ttl).Err(); err != nil {
		r.logger.Warn("redis response-id set failed", zap.String("key", prefixKey), zap.Error(err))
	}
}

func (r *RedisResponseIDStore) Delete(ctx context.Context, prefixKey string) {
	if err := r.client.Del(ctx, responseIDNamespace+prefixKey).Err(); err != nil {
		r.logger.Warn("redis response-id delete failed", zap.String("key", prefixKey), zap.Error(err))
	}
}

// Config controls which tiers a MultiLevelResponseIDStore composes and
// their TTLs. TTL defaults to 24h per §4.5.
type Config struct {
	Enabled      bool
	TTL          time.Duration
	EnableLocal  bool
	LocalMaxSize int
	EnableRedis  bool
	Redis        *redis.Client
}

// DefaultConfig returns the §4.5 defaults: enabled, 24h TTL, local tier
// only (Redis is opt-in since it requires a client).
func DefaultConfig() Config {
	return Config{Enabled: true, TTL: 24 * time.Hour, EnableLocal: true, LocalMaxSize: 1000}
}

// MultiLevelResponseIDStore composes an in-process tier with an
// optional Redis tier, backfilling local on a Redis hit, mirroring
// MultiLevelCache's tiering shape in llm/cache/prompt_cache.go — scoped
// down to response-id strings only.
type MultiLevelResponseIDStore struct {
	cfg    Config
	local  *localStore
	redis  *RedisResponseIDStore
	logger *zap.Logger
}

// NewMultiLevelResponseIDStore builds a store from cfg. When
// cfg.Enabled is false, Get always misses and Set/Delete are no-ops.
func NewMultiLevelResponseIDStore(cfg Config, logger *zap.Logger) *MultiLevelResponseIDStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	s := &MultiLevelResponseIDStore{cfg: cfg, logger: logger}
	if cfg.EnableLocal {
		s.local = newLocalStore(cfg.LocalMaxSize)
	}
	if cfg.EnableRedis && cfg.Redis != nil {
		s.redis = NewRedisResponseIDStore(cfg.Redis, logger)
	}
	return s
}

func (s *MultiLevelResponseIDStore) Get(ctx context.Context, prefixKey string) (string, bool) {
	if !s.cfg.Enabled {
		return "", false
	}
	if s.local != nil {
		if v, ok := s.local.Get(ctx, prefixKey); ok {
			return v, true
		}
	}
	if s.redis != nil {
		if v, ok := s.redis.Get(ctx, prefixKey); ok {
			if s.local != nil {
				s.local.Set(ctx, prefixKey, v, s.cfg.TTL)
			}
			return v, true
		}
	}
	return "", false
}

func (s *MultiLevelResponseIDStore) Set(ctx context.Context, prefixKey, responseID string, ttl time.Duration) {
	if !s.cfg.Enabled {
		return
	}
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	if s.local != nil {
		s.local.Set(ctx, prefixKey, responseID, ttl)
	}
	if s.redis != nil {
		s.redis.Set(ctx, prefixKey, responseID, ttl)
	}
}

func (s *MultiLevelResponseIDStore) Delete(ctx context.Context, prefixKey string) {
	if !s.cfg.Enabled {
		return
	}
	if s.local != nil {
		s.local.Delete(ctx, prefixKey)
	}
	if s.redis != nil {
		s.redis.Delete(ctx, prefixKey)
	}
}

// EvictOnRejectedID implements §4.5 Open Question 5's resolution: when a
// call made with a previous response id fails in a way that looks like
// the id itself was rejected, drop the cached mapping so the next call
// starts fresh instead of repeating the same rejection forever.
func EvictOnRejectedID(ctx context.Context, store ResponseIDStore, prefixKey string, staleID bool) {
	if staleID && prefixKey != "" {
		store.Delete(ctx, prefixKey)
	}
}
