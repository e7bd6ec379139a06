package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"TaxSentinel/internal/model"
)

// ErrCacheMiss is returned by a SampleCache when no fresh entry exists.
var ErrCacheMiss = errors.New("cache miss")

// SampleCache stores fetched sample series for a bounded time.
type SampleCache interface {
	Get(ctx context.Context, key string) ([]model.TokenSample, error)
	Set(ctx context.Context, key string, samples []model.TokenSample, ttl time.Duration) error
}

func cacheKey(tokenID string, windowDays int) string {
	return fmt.Sprintf("samples:%s:%d", tokenID, windowDays)
}

// MemoryCache is an in-process SampleCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	samples []model.TokenSample
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]model.TokenSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return e.samples, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, samples []model.TokenSample, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{samples: samples, expires: m.now().Add(ttl)}
	return nil
}

// RedisCache is a SampleCache backed by Redis, storing JSON-encoded series.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]model.TokenSample, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var samples []model.TokenSample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return samples, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, samples []model.TokenSample, ttl time.Duration) error {
	raw, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachedSampleSource wraps a SampleSource with a read-through cache.
// Cache failures are logged and never fail a fetch.
type CachedSampleSource struct {
	Source SampleSource
	Cache  SampleCache
	TTL    time.Duration
	logger *zap.Logger
}

func NewCachedSampleSource(source SampleSource, cache SampleCache, ttl time.Duration, logger *zap.Logger) *CachedSampleSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSampleSource{Source: source, Cache: cache, TTL: ttl, logger: logger}
}

func (c *CachedSampleSource) Name() string { return c.Source.Name() + "+cache" }

func (c *CachedSampleSource) FetchTokenSamples(ctx context.Context, tokenID string, windowDays int) ([]model.TokenSample, error) {
	key := cacheKey(tokenID, windowDays)
	samples, err := c.Cache.Get(ctx, key)
	if err == nil {
		c.logger.Debug("sample cache hit", zap.String("key", key))
		return samples, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("sample cache read failed", zap.String("key", key), zap.Error(err))
	}

	samples, err = c.Source.FetchTokenSamples(ctx, tokenID, windowDays)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, samples, c.TTL); err != nil {
		c.logger.Warn("sample cache write failed", zap.String("key", key), zap.Error(err))
	}
	return samples, nil
}
