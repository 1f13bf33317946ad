package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"creator-scout-go/internal/filter"
)

// Cache stores resolved countries by normalized name. Get returns nil, nil
// on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*filter.Country, error)
	Set(ctx context.Context, key string, c *filter.Country) error
}

type NopCache struct{}

func (NopCache) Get(context.Context, string) (*filter.Country, error) { return nil, nil }
func (NopCache) Set(context.Context, string, *filter.Country) error { return nil }

// MemoryCache is an unbounded in-process cache. Country names are a small
// closed set.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]filter.Country
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]filter.Country)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*filter.Country, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, c *filter.Country) error {
	if c == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = *c
	return nil
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache shares lookups across instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

func redisKey(key string) string { return "creator-scout:geocode:" + key }

func (r *RedisCache) Get(ctx context.Context, key string) (*filter.Country, error) {
	raw, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c filter.Country
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cached country: %w", err)
	}
	return &c, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, c *filter.Country) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(key), raw, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
