package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Cache stores the serialized channel list between sessions. It is a seed,
// never the source of truth.
type Cache interface {
	Load(ctx context.Context, userID string) ([]byte, error)
	Save(ctx context.Context, userID string, data []byte) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(userID string) string {
	return "poly_channels:" + userID
}

func (c *RedisCache) Load(ctx context.Context, userID string) ([]byte, error) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load channel cache: %w", err)
	}
	return data, nil
}

func (c *RedisCache) Save(ctx context.Context, userID string, data []byte) error {
	if err := c.client.Set(ctx, cacheKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save channel cache: %w", err)
	}
	return nil
}

type MemoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string][]byte)}
}

func (c *MemoryCache) Load(_ context.Context, userID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[userID], nil
}

func (c *MemoryCache) Save(_ context.Context, userID string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[userID] = append([]byte(nil), data...)
	return nil
}
