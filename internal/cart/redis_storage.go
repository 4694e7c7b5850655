package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps carts in Redis so they survive restarts and are
// visible to every instance.
type RedisStorage struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisStorage{
		client:  client,
		baseTTL: ttl,
	}
}

func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	// spread expirations so carts written together do not expire together
	jitter := time.Duration(rand.Intn(60)) * time.Minute
	if err := r.client.Set(ctx, key, value, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
