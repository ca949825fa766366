package storage

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStorage stores each cart list as a JSON string. With a positive TTL
// every save refreshes the expiry, plus up to four minutes of jitter.
type RedisStorage struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client:  client,
		baseTTL: ttl,
	}
}

func (r *RedisStorage) Load(ctx context.Context, key string) ([]domain.CartItem, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.CartItem{}, nil
	}
	if err != nil {
		return nil, unavailable("redis get failed", err)
	}
	return decodeItems(data)
}

func (r *RedisStorage) Save(ctx context.Context, key string, items []domain.CartItem) error {
	data, err := encodeItems(items)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if r.baseTTL > 0 {
		ttl = r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return unavailable("redis set failed", err)
	}
	return nil
}
