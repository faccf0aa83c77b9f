package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type RedisAvailabilityCache struct {
	client *redis.Client
}

func NewRedisAvailabilityCache(addr string, password string, db int) *RedisAvailabilityCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisAvailabilityCache{client: client}
}

func (c *RedisAvailabilityCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisAvailabilityCache) Close() error {
	return c.client.Close()
}

func availabilityKey(productID string) string {
	return "availability:" + productID
}

func (c *RedisAvailabilityCache) Get(ctx context.Context, productID string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, availabilityKey(productID)).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	qty, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, err
	}
	return qty, true, nil
}

func (c *RedisAvailabilityCache) Set(ctx context.Context, productID string, qty decimal.Decimal, ttl time.Duration) error {
	return c.client.Set(ctx, availabilityKey(productID), qty.String(), ttl).Err()
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, productID string) error {
	return c.client.Del(ctx, availabilityKey(productID)).Err()
}
