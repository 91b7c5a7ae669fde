package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"penjualan/backend/internal/domain"
)

const paymentMethodKeyPrefix = "penjualan:payment_method:"

type RedisPaymentMethodCache struct {
	client *redis.Client
}

func NewRedisPaymentMethodCache(addr string, password string, db int) *RedisPaymentMethodCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisPaymentMethodCache{client: client}
}

func (c *RedisPaymentMethodCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisPaymentMethodCache) Close() error {
	return c.client.Close()
}

func (c *RedisPaymentMethodCache) Get(ctx context.Context, methodID string) (*domain.PaymentMethod, bool, error) {
	val, err := c.client.Get(ctx, paymentMethodKey(methodID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var method domain.PaymentMethod
	if err := json.Unmarshal(val, &method); err != nil {
		return nil, false, err
	}
	return &method, true, nil
}

func (c *RedisPaymentMethodCache) Set(ctx context.Context, method *domain.PaymentMethod, ttl time.Duration) error {
	if method == nil || method.ID == "" {
		return nil
	}
	payload, err := json.Marshal(method)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, paymentMethodKey(method.ID), payload, ttl).Err()
}

func (c *RedisPaymentMethodCache) Delete(ctx context.Context, methodID string) error {
	return c.client.Del(ctx, paymentMethodKey(methodID)).Err()
}

func paymentMethodKey(methodID string) string {
	return paymentMethodKeyPrefix + methodID
}
