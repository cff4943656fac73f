package kvstore

import (
	"context"
	"fmt"
	"time"

	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type redisClient interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	Del(context.Context, ...string) error
	KVKey(string) string
}

// Redis stores entries as plain redis strings under the kv namespace.
type Redis struct {
	client redisClient
	ttl    time.Duration
}

// NewRedis builds a redis-backed store. A positive ttl is refreshed on every write.
func NewRedis(client redisClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.client.KVKey(key))
	if pkgredis.IsNil(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kvstore redis get %q: %w", key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.client.KVKey(key), value, r.ttl); err != nil {
		return fmt.Errorf("kvstore redis set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.client.KVKey(key)); err != nil {
		return fmt.Errorf("kvstore redis remove %q: %w", key, err)
	}
	return nil
}
