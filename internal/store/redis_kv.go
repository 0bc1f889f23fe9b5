package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV backs the session store with Redis. Records carry no TTL; session
// retention is an external concern.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV wraps a Redis client as a KV.
func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, key, value, 0).Err()
}
