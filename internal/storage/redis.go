package storage

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/go-redis/redis/v8"
)

// RedisStore is a Redis-backed Adapter.
type RedisStore struct {
	conn *redis.Client
}

func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisStore{conn: client}, nil
}

// Get retrieves a value, reporting a missing key as absent rather than an error.
func (rs *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := rs.conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores a value under key.
func (rs *RedisStore) Set(ctx context.Context, key, value string) error {
	return rs.conn.Set(ctx, key, value, 0).Err()
}

// Remove deletes a key. Removing an absent key is not an error.
func (rs *RedisStore) Remove(ctx context.Context, key string) error {
	return rs.conn.Del(ctx, key).Err()
}
