// Package kv wraps the coordination-store client (go-redis) behind the
// minimal contract the Debounce Coordinator needs: setex, get, incr, exists,
// ttl, delete, plus keys for operational sweeps. There is no degraded no-op
// Store here: when a KV call fails, the Coordinator itself logs the error
// and turns mark_cluster_pending into a no-op.
package kv

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store is the coordination-store contract the coordinator needs.
type Store interface {
	SetEX(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
	// Keys lists keys matching pattern; reserved for operational sweeps only.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// RedisStore implements Store over a go-redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-constructed go-redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Dial builds a go-redis client from addr/password/db, matching the
// coordination-store settings config.LoadRedisConfig loads.
func Dial(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *RedisStore) SetEX(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.SetEX(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	return s.client.Keys(ctx, pattern).Result()
}
