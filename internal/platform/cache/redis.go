// Package cache wraps the Redis client used for short-lived report caching.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss indicates the key is not cached.
var ErrMiss = errors.New("cache: miss")

// New creates a Redis client and verifies connectivity.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Store provides JSON get/set with TTL on top of a Redis client.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore wraps client with a default TTL for Set.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Store{client: client, ttl: ttl}
}

// GetJSON loads key into dest. Returns ErrMiss when absent.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) error {
	if s == nil || s.client == nil {
		return ErrMiss
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetJSON stores value under key with the configured TTL. Failures are
// returned but safe to ignore: the cache is advisory.
func (s *Store) SetJSON(ctx context.Context, key string, value any) error {
	if s == nil || s.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// Invalidate removes keys matching the exact names given.
func (s *Store) Invalidate(ctx context.Context, keys ...string) error {
	if s == nil || s.client == nil || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
