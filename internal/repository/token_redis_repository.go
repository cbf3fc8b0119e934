package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenRepository keeps the session token in Redis.
type RedisTokenRepository struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisTokenRepository stores the token under key; ttl of zero keeps it
// until deleted.
func NewRedisTokenRepository(client redis.Cmdable, key string, ttl time.Duration) *RedisTokenRepository {
	return &RedisTokenRepository{client: client, key: key, ttl: ttl}
}

// Load returns the stored token or "" when none exists.
func (r *RedisTokenRepository) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return token, nil
}

// Save replaces the stored token.
func (r *RedisTokenRepository) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// Delete removes the stored token.
func (r *RedisTokenRepository) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", r.key, err)
	}
	return nil
}
