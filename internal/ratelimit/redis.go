package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares fixed-window counters across instances via Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:"}
}

// Incr implements Store. The first hit of a window sets the key expiry, so
// the counter disappears on its own when the window closes.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := s.prefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
		return count, window, nil
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read rate limit ttl: %w", err)
	}
	if ttl < 0 {
		// Key lost its expiry (for example after a restart mid-window);
		// reattach it rather than leaving a counter that never resets.
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("failed to reset rate limit expiry: %w", err)
		}
		ttl = window
	}

	return count, ttl, nil
}
