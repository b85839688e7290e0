package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares one sliding window across processes using a sorted set keyed
// by send time. Useful when several loop instances broadcast through the same quota.
type RedisLimiter struct {
	client *redis.Client
	key    string
	window time.Duration
}

// NewRedisLimiter connects a limiter to the given redis address.
func NewRedisLimiter(addr, key string, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Hour
	}
	if key == "" {
		key = "broadcast:window"
	}
	return &RedisLimiter{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
		window: window,
	}
}

// Allow trims expired members, checks the cardinality, and reserves a slot. The
// returned error marks infrastructure trouble, not a limit breach.
func (r *RedisLimiter) Allow(ctx context.Context, now time.Time, limit int) (bool, error) {
	cutoff := now.Add(-r.window).UnixNano()

	if err := r.client.ZRemRangeByScore(ctx, r.key, "-inf", fmt.Sprintf("%d", cutoff)).Err(); err != nil {
		return false, fmt.Errorf("trim rate window: %w", err)
	}
	count, err := r.client.ZCard(ctx, r.key).Result()
	if err != nil {
		return false, fmt.Errorf("count rate window: %w", err)
	}
	if limit > 0 && count >= int64(limit) {
		return false, nil
	}

	member := redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()}
	if err := r.client.ZAdd(ctx, r.key, member).Err(); err != nil {
		return false, fmt.Errorf("reserve rate slot: %w", err)
	}
	r.client.Expire(ctx, r.key, r.window)
	return true, nil
}

// Close releases the redis connection.
func (r *RedisLimiter) Close() error { return r.client.Close() }
