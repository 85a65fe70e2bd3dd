// internal/app/system/ratelimit/redis.go
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter backed by Redis INCR/EXPIRE,
// for deployments with more than one API instance. Fails open on Redis
// errors so a cache outage does not block posting.
type RedisLimiter struct {
	rdb      *redis.Client
	limit    int
	duration time.Duration
	prefix   string
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(rdb *redis.Client, limit int, duration time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, duration: duration, prefix: "rl:post:"}
}

// Allow consumes one slot for the key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + key

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		l.rdb.Expire(ctx, redisKey, l.duration)
	}
	return count <= int64(l.limit), nil
}
