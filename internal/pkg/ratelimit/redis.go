package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes, counts and conditionally records in one round trip.
// KEYS[1] sorted set; ARGV: now(ms), cutoff(ms), max, member, ttl(ms)
var slidingWindowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
local max = tonumber(ARGV[3])
if count >= max then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local score = 0
  if oldest[2] then score = tonumber(oldest[2]) end
  return {0, count, score}
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, count + 1, 0}
`)

// RedisLimiter runs the sliding window on a Redis sorted set so several
// instances share one budget per key.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

// NewRedisLimiter returns a limiter storing keys under prefix; nil now means time.Now.
func NewRedisLimiter(client redis.Scripter, prefix string, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) (Result, error) {
	if key == "" {
		return Result{Allowed: false}, nil
	}

	now := l.now()
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	vals, err := slidingWindowScript.Run(ctx, l.client, []string{l.prefix + key},
		nowMs, cutoff, max, member, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, err
	}

	if vals[0] == 1 {
		return Result{Allowed: true, Remaining: max - int(vals[1])}, nil
	}
	oldest := time.UnixMilli(vals[2])
	return Result{Allowed: false, RetryAfter: retryAfter(oldest, now, window)}, nil
}
