package limiter

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// failureScript increments the failure counter of KEYS[1] inside a window of
// ARGV[1] ms and, when ARGV[2] failures are reached, sets KEYS[2] for ARGV[3] ms.
// It returns the block TTL in ms, or 0.
var failureScript = redis.NewScript(`
local fails = redis.call('INCR', KEYS[1])
if fails == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
if fails >= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
  return tonumber(ARGV[3])
end
return 0
`)

// RedisClient is the part of *redis.Client the limiter uses.
type RedisClient interface {
	redis.Scripter
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis is a limiter shared by every server instance using the same Redis.
type Redis struct {
	rdb    RedisClient
	prefix string
	policy Policy
}

// NewRedis constructs a Redis-backed limiter. Keys are namespaced by prefix.
func NewRedis(rdb RedisClient, prefix string, p Policy) *Redis {
	if prefix == "" {
		prefix = "bagtrack:login"
	}
	return &Redis{rdb: rdb, prefix: prefix, policy: p}
}

func (l *Redis) keys(key string, ipHash []byte) (fails, block string) {
	base := l.prefix + ":" + strconv.Quote(key) + ":" + hex.EncodeToString(ipHash)
	return base + ":fails", base + ":block"
}

// Allow reports whether the block key is absent.
func (l *Redis) Allow(ctx context.Context, key string, ipHash []byte) (bool, time.Duration, error) {
	_, block := l.keys(key, ipHash)
	ttl, err := l.rdb.PTTL(ctx, block).Result()
	if err != nil {
		return false, 0, fmt.Errorf("limiter pttl: %w", err)
	}
	// -2 missing key, -1 no expiry
	if ttl <= 0 {
		return true, 0, nil
	}
	return false, ttl, nil
}

// Success drops the failure counter.
func (l *Redis) Success(ctx context.Context, key string, ipHash []byte) error {
	fails, _ := l.keys(key, ipHash)
	if err := l.rdb.Del(ctx, fails).Err(); err != nil {
		return fmt.Errorf("limiter del: %w", err)
	}
	return nil
}

// Failure records a failed attempt atomically.
func (l *Redis) Failure(ctx context.Context, key string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := l.keys(key, ipHash)
	ms, err := failureScript.Run(ctx, l.rdb, []string{fails, block},
		l.policy.Window.Milliseconds(), l.policy.MaxFails, l.policy.BlockFor.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("limiter script: %w", err)
	}
	if ms <= 0 {
		return false, 0, nil
	}
	return true, time.Duration(ms) * time.Millisecond, nil
}
