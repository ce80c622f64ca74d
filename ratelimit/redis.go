package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// windowScript increments the counter and starts the window on the first
// hit, atomically on the server.
var windowScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisCounter is a fixed-window limiter shared by every gateway instance.
type RedisCounter struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisCounter creates a limiter on rdb.
func NewRedisCounter(rdb goredis.UniversalClient) *RedisCounter {
	return &RedisCounter{rdb: rdb, prefix: "hookgate:"}
}

// Allow counts the request and reports whether it is within limit.
func (l *RedisCounter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	n, err := windowScript.Run(ctx, l.rdb, []string{l.prefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis: %w", err)
	}
	return n <= int64(limit), nil
}
