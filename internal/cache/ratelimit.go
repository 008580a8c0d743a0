package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult is the outcome of one token-bucket draw.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucket describes one family of token buckets sharing a key prefix.
type bucket struct {
	prefix string
	// idle is how long an untouched bucket survives in Redis.
	idle time.Duration
}

var (
	userBucket = bucket{prefix: "ratelimit:user:", idle: 2 * time.Minute}
	ipBucket   = bucket{prefix: "ratelimit:ip:", idle: 10 * time.Second}
)

// drawScript refills a bucket for the elapsed milliseconds and takes one
// token if available. It returns {allowed, retry_after_ms, remaining}.
var drawScript = redis.NewScript(`
local rate_ms = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local idle_ms = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now_ms

tokens = math.min(burst, tokens + math.max(0, now_ms - ts) * rate_ms)

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait_ms = math.ceil((1 - tokens) / rate_ms)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now_ms)
redis.call('PEXPIRE', KEYS[1], idle_ms)

return {allowed, wait_ms, math.floor(tokens)}
`)

// CheckUserRateLimit draws from the caller's API bucket. A non-positive
// rate never limits and does not touch Redis.
func (c *Cache) CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return unlimited(burst, time.Minute), nil
	}
	return c.draw(ctx, userBucket, userID, float64(ratePerMinute)/60, burst)
}

// CheckIPRateLimit draws from the bucket of a client address. Addresses are
// stored hashed.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return unlimited(burst, time.Second), nil
	}
	return c.draw(ctx, ipBucket, hashIP(ip), float64(ratePerSecond), burst)
}

func unlimited(burst int, window time.Duration) *RateLimitResult {
	return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now().Add(window)}
}

func (c *Cache) draw(ctx context.Context, b bucket, subject string, perSecond float64, burst int) (*RateLimitResult, error) {
	now := time.Now()

	res, err := drawScript.Run(ctx, c.client,
		[]string{b.prefix + subject},
		perSecond/1000, burst, now.UnixMilli(), b.idle.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", b.prefix, err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit %s: unexpected reply %v", b.prefix, res)
	}

	retryAfter := time.Duration(res[1]) * time.Millisecond
	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  res[2],
		ResetAt:    now.Add(time.Duration(float64(time.Second) / perSecond)),
		RetryAfter: retryAfter,
	}, nil
}

// hashIP keeps raw client addresses out of Redis.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
