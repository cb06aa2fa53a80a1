package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a redis-backed sliding-window limiter. The public
// card-query channel is the reason this exists: sync submissions and login
// attempts are anonymous and must be throttled per IP.
type RateLimiter struct {
	client *redis.Client
}

type Config struct {
	Requests int           // requests allowed per window
	Window   time.Duration // window length
}

var (
	// PublicSyncLimit throttles anonymous sync submissions.
	PublicSyncLimit = Config{
		Requests: 10,
		Window:   time.Minute,
	}

	// LoginLimit throttles admin login attempts.
	LoginLimit = Config{
		Requests: 5,
		Window:   time.Minute,
	}

	// AdminLimit covers authenticated admin API traffic.
	AdminLimit = Config{
		Requests: 100,
		Window:   time.Minute,
	}

	// SignatureFailureLimit counts rejected sync signatures per IP; clients
	// that exceed it are blocked outright for BlockDuration.
	SignatureFailureLimit = Config{
		Requests: 5,
		Window:   5 * time.Minute,
	}
)

// BlockDuration is how long a client stays blocked after tripping
// SignatureFailureLimit.
const BlockDuration = 15 * time.Minute

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		client: redisClient,
	}
}

type Info struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	Reset      time.Time     `json:"reset"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Allowed    bool          `json:"allowed"`
}

// Check records the request in a redis sorted set keyed by arrival time and
// reports whether it fits the window.
func (rl *RateLimiter) Check(ctx context.Context, key string, cfg Config) (*Info, error) {
	now := time.Now()
	windowStart := now.Add(-cfg.Window)

	pipe := rl.client.Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixMilli()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, cfg.Window+time.Minute)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := countCmd.Val()
	allowed := count < int64(cfg.Requests)

	info := &Info{
		Limit:     cfg.Requests,
		Remaining: cfg.Requests - int(count),
		Reset:     now.Add(cfg.Window),
		Allowed:   allowed,
	}

	if info.Remaining < 0 {
		info.Remaining = 0
	}
	if !allowed {
		info.RetryAfter = cfg.Window
	}

	return info, nil
}

// Block temporarily blocks a client (repeated invalid sync signatures).
func (rl *RateLimiter) Block(ctx context.Context, ip string, duration time.Duration) error {
	return rl.client.Set(ctx, blockKey(ip), "1", duration).Err()
}

// IsBlocked checks whether a client is currently blocked.
func (rl *RateLimiter) IsBlocked(ctx context.Context, ip string) (bool, error) {
	result, err := rl.client.Exists(ctx, blockKey(ip)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

func blockKey(ip string) string {
	return fmt.Sprintf("misacard:blocked:%s", ip)
}
