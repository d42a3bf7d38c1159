// Package ratelimit throttles login attempts with fixed-window counters in
// Redis, keyed by account email and by client IP.
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/logging"
)

// LoginLimiter is what the auth service needs from a throttle.
type LoginLimiter interface {
	// Allow returns common.ErrRateLimited when either key is over its budget.
	Allow(ctx context.Context, email, ip string) error
	// Fail records a failed attempt.
	Fail(ctx context.Context, email, ip string)
	// Reset clears the counters after a successful login.
	Reset(ctx context.Context, email, ip string)
}

// Redis is a LoginLimiter backed by INCR/EXPIRE counters. Redis errors are
// logged and the attempt is allowed.
type Redis struct {
	client      redis.Cmdable
	maxAttempts int64
	window      time.Duration
	log         logging.Logger
}

// NewRedis builds a limiter allowing maxAttempts failures per window.
func NewRedis(client redis.Cmdable, maxAttempts int, window time.Duration, log logging.Logger) *Redis {
	return &Redis{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
		log:         log.With("module", "ratelimit"),
	}
}

func (l *Redis) Allow(ctx context.Context, email, ip string) error {
	for _, key := range keys(email, ip) {
		count, err := l.client.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			l.log.Warn(ctx, "login limiter unavailable, allowing attempt", "error", err)
			return nil
		}
		if count >= l.maxAttempts {
			return common.ErrRateLimited
		}
	}
	return nil
}

func (l *Redis) Fail(ctx context.Context, email, ip string) {
	for _, key := range keys(email, ip) {
		count, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			l.log.Warn(ctx, "login limiter increment failed", "error", err)
			return
		}
		if count == 1 {
			if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
				l.log.Warn(ctx, "login limiter expire failed", "error", err)
			}
		}
	}
}

func (l *Redis) Reset(ctx context.Context, email, ip string) {
	if err := l.client.Del(ctx, keys(email, ip)...).Err(); err != nil {
		l.log.Warn(ctx, "login limiter reset failed", "error", err)
	}
}

// Nop never throttles. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Allow(context.Context, string, string) error { return nil }
func (Nop) Fail(context.Context, string, string)        {}
func (Nop) Reset(context.Context, string, string)       {}

func keys(email, ip string) []string {
	out := []string{"login:email:" + strings.ToLower(strings.TrimSpace(email))}
	if ip != "" {
		out = append(out, "login:ip:"+ip)
	}
	return out
}
