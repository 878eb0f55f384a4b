package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cargotrack/internal/config"
	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/logger"
)

// RateLimiter counts attempts per key in Redis using a fixed window.
type RateLimiter struct {
	c *redis.Client
}

// NewRateLimiter creates a limiter over an existing Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{c: client}
}

// Allow increments the key and sets the window TTL on first use.
// Returns (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("redis ratelimit: %w", err)
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// LoginRateLimit throttles login attempts per client IP. When Redis is
// unreachable the request is allowed through; losing the throttle must
// not take logins down with it.
func LoginRateLimit(limiter *RateLimiter, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:login:%s", c.ClientIP())

		allowed, n, err := limiter.Allow(c.Request.Context(), key, cfg.LoginRateLimit, cfg.LoginRateWindow)
		if err != nil {
			logger.Get().Warnw("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			logger.Get().Infow("login throttled", "client_ip", c.ClientIP(), "attempts", n)
			abortWithAppError(c, apperrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
