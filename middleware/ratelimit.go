package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	defaultRateLimit  = 5
	defaultRateWindow = 15 * time.Minute
)

// RateLimitConfig holds configuration for rate limiting. When Redis is nil a
// per-process token bucket is used instead of the shared counter.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	Redis  redis.Cmdable
}

// RateLimiter limits requests per client IP and path.
func RateLimiter(config RateLimitConfig) gin.HandlerFunc {
	if config.Limit <= 0 {
		config.Limit = defaultRateLimit
	}
	if config.Window <= 0 {
		config.Window = defaultRateWindow
	}

	var check func(ctx context.Context, key string) (bool, error)
	if config.Redis != nil {
		check = func(ctx context.Context, key string) (bool, error) {
			return checkRedisRateLimit(ctx, config.Redis, key, config.Limit, config.Window)
		}
	} else {
		local := newLocalLimiter(config.Limit, config.Window)
		check = func(_ context.Context, key string) (bool, error) {
			return local.allow(key), nil
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.Request.URL.Path
		key := rateLimitKey(clientIP, endpoint)

		allowed, err := check(c.Request.Context(), key)
		if err != nil {
			// A broken limiter must not lock everybody out.
			util.LogSecurityEvent(util.SecurityEvent{
				EventType: util.EventSuspiciousActivity,
				IP:        clientIP,
				Message:   fmt.Sprintf("Rate limit check failed: %v", err),
			})
			c.Next()
			return
		}

		if !allowed {
			util.LogRateLimitExceeded(clientIP, endpoint)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, util.APIResponse{
				Success: false,
				Error:   "rate limit exceeded",
				Msg:     util.Localize(c, util.MsgTooManyRequests),
				Data:    map[string]interface{}{},
			})
			return
		}

		c.Next()
	}
}

func rateLimitKey(clientIP, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP)
}

// checkRedisRateLimit counts requests in a fixed window that starts with the
// first request.
func checkRedisRateLimit(ctx context.Context, rdb redis.Cmdable, key string, limit int, window time.Duration) (bool, error) {
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// ResetRateLimit clears the redis counter of a client and endpoint.
func ResetRateLimit(ctx context.Context, rdb redis.Cmdable, clientIP, endpoint string) error {
	if rdb == nil {
		return fmt.Errorf("redis not available")
	}
	return rdb.Del(ctx, rateLimitKey(clientIP, endpoint)).Err()
}

// localLimiter keeps one token bucket per key. Idle buckets are dropped after
// a window.
type localLimiter struct {
	buckets *cache.Cache
	every   rate.Limit
	burst   int
	window  time.Duration
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	return &localLimiter{
		buckets: cache.New(window, window),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
	}
}

func (l *localLimiter) allow(key string) bool {
	if v, ok := l.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.buckets.Set(key, lim, l.window)
		return lim.Allow()
	}
	lim := rate.NewLimiter(l.every, l.burst)
	// Add fails when a concurrent request created the bucket first.
	if err := l.buckets.Add(key, lim, l.window); err != nil {
		if v, ok := l.buckets.Get(key); ok {
			lim = v.(*rate.Limiter)
		}
	}
	return lim.Allow()
}
