package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/metrics"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes a shared Redis client used by the middleware.
// If the ping fails redisClient stays nil and limiters fall back to in-process buckets.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory rate limits", "addr", addr, "error", err)
		_ = client.Close()
		return
	}
	redisClient = client
	logger.Info("redis rate limiter enabled", "addr", addr)
}

// SetRedisClient replaces the shared client. Passing nil switches to in-memory limits.
func SetRedisClient(client *redis.Client) {
	redisClient = client
}

// CloseRedis releases the shared client on shutdown.
func CloseRedis() error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Close()
}

// RateLimitBackend reports which limiter is active. A configured Redis that
// stops answering is an error; the limiter itself keeps failing open.
func RateLimitBackend(ctx context.Context) (string, error) {
	if redisClient == nil {
		return "in-memory", nil
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return "", err
	}
	return "redis", nil
}

// hit bumps the fixed-window counter for key and returns the count in this window.
func hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		if err := redisClient.Expire(ctx, key, window).Err(); err != nil {
			logger.Warn("rate limit expire failed", "key", key, "error", err)
		}
	}
	return val, nil
}

// RedisRateLimit implements a fixed-window per-IP limiter using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<ip>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(maxRequests, window)
	windowKey := strconv.FormatInt(int64(window.Seconds()), 10)

	return func(c *gin.Context) {
		ident := c.ClientIP()
		endpoint := c.FullPath()

		if redisClient == nil {
			if !local.Allow(ident) {
				metrics.RLBlocked.WithLabelValues(endpoint).Inc()
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "rate_limited"})
				return
			}
			metrics.RLRequests.WithLabelValues(endpoint).Inc()
			c.Next()
			return
		}

		val, err := hit(c.Request.Context(), "rl:"+windowKey+":"+ident, window)
		if err != nil {
			// fail-open
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

		if val > int64(maxRequests) {
			metrics.RLBlocked.WithLabelValues(endpoint).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "rate_limited"})
			return
		}

		metrics.RLRequests.WithLabelValues(endpoint).Inc()
		c.Next()
	}
}
