package middleware

import (
	"net/http"
	"strconv"
	"time"

	"telegram_rewards/internal/metrics"

	"github.com/gin-gonic/gin"
)

// GameRateLimit limits economy actions per user (not per IP).
// Requires JWT to run first.
func GameRateLimit(maxActions int, window time.Duration) gin.HandlerFunc {
	return userRateLimit("", maxActions, window)
}

// GameRateLimitByType limits one action type per user separately, e.g. attacks.
func GameRateLimitByType(actionType string, maxActions int, window time.Duration) gin.HandlerFunc {
	return userRateLimit(actionType, maxActions, window)
}

func userRateLimit(actionType string, maxActions int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(maxActions, window)
	windowKey := strconv.FormatInt(int64(window.Seconds()), 10)

	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}

		label := "game:" + c.FullPath()
		key := "game_rl:" + strconv.FormatInt(userID, 10) + ":" + windowKey
		if actionType != "" {
			label = "game:" + actionType
			key = "game_rl:" + actionType + ":" + strconv.FormatInt(userID, 10) + ":" + windowKey
		}

		var blocked bool
		if redisClient == nil {
			blocked = !local.Allow(key)
		} else {
			val, err := hit(c.Request.Context(), key, window)
			if err != nil {
				c.Header("X-GameRateLimit-Error", "redis-error")
				c.Next()
				return
			}
			c.Header("X-GameRateLimit-Limit", strconv.Itoa(maxActions))
			c.Header("X-GameRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxActions)-val), 10))
			blocked = val > int64(maxActions)
		}

		if blocked {
			metrics.RLBlocked.WithLabelValues(label).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many actions",
				"code":        "rate_limited",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		metrics.RLRequests.WithLabelValues(label).Inc()
		c.Next()
	}
}
