package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withMockRedis(t *testing.T) redismock.ClientMock {
	t.Helper()
	client, mock := redismock.NewClientMock()
	SetRedisClient(client)
	t.Cleanup(func() { SetRedisClient(nil) })
	return mock
}

func limitedRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/test", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.7:5555"
	r.ServeHTTP(w, req)
	return w
}

func TestRedisRateLimit_FixedWindow(t *testing.T) {
	mock := withMockRedis(t)
	window := time.Minute
	key := "rl:60:10.0.0.7"

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, window).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectIncr(key).SetVal(3)

	r := limitedRouter(RedisRateLimit(2, window))

	w := get(r, "/test")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, "/test")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, "/test")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRateLimit_FailOpenOnRedisError(t *testing.T) {
	mock := withMockRedis(t)
	mock.ExpectIncr("rl:60:10.0.0.7").SetErr(errors.New("connection refused"))

	w := get(limitedRouter(RedisRateLimit(1, time.Minute)), "/test")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "redis-error", w.Header().Get("X-RateLimit-Error"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRateLimit_InMemoryFallback(t *testing.T) {
	SetRedisClient(nil)
	r := limitedRouter(RedisRateLimit(2, time.Hour))

	assert.Equal(t, http.StatusOK, get(r, "/test").Code)
	assert.Equal(t, http.StatusOK, get(r, "/test").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/test").Code)
}

func TestGameRateLimit_PerUserKey(t *testing.T) {
	mock := withMockRedis(t)
	key := "game_rl:attack:42:60"
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)

	r := gin.New()
	r.GET("/test", func(c *gin.Context) { c.Set(UserIDKey, int64(42)) }, GameRateLimitByType("attack", 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, get(r, "/test").Code)
	w := get(r, "/test")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGameRateLimit_RequiresUser(t *testing.T) {
	SetRedisClient(nil)
	w := get(limitedRouter(GameRateLimit(5, time.Minute)), "/test")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisRateLimitIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}

	InitRedisRateLimiter(addr, os.Getenv("REDIS_PASSWORD"), db)
	t.Cleanup(func() {
		_ = CloseRedis()
		SetRedisClient(nil)
	})

	r := limitedRouter(RedisRateLimit(2, 2*time.Second))
	srv := httptest.NewServer(r)
	defer srv.Close()

	for i := 0; i < 2; i++ {
		res, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)
	}

	res, err := http.Get(srv.URL + "/test")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)

	time.Sleep(2100 * time.Millisecond)
	res, err = http.Get(srv.URL + "/test")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
