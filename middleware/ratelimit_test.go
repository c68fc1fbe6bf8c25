package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func rateLimitedRouter(cfg RateLimitConfig) *gin.Engine {
	r := gin.New()
	r.POST("/api/admin/login", RateLimiter(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return r
}

func loginRequest(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	req.RemoteAddr = ip + ":1234"
	return req
}

func TestRateLimiterLocalFallback(t *testing.T) {
	r := rateLimitedRouter(RateLimitConfig{Limit: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		w := performRequest(r, loginRequest("192.168.1.1"))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}
	w := performRequest(r, loginRequest("192.168.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	// Other clients have their own bucket.
	w = performRequest(r, loginRequest("192.168.1.2"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterDefaultConfig(t *testing.T) {
	r := rateLimitedRouter(RateLimitConfig{})
	for i := 0; i < defaultRateLimit; i++ {
		w := performRequest(r, loginRequest("10.0.0.1"))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := performRequest(r, loginRequest("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterRedis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	key := "ratelimit:/api/admin/login:192.168.1.1"
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectIncr(key).SetVal(3)

	r := rateLimitedRouter(RateLimitConfig{Limit: 2, Window: time.Minute, Redis: db})

	assert.Equal(t, http.StatusOK, performRequest(r, loginRequest("192.168.1.1")).Code)
	assert.Equal(t, http.StatusOK, performRequest(r, loginRequest("192.168.1.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, performRequest(r, loginRequest("192.168.1.1")).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiterRedisFailureAllowsRequest(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	mock.ExpectIncr("ratelimit:/api/admin/login:192.168.1.1").SetErr(errors.New("connection refused"))

	r := rateLimitedRouter(RateLimitConfig{Limit: 2, Window: time.Minute, Redis: db})
	assert.Equal(t, http.StatusOK, performRequest(r, loginRequest("192.168.1.1")).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetRateLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	mock.ExpectDel("ratelimit:/api/admin/login:192.168.1.1").SetVal(1)
	assert.NoError(t, ResetRateLimit(t.Context(), db, "192.168.1.1", "/api/admin/login"))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, ResetRateLimit(t.Context(), nil, "192.168.1.1", "/api/admin/login"))
}
