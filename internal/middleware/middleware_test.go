package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(handler gin.HandlerFunc, header map[string]string) int {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", handler, func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestInternalAuthMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		header   string
		wantCode int
	}{
		{"valid key", "secret", "secret", http.StatusOK},
		{"wrong key", "secret", "guess", http.StatusUnauthorized},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"not configured", "", "secret", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := serve(InternalAuthMiddleware(tt.key), map[string]string{APIKeyHeader: tt.header})
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	limiter := NewKeyedRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 2, IdleTTL: time.Minute})
	handler := RateLimitMiddleware(limiter)

	alice := map[string]string{"X-User-ID": "alice"}
	assert.Equal(t, http.StatusOK, serve(handler, alice))
	assert.Equal(t, http.StatusOK, serve(handler, alice))
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, alice))

	assert.Equal(t, http.StatusOK, serve(handler, map[string]string{"X-User-ID": "bob"}))
	assert.Equal(t, 2, limiter.Len())
}

func TestKeyedRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewKeyedRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	limiter.now = func() time.Time { return now }

	limiter.Allow("old")
	now = now.Add(2 * time.Minute)
	limiter.Allow("fresh")

	assert.Equal(t, 1, limiter.Cleanup())
	assert.Equal(t, 1, limiter.Len())
}
