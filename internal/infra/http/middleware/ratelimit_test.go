package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/allayhq/api/internal/config"
	"github.com/allayhq/api/pkg/logger"
)

func newTestRateLimiter(t *testing.T, burst int) *RateLimiter {
	t.Helper()

	rl := NewRateLimiter(&config.RateLimitConfig{
		Enabled:         true,
		RequestsPerSec:  0.01,
		Burst:           burst,
		CleanupInterval: time.Minute,
	}, logger.NewNop())
	t.Cleanup(rl.Stop)
	return rl
}

func doRequest(handler http.Handler, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = ip + ":4321"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestRateLimiterEnforcesBurst(t *testing.T) {
	rl := newTestRateLimiter(t, 2)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.7").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.7").Code)

	limited := doRequest(handler, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
}

func TestRateLimiterIsPerIP(t *testing.T) {
	rl := newTestRateLimiter(t, 1)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.7").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "203.0.113.7").Code)

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.8").Code)
}

func TestRateLimitWithStopDisabled(t *testing.T) {
	mw, stop := RateLimitWithStop(&config.RateLimitConfig{Enabled: false}, logger.NewNop())
	defer stop()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.7").Code)
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := newTestRateLimiter(t, 1)
	rl.Stop()
	rl.Stop()
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:4321"
	assert.Equal(t, "192.0.2.10", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))

	// X-Real-IP wins over everything.
	r.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", ClientIP(r))
}
