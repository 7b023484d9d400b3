package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/noticias/pkg/config"
	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/observability"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:           true,
		RequestsPerWindow: 10,
		Window:            10 * time.Second,
		Burst:             2,
		MaxTrackedClients: 100,
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	limiter := NewRateLimiter(testConfig(), WithClock(clock.Now))
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 20; i++ {
		ok, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	assert.Equal(t, 12, allowed)
	assert.Equal(t, 0, limiter.Remaining("ip:1.2.3.4"))

	// other clients have their own bucket
	ok, _ := limiter.Allow(ctx, "ip:5.6.7.8")
	assert.True(t, ok)

	// one token per second at 10 per 10s
	clock.Advance(1500 * time.Millisecond)
	ok, _ = limiter.Allow(ctx, "ip:1.2.3.4")
	assert.True(t, ok)
	ok, _ = limiter.Allow(ctx, "ip:1.2.3.4")
	assert.False(t, ok)

	clock.Advance(time.Hour)
	assert.Equal(t, 0, limiter.Remaining("ip:1.2.3.4"))
	ok, _ = limiter.Allow(ctx, "ip:1.2.3.4")
	assert.True(t, ok)
	assert.Equal(t, 11, limiter.Remaining("ip:1.2.3.4"))
}

func TestRateLimiter_BoundedClients(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTrackedClients = 5
	limiter := NewRateLimiter(cfg)

	for i := 0; i < 50; i++ {
		_, err := limiter.Allow(context.Background(), fmt.Sprintf("ip:10.0.0.%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, limiter.Tracked())
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{})
	assert.Equal(t, config.Default().RateLimit.RequestsPerWindow, limiter.Limit())
	assert.Equal(t, time.Minute, limiter.Window())
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("connection refused")
}
func (brokenLimiter) Limit() int            { return 1 }
func (brokenLimiter) Window() time.Duration { return time.Minute }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerWindow = 2
	cfg.Burst = 0
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	handler := RateLimit(NewRateLimiter(cfg), "auth", metrics, nil)(okHandler())

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = ip + ":41000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, send("192.0.2.1").Code)
	assert.Equal(t, http.StatusNoContent, send("192.0.2.1").Code)

	w := send("192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10", w.Header().Get("Retry-After"))
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.JSONEq(t, fmt.Sprintf(`{"error": %q}`, MsgTooManyRequests), w.Body.String())

	assert.Equal(t, http.StatusNoContent, send("192.0.2.2").Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RateLimitRejectionsTotal.WithLabelValues("auth")))
}

func TestRateLimitMiddleware_SpoofedForwardedFor(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerWindow = 2
	cfg.Burst = 0
	limiter := NewRateLimiter(cfg)
	handler := RateLimit(limiter, "auth", nil, nil)(okHandler())

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "203.0.113.7:41000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.1.0.%d", i))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code == http.StatusNoContent {
			allowed++
		}
	}

	assert.Equal(t, 2, allowed)
	assert.Equal(t, 1, limiter.Tracked())
}

func TestRateLimitMiddleware_TrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerWindow = 1
	cfg.Burst = 0
	trusted, err := httputil.ParseTrustedProxies([]string{"10.0.0.0/24"})
	require.NoError(t, err)
	handler := RateLimit(NewRateLimiter(cfg), "auth", nil, trusted)(okHandler())

	send := func(peer, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/register", nil)
		req.RemoteAddr = peer + ":5000"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	// two proxies, one client
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1", "203.0.113.9"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2", "203.0.113.9"))
	// a different client behind the same proxy has its own bucket
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1", "203.0.113.10"))
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	handler := RateLimit(brokenLimiter{}, "auth", nil, nil)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
