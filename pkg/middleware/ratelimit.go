package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/noticias/pkg/config"
	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/observability"
)

// MsgTooManyRequests is returned with every 429
const MsgTooManyRequests = "Demasiados intentos. Intenta de nuevo más tarde."

// Limiter decides whether one more request for key is allowed. A limiter
// that cannot decide returns true together with the error.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Limit() int
	Window() time.Duration
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
}

// RateLimiter is an in-process token bucket limiter. Buckets live in an
// expiring LRU, so idle clients are forgotten after two windows and at most
// MaxTrackedClients buckets are held.
type RateLimiter struct {
	cfg     config.RateLimitConfig
	buckets *lru.LRU[string, *bucket]
	now     func() time.Time
	mu      sync.Mutex
}

// Option configures a RateLimiter
type Option func(*RateLimiter)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(rl *RateLimiter) { rl.now = now }
}

// NewRateLimiter creates a token bucket limiter for cfg
func NewRateLimiter(cfg config.RateLimitConfig, opts ...Option) *RateLimiter {
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = config.Default().RateLimit.RequestsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxTrackedClients <= 0 {
		cfg.MaxTrackedClients = config.Default().RateLimit.MaxTrackedClients
	}

	rl := &RateLimiter{
		cfg:     cfg,
		buckets: lru.NewLRU[string, *bucket](cfg.MaxTrackedClients, nil, 2*cfg.Window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

func (rl *RateLimiter) capacity() int {
	return rl.cfg.RequestsPerWindow + rl.cfg.Burst
}

// Limit returns the configured requests per window
func (rl *RateLimiter) Limit() int { return rl.cfg.RequestsPerWindow }

// Window returns the configured window
func (rl *RateLimiter) Window() time.Duration { return rl.cfg.Window }

// Allow takes one token from key's bucket
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: rl.capacity(), lastUpdate: now}
		rl.buckets.Add(key, b)
	}

	// whole tokens only; lastUpdate stays put until at least one accrues
	refill := int(now.Sub(b.lastUpdate).Seconds() * float64(rl.cfg.RequestsPerWindow) / rl.cfg.Window.Seconds())
	if refill > 0 {
		b.tokens += refill
		if b.tokens > rl.capacity() {
			b.tokens = rl.capacity()
		}
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Remaining returns the tokens left for key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets.Peek(key); ok {
		return b.tokens
	}
	return rl.capacity()
}

// Tracked returns the number of buckets held
func (rl *RateLimiter) Tracked() int {
	return rl.buckets.Len()
}

// RateLimit returns middleware that limits requests per client IP. Denied
// requests get 429 and count against name in metrics. Forwarding headers
// only pick the key when the peer is one of trusted.
func RateLimit(limiter Limiter, name string, metrics *observability.Metrics, trusted httputil.TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + httputil.ClientIP(r, trusted)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).
					WithField("limiter", name).Warn("Rate limiter unavailable, allowing request")
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			if !allowed {
				metrics.RecordRateLimited(name)
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
				httputil.WriteTooManyRequests(w, MsgTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
