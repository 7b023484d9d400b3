// Package middleware rate limits the authentication endpoints.
//
// Two Limiter implementations exist. RateLimiter keeps token buckets per
// client in process memory, bounded by an expiring LRU. RedisRateLimiter
// counts requests in fixed windows in Redis so several instances share one
// budget; it fails open when Redis is unreachable.
//
//	limiter := middleware.NewRateLimiter(cfg.RateLimit)
//	authLimit := middleware.RateLimit(limiter, "auth", metrics, trusted)
//	users.NewHandlers(svc, guard, authLimit)
package middleware
