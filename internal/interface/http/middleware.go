package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/weather-screen/internal/infra/config"
)

// upstreamQuotaKey is the single bucket shared by every caller of the proxy
// routes; the provider quota belongs to the API key, not to a client.
const upstreamQuotaKey = "weather-api"

func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := asHTTPError(c.Errors.Last().Err)
		requestID := c.GetString(requestIDKey)
		attrs := []any{"code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "request_id", requestID, "error", httpErr.Err}
		if httpErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Warn("request failed", attrs...)
		}

		c.JSON(httpErr.Status, gin.H{
			"error": gin.H{
				"code":      httpErr.Code,
				"message":   httpErr.Message,
				"requestId": requestID,
			},
		})
	}
}

// rateLimitMiddleware throttles each client address.
func rateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newTokenLimiter(cfg.RequestsPerMinute, cfg.Burst, time.Now)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if limiter.allow(ip) {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
		rejectThrottled(c, limiter, "rate_limit_exceeded", "too many requests")
	}
}

// upstreamQuotaMiddleware guards routes that call the weather provider
// directly, so no mix of clients can drain the key's quota.
func upstreamQuotaMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.UpstreamRequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newTokenLimiter(cfg.UpstreamRequestsPerMinute, cfg.UpstreamBurst, time.Now)
	return func(c *gin.Context) {
		if limiter.allow(upstreamQuotaKey) {
			c.Next()
			return
		}
		logger.Warn("upstream quota exhausted", "path", c.Request.URL.Path, "ip", c.ClientIP())
		rejectThrottled(c, limiter, "upstream_quota_exceeded", "weather lookups are temporarily throttled")
	}
}

func rejectThrottled(c *gin.Context, limiter *tokenLimiter, code, message string) {
	c.Header("Retry-After", strconv.Itoa(limiter.retryAfterSeconds()))
	abortWithError(c, NewHTTPError(http.StatusTooManyRequests, code, message, nil))
}

// tokenLimiter keeps one refilling bucket per key and forgets idle keys.
type tokenLimiter struct {
	buckets       map[string]*bucket
	mu            sync.Mutex
	ratePerMinute float64
	burst         float64
	ttl           time.Duration
	now           func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

func newTokenLimiter(requestsPerMinute, burst int, now func() time.Time) *tokenLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &tokenLimiter{
		buckets:       make(map[string]*bucket),
		ratePerMinute: float64(requestsPerMinute),
		burst:         float64(burst),
		ttl:           5 * time.Minute,
		now:           now,
	}
}

func (l *tokenLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastSeen: now}
		l.buckets[key] = b
	} else {
		if elapsed := now.Sub(b.lastSeen).Minutes(); elapsed > 0 {
			b.tokens = math.Min(l.burst, b.tokens+elapsed*l.ratePerMinute)
		}
		b.lastSeen = now
	}
	l.evictIdleLocked(now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// retryAfterSeconds is how long one token takes to refill.
func (l *tokenLimiter) retryAfterSeconds() int {
	return int(math.Ceil(60 / l.ratePerMinute))
}

func (l *tokenLimiter) evictIdleLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.ttl {
			delete(l.buckets, key)
		}
	}
}
