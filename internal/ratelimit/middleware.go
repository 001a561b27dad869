package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter applies a fixed-window limit per client IP.
type Limiter struct {
	store       Store
	maxRequests int64
	window      time.Duration
	logger      *slog.Logger
}

// NewLimiter creates a Limiter.
func NewLimiter(store Store, maxRequests int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:       store,
		maxRequests: int64(maxRequests),
		window:      window,
		logger:      logger,
	}
}

// Middleware returns the gin handler. A store failure fails open: the
// limiter must never take the API down with it.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		count, ttl, err := l.store.Incr(c.Request.Context(), key, l.window)
		if err != nil {
			l.logger.Warn("Rate limit store unavailable, allowing request",
				slog.String("client_ip", key),
				slog.String("error", err.Error()),
			)
			c.Next()
			return
		}

		remaining := l.maxRequests - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", l.maxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", int64(ttl.Seconds())))

		if count > l.maxRequests {
			retryAfter := int64(ttl.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
