package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"remindmail/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Middleware limits requests per client IP on the route it is attached to.
// The IP comes from c.ClientIP, so forwarding headers only count when set by a trusted proxy.
func Middleware(limiter Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		decision := limiter.Allow("ip:"+c.ClientIP()+":"+c.FullPath(), limit, window)
		remaining := limit - decision.Count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !decision.WindowEnd.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.WindowEnd.Unix(), 10))
		}

		if !decision.Allowed {
			metrics.RateLimitHits.WithLabelValues(c.FullPath()).Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many requests. Please try again later."})
			c.Abort()
			return
		}
		c.Next()
	}
}
