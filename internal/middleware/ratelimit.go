package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit returns token-bucket rate limiting middleware. Each API key gets
// its own bucket filling at rps up to burst; requests without a key (open
// API) are bucketed by client IP. An empty bucket answers 429.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		bucket := "ip:" + c.ClientIP()
		if key := c.GetString(ContextKeyAPIKey); key != "" {
			bucket = "key:" + key
		}

		mu.Lock()
		limiter, exists := limiters[bucket]
		if !exists {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[bucket] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
