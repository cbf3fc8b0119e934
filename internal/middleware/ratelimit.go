package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
	"github.com/noah-isme/cleanops-client/pkg/response"
)

// RateLimit allows limit requests per window for each client IP. A
// non-positive limit disables the check.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)
	every := rate.Every(window / time.Duration(limit))
	exceeded := &appErrors.Error{
		Code:    "RATE_LIMITED",
		Status:  http.StatusTooManyRequests,
		Message: "too many requests",
		Detail:  fmt.Sprintf("Rate limit exceeded: %d per %s", limit, window),
	}

	return func(c *gin.Context) {
		key := c.ClientIP()
		mu.Lock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(every, limit)
			limiters[key] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.Header("Retry-After", fmt.Sprintf("%.0f", window.Seconds()))
			response.Error(c, exceeded)
			c.Abort()
			return
		}
		c.Next()
	}
}
