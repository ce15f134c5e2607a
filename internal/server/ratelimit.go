package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimiter throttles creation actions per caller. One limiter per
// (user, action) key, two actions per second with a small burst.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(2), 5)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

func (s *Server) enforceRateLimit(c *gin.Context, action string) bool {
	key := currentUserID(c)
	if key == "" {
		key = c.ClientIP()
	}
	if s.limiter.allow(action + ":" + key) {
		return true
	}
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	return false
}
