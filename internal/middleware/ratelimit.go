package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	limit    rate.Limit
	burst    int
	ttl      time.Duration
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute requests per IP with the given burst.
func NewIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: make(map[string]*ipLimiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		ttl:      10 * time.Minute,
	}
}

func (l *IPRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if entry, ok := l.limiters[ip]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	// opportunistic sweep of idle entries
	for k, v := range l.limiters {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.limiters, k)
		}
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters[ip] = &ipLimiter{limiter: lim, lastSeen: now}
	return lim
}

// RateLimit rejects requests over the per-IP budget with 429.
func RateLimit(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    42900,
				"message": "Too many requests, please retry later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
