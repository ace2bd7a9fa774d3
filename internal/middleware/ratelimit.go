package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter pairs a token bucket with its last use, so idle clients can
// be evicted
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerClientLimiter hands out one token bucket per client IP
type PerClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

// NewPerClientLimiter creates a per-IP limiter set
func NewPerClientLimiter(requestsPerSecond float64, burst int) *PerClientLimiter {
	return &PerClientLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(requestsPerSecond),
		burst:   burst,
	}
}

// Allow reports whether the client may proceed now
func (l *PerClientLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

// evictIdle drops clients not seen since the cutoff
func (l *PerClientLimiter) evictIdle(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	for ip, cl := range l.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// RateLimit applies per-client-IP rate limiting. Idle client buckets are
// evicted in the background to bound memory.
func RateLimit(requestsPerSecond float64, burst int) gin.HandlerFunc {
	limiter := NewPerClientLimiter(requestsPerSecond, burst)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.evictIdle(5 * time.Minute)
		}
	}()

	return func(c *gin.Context) {
		ip := c.GetHeader("X-Forwarded-For")
		if ip == "" {
			ip = c.ClientIP()
		}

		if !limiter.Allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// ServiceRateLimit applies one shared limiter across all callers, for
// service-to-service endpoints where per-IP fairness does not matter
func ServiceRateLimit(requestsPerSecond float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
