package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTimeout = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterTable struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

func (t *limiterTable) get(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	cl, ok := t.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.clients[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

func (t *limiterTable) evictIdle() {
	cutoff := time.Now().Add(-limiterIdleTimeout)
	t.mu.Lock()
	defer t.mu.Unlock()
	for ip, cl := range t.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(t.clients, ip)
		}
	}
}

// RateLimit applies a per-client-IP token bucket of r requests per second
// with burst b. Idle buckets are evicted in the background.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	table := &limiterTable{
		clients: make(map[string]*clientLimiter),
		limit:   r,
		burst:   b,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			table.evictIdle()
		}
	}()

	return func(c *gin.Context) {
		if !table.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
