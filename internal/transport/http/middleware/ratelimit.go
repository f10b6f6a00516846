package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed one-minute window counter keyed by client IP.
type RateLimiter struct {
	limit int
	now   func() time.Time
	mu    sync.Mutex
	items map[string]*rateEntry
}

type rateEntry struct {
	count int
	reset time.Time
}

func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{
		limit: limit,
		now:   time.Now,
		items: make(map[string]*rateEntry),
	}
}

// WithClock replaces the time source. Used by tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := rl.now()

		rl.mu.Lock()
		entry, ok := rl.items[ip]
		if !ok || now.After(entry.reset) {
			entry = &rateEntry{reset: now.Add(time.Minute)}
			rl.items[ip] = entry
		}
		entry.count++
		count, reset := entry.count, entry.reset
		rl.mu.Unlock()

		if count > rl.limit {
			c.Header("Retry-After", strconv.Itoa(int(reset.Sub(now).Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

// Sweep forgets windows that have already reset.
func (rl *RateLimiter) Sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, e := range rl.items {
		if now.After(e.reset) {
			delete(rl.items, ip)
		}
	}
}
