package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a sliding-window counter keyed by caller identity. Payment
// initiation and withdrawal routes key by user ID, public routes by IP.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
	stopGC chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	r := &RateLimiter{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		stopGC: make(chan struct{}),
	}
	go r.gc()
	return r
}

func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-r.window)
	kept := r.seen[key][:0]
	for _, t := range r.seen[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= r.limit {
		r.seen[key] = kept
		return false
	}
	r.seen[key] = append(kept, time.Now())
	return true
}

func (r *RateLimiter) gc() {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for {
		select {
		case <-r.stopGC:
			return
		case <-tick.C:
			r.mu.Lock()
			cutoff := time.Now().Add(-r.window)
			for k, times := range r.seen {
				live := false
				for _, t := range times {
					if t.After(cutoff) {
						live = true
						break
					}
				}
				if !live {
					delete(r.seen, k)
				}
			}
			r.mu.Unlock()
		}
	}
}

func (r *RateLimiter) Stop() {
	close(r.stopGC)
}

// RateLimit limits by authenticated user when available, client IP otherwise.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetUserID(c)
		if key == "" {
			key = c.ClientIP()
		}
		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
