// Package middleware – request slowdown
//
// This file implements a per-identity throttle that complements the hard
// fixed-window limiter: instead of rejecting, it delays requests once a
// client has burned through its free burst. Well-behaved clients never
// notice it; rapid-fire clients are paced down to a sustainable rate before
// the hard limiter starts returning 429s.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// pacer holds a single token bucket and the last time it was seen, so idle
// entries can be evicted.
type pacer struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Slowdown delays requests from clients that exceed a free burst, pacing them
// to rps thereafter. Waiting honors the request context, so a client that
// gives up does not hold a slot.
//
// This type is safe for concurrent use.
type Slowdown struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu     sync.Mutex
	pacers map[string]*pacer

	ttl      time.Duration
	cleanupN uint64
}

// NewSlowdown constructs a Slowdown that admits burst requests immediately
// per identity and delays subsequent ones to rps.
//
//   - rps: sustained requests per second after the burst; values <= 0 are
//     coerced to 1.
//   - burst: free requests before pacing kicks in; values <= 0 are coerced to 1.
func NewSlowdown(rps float64, burst int, keyFn keyFunc) *Slowdown {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Slowdown{
		rps:    rate.Limit(rps),
		burst:  burst,
		keyFn:  keyFn,
		pacers: make(map[string]*pacer),
		ttl:    10 * time.Minute,
	}
}

// getPacer returns (and refreshes) the limiter for key, creating it if absent.
// Idle entries are evicted opportunistically after ~5000 lookups.
func (s *Slowdown) getPacer(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	s.cleanupN++
	if s.cleanupN >= 5000 {
		for k, p := range s.pacers {
			if now.Sub(p.lastSeen) >= s.ttl {
				delete(s.pacers, k)
			}
		}
		s.cleanupN = 0
	}

	if p, ok := s.pacers[key]; ok {
		p.lastSeen = now
		lim := p.limiter
		s.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.pacers[key] = &pacer{limiter: lim, lastSeen: now}
	s.mu.Unlock()
	return lim
}

// Handler returns a Gin middleware that paces requests past the free burst.
// If the request context is canceled while waiting, the middleware aborts
// with 503 rather than serving a request nobody is waiting for.
func (s *Slowdown) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := s.getPacer(s.keyFn(c))
		if err := lim.Wait(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unavailable",
				"message":    "request canceled while throttled",
			})
			return
		}
		c.Next()
	}
}
