// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a lightweight, in-memory, fixed-window rate limiter
// with per-identity counters and opportunistic garbage collection. It is
// designed for simplicity, low overhead, and predictable behavior in a
// single-process deployment (e.g., a container or dev setup).
//
// Features:
//   - Per-key fixed windows (at most N requests per rolling window start)
//   - Pluggable identity function (client IP by default)
//   - Best-effort cleanup of stale windows to bound memory
//   - Retry-After derived from the remaining window time
//
// Notes:
//   - This limiter is process-local. For horizontally scaled deployments,
//     prefer a distributed limiter (e.g., Redis-backed) to enforce global limits.
//   - The limiter is intended for edge-level abuse control and cost protection;
//     it is not an authorization mechanism.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// keyFunc selects the identity used to key a rate-limit window.
//
// Implementations should return a stable string for the duration of a request
// (e.g., "ip:<addr>"). The returned key is used to look up the corresponding
// window counter.
type keyFunc func(*gin.Context) string

// KeyByIP returns a keyFunc that identifies clients by IP address.
//
// Keys are prefixed so that future identity schemes cannot collide with the
// IP namespace.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// Limiter is the admission contract enforced by the rate-limiting middleware.
// RateLimiter is the in-process implementation; a deployment that needs
// cluster-wide limits can supply an implementation backed by a shared counter
// and mount it with Limit.
type Limiter interface {
	// Take records one request for key and reports whether it is admitted,
	// together with how long the caller should wait before retrying.
	Take(key string) (allowed bool, retryIn time.Duration)
}

// window holds the counter for one identity within the current fixed window.
type window struct {
	start time.Time
	count int
}

// RateLimiter implements a per-key fixed-window rate limiter.
//
// Each identity gets at most Max requests per Window; the first request after
// a window elapses resets the counter. Windows are created on demand and
// stored in an internal map guarded by a mutex. Stale windows are evicted via
// opportunistic cleanup during lookups to keep memory usage bounded.
//
// This type is safe for concurrent use.
type RateLimiter struct {
	max    int
	win    time.Duration
	keyFn  keyFunc
	mu     sync.Mutex
	active map[string]*window

	cleanupN uint64
	now      func() time.Time // test seam
}

// NewRateLimiter constructs a RateLimiter allowing max requests per win,
// keyed by keyFn.
//
//   - max: requests admitted per window; values <= 0 are coerced to 1.
//   - win: window length; values <= 0 are coerced to time.Minute.
//   - keyFn: function that maps a request to a window identity.
//
// The returned limiter is ready to be installed as middleware via Handler().
func NewRateLimiter(max int, win time.Duration, keyFn keyFunc) *RateLimiter {
	if max <= 0 {
		max = 1
	}
	if win <= 0 {
		win = time.Minute
	}
	return &RateLimiter{
		max:    max,
		win:    win,
		keyFn:  keyFn,
		active: make(map[string]*window),
		now:    time.Now,
	}
}

// Take implements Limiter. It records one request for key and reports
// whether it is admitted, together with the remaining time in the key's
// current window. It also performs opportunistic GC of stale entries after
// ~5000 lookups.
//
// IMPORTANT: Run GC *before* touching the requested window so a stale entry
// can be evicted even when it's the one being fetched.
func (rl *RateLimiter) Take(key string) (allowed bool, retryIn time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Opportunistic cleanup after a threshold of lookups, then reset the counter.
	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, w := range rl.active {
			if now.Sub(w.start) >= rl.win {
				delete(rl.active, k)
			}
		}
		rl.cleanupN = 0
	}

	w, ok := rl.active[key]
	if !ok || now.Sub(w.start) >= rl.win {
		rl.active[key] = &window{start: now, count: 1}
		return true, 0
	}

	if w.count < rl.max {
		w.count++
		return true, 0
	}
	return false, rl.win - now.Sub(w.start)
}

// Handler returns a Gin middleware that enforces per-key fixed-window limits.
//
// Admitted requests proceed; rejected ones receive a 429 response with a
// compact JSON body and a Retry-After header covering the remainder of the
// client's current window:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "request_id": "<uuid>",
//	  "code":       "rate_limited",
//	  "message":    "rate limit exceeded"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return Limit(rl, rl.keyFn)
}

// Limit enforces lim for requests keyed by keyFn. It is the seam that lets a
// shared-counter Limiter replace the in-process RateLimiter without changing
// the rejection contract.
func Limit(lim Limiter, keyFn keyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryIn := lim.Take(keyFn(c))
		if allowed {
			c.Next()
			return
		}

		secs := int(retryIn.Seconds())
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
