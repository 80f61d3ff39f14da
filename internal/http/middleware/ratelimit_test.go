package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func doGet(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsUpToMaxPerWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, KeyByIP())
	r := newLimitedRouter(rl)

	for i := 0; i < 3; i++ {
		if w := doGet(r, ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
	w := doGet(r, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("over-limit status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After missing")
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, KeyByIP())
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	now := base
	var mu sync.Mutex
	rl.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	r := newLimitedRouter(rl)

	if w := doGet(r, ""); w.Code != http.StatusOK {
		t.Fatalf("first request blocked: %d", w.Code)
	}
	if w := doGet(r, ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request in window must be rejected")
	}

	// A fresh window admits again.
	mu.Lock()
	now = base.Add(time.Minute)
	mu.Unlock()
	if w := doGet(r, ""); w.Code != http.StatusOK {
		t.Fatalf("request after window reset blocked: %d", w.Code)
	}
}

func TestRateLimiter_RetryAfterCoversWindowRemainder(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, KeyByIP())
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	now := base
	var mu sync.Mutex
	rl.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	r := newLimitedRouter(rl)

	doGet(r, "")
	mu.Lock()
	now = base.Add(45 * time.Second)
	mu.Unlock()
	w := doGet(r, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", w.Code)
	}
	secs, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || secs < 14 || secs > 15 {
		t.Fatalf("Retry-After = %q, want ~15s", w.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, KeyByIP())
	r := newLimitedRouter(rl)

	if w := doGet(r, "198.51.100.1:1111"); w.Code != http.StatusOK {
		t.Fatalf("client A first request blocked")
	}
	if w := doGet(r, "198.51.100.1:1111"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("client A second request must be rejected")
	}
	// A different client has its own window.
	if w := doGet(r, "198.51.100.2:2222"); w.Code != http.StatusOK {
		t.Fatalf("client B must not share client A's window")
	}
}

func TestRateLimiter_CoercesBadSettings(t *testing.T) {
	rl := NewRateLimiter(0, 0, KeyByIP())
	if rl.max != 1 || rl.win != time.Minute {
		t.Fatalf("settings not coerced: max=%d win=%v", rl.max, rl.win)
	}
}

func TestRateLimiter_OpportunisticCleanup(t *testing.T) {
	rl := NewRateLimiter(1000, time.Minute, KeyByIP())
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	now := base
	var mu sync.Mutex
	rl.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	rl.Take("ip:stale")
	mu.Lock()
	now = base.Add(2 * time.Minute)
	mu.Unlock()

	// Push the lookup counter over the cleanup threshold.
	for i := 0; i < 5000; i++ {
		rl.Take("ip:active")
	}

	rl.mu.Lock()
	_, staleKept := rl.active["ip:stale"]
	rl.mu.Unlock()
	if staleKept {
		t.Fatalf("stale window must be evicted by opportunistic cleanup")
	}
}

// denyAll is a Limiter stand-in for a shared-counter implementation.
type denyAll struct{ retryIn time.Duration }

func (d denyAll) Take(string) (bool, time.Duration) { return false, d.retryIn }

func TestLimit_AcceptsCustomLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Limit(denyAll{retryIn: 30 * time.Second}, KeyByIP()))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := doGet(r, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != strconv.Itoa(30) {
		t.Fatalf("Retry-After = %q, want 30", got)
	}
}
