package promptcache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fixedClock gives tests deterministic control over the cache's view of time.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (fc *fixedClock) now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.t
}

func (fc *fixedClock) advance(d time.Duration) {
	fc.mu.Lock()
	fc.t = fc.t.Add(d)
	fc.mu.Unlock()
}

func newTestCache() (*Cache, *fixedClock) {
	fc := &fixedClock{t: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	c := New()
	c.now = fc.now
	return c, fc
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c, _ := newTestCache()

	snap := Snapshot{
		InputKind:    "text-image",
		InputText:    "a cat",
		ImagePresent: true,
		ImageJPEG:    []byte{0xFF, 0xD8},
	}
	c.Put("id1", snap, time.Hour)

	got, ok := c.Get("id1")
	if !ok {
		t.Fatalf("expected hit")
	}
	if got.InputKind != snap.InputKind || got.InputText != snap.InputText ||
		got.ImagePresent != snap.ImagePresent || string(got.ImageJPEG) != string(snap.ImageJPEG) {
		t.Fatalf("got %+v, want %+v", got, snap)
	}
}

func TestCache_MissForUnknownID(t *testing.T) {
	c, _ := newTestCache()
	if _, ok := c.Get("nope"); ok {
		t.Fatalf("unexpected hit")
	}
}

func TestCache_ExpiryBoundary(t *testing.T) {
	c, fc := newTestCache()
	c.Put("id", Snapshot{InputText: "x"}, time.Hour)

	// Readable strictly before expiry.
	fc.advance(time.Hour - time.Nanosecond)
	if _, ok := c.Get("id"); !ok {
		t.Fatalf("entry must be readable just before expiry")
	}

	// At the expiry instant the entry is gone.
	fc.advance(time.Nanosecond)
	if _, ok := c.Get("id"); ok {
		t.Fatalf("entry must be absent at the expiry instant")
	}
}

func TestCache_ExpiredEntryIsPurgedNotHidden(t *testing.T) {
	c, fc := newTestCache()
	c.Put("id", Snapshot{InputText: "x"}, time.Minute)

	fc.advance(2 * time.Minute)
	if _, ok := c.Get("id"); ok {
		t.Fatalf("expected miss after expiry")
	}
	// The read that observed expiry must delete the entry.
	if c.Len() != 0 {
		t.Fatalf("expired entry still stored: Len = %d", c.Len())
	}
}

func TestCache_PutOverwrites(t *testing.T) {
	c, fc := newTestCache()
	c.Put("id", Snapshot{InputText: "first"}, time.Minute)
	fc.advance(50 * time.Second)
	c.Put("id", Snapshot{InputText: "second"}, time.Minute)

	// Past the original deadline but within the rewritten one.
	fc.advance(30 * time.Second)
	got, ok := c.Get("id")
	if !ok || got.InputText != "second" {
		t.Fatalf("got (%+v, %v), want overwritten entry", got, ok)
	}
}

func TestCache_IgnoresInvalidPuts(t *testing.T) {
	c, _ := newTestCache()
	c.Put("", Snapshot{InputText: "x"}, time.Minute)
	c.Put("id", Snapshot{InputText: "x"}, 0)
	c.Put("id2", Snapshot{InputText: "x"}, -time.Second)
	if c.Len() != 0 {
		t.Fatalf("invalid puts must be ignored: Len = %d", c.Len())
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := fmt.Sprintf("id-%d-%d", n, j)
				c.Put(id, Snapshot{InputText: id}, time.Minute)
				if got, ok := c.Get(id); !ok || got.InputText != id {
					t.Errorf("round trip failed for %s", id)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 8*200 {
		t.Fatalf("Len = %d, want %d", c.Len(), 8*200)
	}
}
