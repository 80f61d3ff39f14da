// Package promptcache stores the minimal snapshot of an accepted generation
// request so a client can ask for another take on the same input without
// re-uploading anything.
//
// The cache is the only owner of its entries: snapshots go in by value and
// come out by value, entries expire after a fixed TTL, and an expired entry
// is removed by the read that observes it (lazy eviction - there is no
// background sweeper). Storage is sharded by id so operations on distinct
// ids never contend, while get/put on the same id serialize on one shard
// lock and can never produce a torn read.
//
// The in-process implementation is correct for a single instance. A
// deployment running several instances needs a shared backend; Store is the
// seam where such an implementation plugs in without changing callers.
package promptcache

import (
	"hash/fnv"
	"sync"
	"time"
)

// Snapshot is the fingerprint of an accepted request: everything needed to
// reproduce an equivalent generation. ImageJPEG holds the sanitized bytes
// (already metadata-free) so regeneration of an image request re-attaches
// the image without a re-upload.
type Snapshot struct {
	InputKind    string
	InputText    string
	ImagePresent bool
	ImageJPEG    []byte
}

// Store is the regeneration-cache contract consumed by the service layer.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put records a snapshot under id with the given lifetime, overwriting
	// any existing entry for the same id.
	Put(id string, snap Snapshot, ttl time.Duration)
	// Get returns the snapshot for id, or ok=false when the id is unknown or
	// its entry has expired. An expired entry is purged by this read.
	Get(id string) (Snapshot, bool)
}

// shardCount trades memory for contention; must be a power of two.
const shardCount = 16

type entry struct {
	snap      Snapshot
	expiresAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]entry
}

// Cache is the in-process Store implementation.
type Cache struct {
	shards [shardCount]*shard
	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// New constructs an empty Cache.
func New() *Cache {
	c := &Cache{now: time.Now}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]entry)}
	}
	return c
}

func (c *Cache) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return c.shards[h.Sum32()&(shardCount-1)]
}

// Put implements Store.
func (c *Cache) Put(id string, snap Snapshot, ttl time.Duration) {
	if id == "" || ttl <= 0 {
		return
	}
	s := c.shardFor(id)
	s.mu.Lock()
	s.entries[id] = entry{snap: snap, expiresAt: c.now().Add(ttl)}
	s.mu.Unlock()
}

// Get implements Store. An entry is readable strictly before its expiry
// instant; at or past it the entry is deleted and reported absent, so a
// second read after expiry also misses.
func (c *Cache) Get(id string) (Snapshot, bool) {
	if id == "" {
		return Snapshot{}, false
	}
	s := c.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Snapshot{}, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return Snapshot{}, false
	}
	return e.snap, true
}

// Len reports the number of live plus not-yet-collected entries. Intended
// for tests and diagnostics.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
