// Package xycache is a fixed-byte-budget LRU cache of byte buffers, keyed
// by a caller-chosen size class. It does not call xymemory.Pool itself:
// callers hand it ordinary Go byte slices and get them back for a later
// same-class request instead of allocating a fresh one (cmd/xylu's bench
// command uses it this way for its per-round input buffers). Modeled directly on restic's
// internal/bloblru and internal/blobcache (both fixed-size LRUs over a
// generic cache keyed by content hash instead of size class).
package xycache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duskbound/xylu/internal/xylog"
)

// overhead estimates the per-entry bookkeeping cost counted against the
// byte budget, the same nominal accounting bloblru.Cache uses for its own
// linked-list node plus key.
const overhead = 64

// BlockCache is a fixed-byte-budget LRU cache of []byte buffers keyed by
// the uint64 size class (xymemory's classify index, or any caller-chosen
// bucket) they were allocated for. xylu's own caller (cmd/xylu bench)
// gives each worker goroutine its own BlockCache and never shares one
// across goroutines.
type BlockCache struct {
	mu    sync.Mutex
	cache *lru.Cache[uint64, []byte]
	free  int
	size  int
	log   xylog.Logger
}

// New constructs a BlockCache holding at most byteBudget bytes worth of
// buffers (including per-entry overhead).
func New(byteBudget int) *BlockCache {
	c := &BlockCache{free: byteBudget, size: byteBudget, log: xylog.Default()}

	maxEntries := byteBudget / overhead
	if maxEntries < 1 {
		maxEntries = 1
	}
	cache, err := lru.NewWithEvict[uint64, []byte](maxEntries, c.onEvict)
	if err != nil {
		panic(err) // only returned for maxEntries <= 0, excluded above
	}
	c.cache = cache
	return c
}

func (c *BlockCache) onEvict(class uint64, buf []byte) {
	c.free += cap(buf) + overhead
	c.log.Log("xycache: evicted class %d, %d bytes, %d bytes free", class, cap(buf), c.free)
}

// Put offers buf back to the cache under class, evicting
// least-recently-used entries to make room if needed. It returns an
// evicted buffer the caller may recycle immediately (the largest one
// freed, if any), mirroring bloblru.Cache.Add's "hand back one spare
// buffer" behavior.
func (c *BlockCache) Put(class uint64, buf []byte) (evicted []byte) {
	size := cap(buf) + overhead
	if size > c.size {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, hit := c.cache.Peek(class); hit {
		return nil
	}

	for size > c.free {
		_, victim, ok := c.cache.RemoveOldest()
		if !ok {
			break
		}
		if cap(victim) > cap(evicted) {
			evicted = victim
		}
	}

	c.cache.Add(class, buf)
	c.free -= size
	c.log.Log("xycache: cached class %d, %d bytes, %d bytes free", class, size, c.free)
	return evicted
}

// Get retrieves and removes a cached buffer for class, if one is
// available.
func (c *BlockCache) Get(class uint64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.cache.Get(class)
	if !ok {
		return nil, false
	}
	c.cache.Remove(class) // onEvict credits the buffer back to free
	return buf, true
}

// Len reports the number of buffers currently cached.
func (c *BlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Free reports the number of bytes (including overhead) still available
// in the budget.
func (c *BlockCache) Free() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.free
}
