package proposal

import (
	"sync"
	"time"

	"github.com/apiliability/site/internal/paginate"
)

type cacheEntry struct {
	pages    []paginate.Page
	storedAt time.Time
}

// pageCache is a thread-safe per-width page registry with TTL eviction.
type pageCache struct {
	mu      sync.Mutex
	entries map[int]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newPageCache(ttl time.Duration) *pageCache {
	return &pageCache{
		entries: make(map[int]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *pageCache) get(width int) ([]paginate.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[width]
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.pages, true
}

func (c *pageCache) put(width int, pages []paginate.Page) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[width] = cacheEntry{pages: pages, storedAt: c.now()}
}

// cleanup removes expired entries.
func (c *pageCache) cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for w, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, w)
			removed++
		}
	}
	return removed
}

func (c *pageCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *pageCache) expired(e cacheEntry) bool {
	return c.now().Sub(e.storedAt) > c.ttl
}
