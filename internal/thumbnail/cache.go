package thumbnail

import (
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

type cached struct {
	img *Image
	ts  time.Time
}

// Cache keeps a fixed number of processed thumbnails keyed by source URL.
// Entries older than the ttl are treated as absent and dropped on the next write.
type Cache struct {
	mu       sync.Mutex
	items    map[string]cached
	order    []entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]cached, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the thumbnail stored for key if it is still inside the ttl window.
func (c *Cache) Get(key string) (*Image, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.items[key]; ok {
		if now.Sub(it.ts) <= c.ttl {
			return it.img, true
		}
	}
	return nil, false
}

// Put stores img under key, evicting the oldest entries beyond capacity.
func (c *Cache) Put(key string, img *Image) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cached{img: img, ts: now}
	c.order = append(c.order, entry{key: key, ts: now})
	c.compact(now)
}

// Len returns the number of stored entries, expired ones included until compaction.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff) || c.stale(c.order[0])) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if it, ok := c.items[oldest.key]; ok {
			if it.ts == oldest.ts {
				delete(c.items, oldest.key)
			}
		}
	}
}

// stale reports whether e was superseded by a later Put of the same key.
func (c *Cache) stale(e entry) bool {
	it, ok := c.items[e.key]
	return !ok || it.ts != e.ts
}
