package cache

import (
	"sync"
	"time"
)

type item struct {
	value     string
	expiresAt time.Time
}

func (i item) expired() bool {
	return time.Now().After(i.expiresAt)
}

// Cache is a small TTL cache for strings, used for Discord user names so
// the roster render does not hit the REST API for every participant.
type Cache struct {
	mu          sync.RWMutex
	items       map[string]item
	ttl         time.Duration
	cleanupSize int
}

// New creates a cache whose entries expire after ttl. When the cache
// grows past cleanupSize entries, expired ones are swept on insert.
func New(ttl time.Duration, cleanupSize int) *Cache {
	return &Cache{
		items:       make(map[string]item),
		ttl:         ttl,
		cleanupSize: cleanupSize,
	}
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || it.expired() {
		return "", false
	}
	return it.value, true
}

func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.cleanupSize {
		for k, it := range c.items {
			if it.expired() {
				delete(c.items, k)
			}
		}
	}
	c.items[key] = item{value: value, expiresAt: time.Now().Add(c.ttl)}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
