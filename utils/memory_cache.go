package utils

import (
	"sync"
	"time"
)

// cacheItem is a stored value with an optional expiration
type cacheItem struct {
	value      []byte
	expiration time.Time // zero means no expiry
}

// MemoryCache is an in-memory key/value store with expiration. It satisfies
// fiber.Storage and backs the session store.
type MemoryCache struct {
	items map[string]cacheItem
	mu    sync.RWMutex
	now   func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a cache that drops expired items every
// cleanupInterval. A non-positive interval disables the cleanup loop;
// expired items are still never returned.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]cacheItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go cache.cleanupLoop(cleanupInterval)
	}

	return cache
}

// Get returns the value for key, or nil when it is missing or expired
func (c *MemoryCache) Get(key string) ([]byte, error) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || c.expired(item) {
		return nil, nil
	}
	return item.value, nil
}

// Set stores val under key. A zero exp keeps it until deleted. Empty keys
// and values are ignored.
func (c *MemoryCache) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	item := cacheItem{value: append([]byte(nil), val...)}
	if exp > 0 {
		item.expiration = c.now().Add(exp)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

// Delete removes an item from cache
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Reset removes all items from cache
func (c *MemoryCache) Reset() error {
	c.mu.Lock()
	c.items = make(map[string]cacheItem)
	c.mu.Unlock()
	return nil
}

// Close stops the cleanup loop
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	return nil
}

// Size returns the number of items in cache, expired ones included until
// the next cleanup
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

func (c *MemoryCache) expired(item cacheItem) bool {
	return !item.expiration.IsZero() && c.now().After(item.expiration)
}

// cleanupLoop periodically removes expired items
func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired items
func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if c.expired(item) {
			delete(c.items, key)
		}
	}
}
