package cache

import "time"

// LayeredCache implements a two-layer cache, a fast local layer in front of a
// shared one (memory + redis)
type LayeredCache struct {
	local  Cache
	shared Cache
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(local Cache, shared Cache) *LayeredCache {
	return &LayeredCache{
		local:  local,
		shared: shared,
	}
}

// Get retrieves a value from the cache (checks local first, then shared)
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.local.Get(key); found {
		return val, true
	}

	if val, found := c.shared.Get(key); found {
		// Promote to local cache
		_ = c.local.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both caches
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(key, value, ttl); err != nil {
		return err
	}

	if err := c.shared.Set(key, value, ttl); err != nil {
		return err
	}

	return nil
}

// Delete removes a value from both caches
func (c *LayeredCache) Delete(key string) error {
	_ = c.local.Delete(key)
	return c.shared.Delete(key)
}

// Clear removes all values from both caches
func (c *LayeredCache) Clear() error {
	_ = c.local.Clear()
	return c.shared.Clear()
}
