package cache

import (
	"bytes"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the process-local layer. It mirrors RedisCache: a zero TTL
// on Set uses the default and Clear only touches dealgraph keys.
type MemoryCache struct {
	cache      *gocache.Cache
	defaultTTL time.Duration
}

// NewMemoryCache creates a memory cache whose entries live for defaultTTL.
// A non-positive TTL keeps entries until they are deleted. Expired entries
// are swept at the TTL interval.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		return &MemoryCache{cache: gocache.New(gocache.NoExpiration, 0), defaultTTL: gocache.NoExpiration}
	}
	return &MemoryCache{
		cache:      gocache.New(defaultTTL, defaultTTL),
		defaultTTL: defaultTTL,
	}
}

// Get returns a copy of the cached value
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	b, ok := val.([]byte)
	if !ok {
		return nil, false
	}
	return bytes.Clone(b), true
}

// Set stores a copy of value. A zero TTL uses the default.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	c.cache.Set(key, bytes.Clone(value), ttl)
	return nil
}

// Delete removes a value
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes every dealgraph key
func (c *MemoryCache) Clear() error {
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, KeyPrefix) {
			c.cache.Delete(key)
		}
	}
	return nil
}
