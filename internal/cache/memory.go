package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local expiring store
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory store; expired entries are swept every cleanupInterval
func NewMemoryStore(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the store
func (c *MemoryStore) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		if b, ok := val.([]byte); ok {
			return b, true
		}
	}
	return nil, false
}

// Set stores a value; a zero ttl uses the store default
func (c *MemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a value from the store
func (c *MemoryStore) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all values from the store
func (c *MemoryStore) Clear() error {
	c.cache.Flush()
	return nil
}
