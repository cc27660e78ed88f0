package cache

import (
	"fmt"
	"time"
)

// LayeredCache checks memory first, then the bolt file, promoting disk hits
type LayeredCache struct {
	memory *MemoryCache
	disk   *BoltCache
}

// NewLayeredCache opens the disk layer at dbPath
func NewLayeredCache(memoryTTL time.Duration, dbPath string, diskTTL time.Duration) (*LayeredCache, error) {
	disk, err := NewBoltCache(dbPath, diskTTL)
	if err != nil {
		return nil, fmt.Errorf("disk layer: %w", err)
	}
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   disk,
	}, nil
}

// Get retrieves a value from memory, then disk
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if val, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}

// Close closes the disk layer
func (c *LayeredCache) Close() error {
	return c.disk.Close()
}
