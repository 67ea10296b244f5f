// Package ristretto implements the cache port using dgraph-io/ristretto as
// an in-process cache. It backs the HTTP read cache.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// avgItemBytes is the expected size of a cached HTTP response body.
const avgItemBytes = 512

// Cache wraps a ristretto cache. Cost is the value length in bytes.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a ristretto-backed cache holding at most maxCostBytes of values.
func New(maxCostBytes int64) (*Cache, error) {
	counters := max(maxCostBytes/avgItemBytes*10, 1000)
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value. Ristretto admits writes asynchronously; Set waits
// for the write buffer so that a following Get observes the value unless
// the admission policy rejected it.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl > 0 {
		c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	} else {
		c.c.Set(key, value, int64(len(value)))
	}
	c.c.Wait()
	return nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
