package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rohmanhakim/listing-enricher/internal/content"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL  = 10 * time.Minute
	DefaultSize = 1024
)

// TTLCache is a bounded, expiring in-memory implementation of Cache.
// Entries are evicted least-recently-used first once size is reached and
// expire ttl after they were stored.
//
// Concurrent GetOrLoad calls for the same missing key share one load:
// every caller receives the result of that single load, unless the load
// was abandoned by a cancelled leader.
type TTLCache struct {
	entries *expirable.LRU[string, content.ResolvedMetadata]
	loads   singleflight.Group
}

// NewTTLCache creates an empty cache. Non-positive size or ttl fall back
// to DefaultSize and DefaultTTL.
func NewTTLCache(size int, ttl time.Duration) *TTLCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache{
		entries: expirable.NewLRU[string, content.ResolvedMetadata](size, nil, ttl),
	}
}

func (c *TTLCache) Get(key string) (content.ResolvedMetadata, bool) {
	return c.entries.Get(key)
}

func (c *TTLCache) Put(key string, value content.ResolvedMetadata) {
	c.entries.Add(key, value)
}

// loadResult is what one singleflight load hands to every waiter.
type loadResult struct {
	value content.ResolvedMetadata
	// abandoned marks an unstored value produced under a cancelled context
	abandoned bool
}

func (c *TTLCache) GetOrLoad(ctx context.Context, key string, load Loader) (content.ResolvedMetadata, bool) {
	for {
		if value, ok := c.entries.Get(key); ok {
			return value, true
		}

		leader := false
		shared, _, _ := c.loads.Do(key, func() (any, error) {
			// another caller may have stored the key between Get and Do
			if value, ok := c.entries.Get(key); ok {
				return loadResult{value: value}, nil
			}
			leader = true
			value, store := load(ctx)
			if store {
				c.entries.Add(key, value)
				return loadResult{value: value}, nil
			}
			return loadResult{value: value, abandoned: ctx.Err() != nil}, nil
		})

		result := shared.(loadResult)
		if !leader && result.abandoned && ctx.Err() == nil {
			continue
		}
		return result.value, !leader
	}
}

func (c *TTLCache) Len() int {
	return c.entries.Len()
}

// Purge removes every entry.
// This method is primarily useful for testing.
func (c *TTLCache) Purge() {
	c.entries.Purge()
}
