package schema

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is the positive cache's default time-to-live, matching
	// the default schema_ttl_secs initialization option (8h).
	DefaultTTL = 8 * time.Hour
	// DefaultCapacity is the positive cache's default max entry count,
	// matching the default schema_cache_capacity initialization option.
	DefaultCapacity = 128
	// errorCooldown is how long a failed fetch is refused retry, per
	// spec.md's negative-cache cooldown.
	errorCooldown = 60 * time.Second
)

// ErrSchemaOnCooldown is returned when a URL's most recent fetch failed
// within the cooldown window; callers should degrade to an empty response
// rather than retry.
var ErrSchemaOnCooldown = errors.New("schema fetch on cooldown")

// Cache is a TTL+LRU cache of fetched schema documents, with
// singleflight-coalesced fetches and a negative cache that refuses to
// retry a URL that failed recently.
type Cache struct {
	loader   *Loader
	ttl      time.Duration
	capacity int

	mu    sync.Mutex
	ll    *list.List // front = most recently used
	items map[string]*list.Element

	errMu  sync.Mutex
	errors map[string]time.Time

	group singleflight.Group
}

type cacheEntry struct {
	url       string
	value     any
	expiresAt time.Time
}

// NewCache creates a Cache that fetches misses through loader.
func NewCache(loader *Loader, ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Cache{
		loader:   loader,
		ttl:      ttl,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		errors:   make(map[string]time.Time),
	}
}

// GetOrFetch returns the schema document for url, fetching and caching it
// if absent. Concurrent calls for the same url that miss the cache share a
// single underlying load. If url's most recent load failed within the
// cooldown window, GetOrFetch returns ErrSchemaOnCooldown without invoking
// the loader.
func (c *Cache) GetOrFetch(ctx context.Context, url string) (any, error) {
	if c.onCooldown(url) {
		return nil, fmt.Errorf("%w: %s", ErrSchemaOnCooldown, url)
	}

	if v, ok := c.getFresh(url); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		if v, ok := c.getFresh(url); ok {
			return v, nil
		}

		val, err := c.loader.Load(ctx, url)
		if err != nil {
			c.recordFailure(url)
			return nil, err
		}

		c.put(url, val)

		return val, nil
	})
	if err != nil {
		return nil, err
	}

	return v, nil
}

// Invalidate clears both the positive and negative cache entries for url.
func (c *Cache) Invalidate(url string) {
	c.mu.Lock()
	if el, ok := c.items[url]; ok {
		c.ll.Remove(el)
		delete(c.items, url)
	}
	c.mu.Unlock()

	c.errMu.Lock()
	delete(c.errors, url)
	c.errMu.Unlock()
}

func (c *Cache) onCooldown(url string) bool {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	failedAt, ok := c.errors[url]
	if !ok {
		return false
	}

	if time.Since(failedAt) < errorCooldown {
		return true
	}

	delete(c.errors, url)

	return false
}

func (c *Cache) recordFailure(url string) {
	c.errMu.Lock()
	c.errors[url] = time.Now()
	c.errMu.Unlock()
}

func (c *Cache) getFresh(url string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[url]
	if !ok {
		return nil, false
	}

	entry := el.Value.(*cacheEntry) //nolint:forcetypeassert // only cacheEntry is ever stored.

	if time.Now().After(entry.expiresAt) {
		c.ll.Remove(el)
		delete(c.items, url)

		return nil, false
	}

	c.ll.MoveToFront(el)

	return entry.value, true
}

func (c *Cache) put(url string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[url]; ok {
		entry := el.Value.(*cacheEntry) //nolint:forcetypeassert // only cacheEntry is ever stored.
		entry.value = value
		entry.expiresAt = time.Now().Add(c.ttl)
		c.ll.MoveToFront(el)

		return
	}

	entry := &cacheEntry{url: url, value: value, expiresAt: time.Now().Add(c.ttl)}
	el := c.ll.PushFront(entry)
	c.items[url] = el

	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}

		oldestEntry := oldest.Value.(*cacheEntry) //nolint:forcetypeassert // only cacheEntry is ever stored.
		delete(c.items, oldestEntry.url)
		c.ll.Remove(oldest)
	}
}
