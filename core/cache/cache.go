// Package cache holds fetched resource lists keyed by (tag, owner).
//
// Every tag carries a version counter. A successful write bumps the version of its tag,
// which invalidates the entries of every owner at once. An entry is fresh when it was fetched
// at the current version of its tag and is younger than the stale time. A fetch that started
// before an invalidation never stores its (possibly stale) result.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var nowFunc = time.Now // mockable

type Key struct {
	Tag   string
	Owner string
}

func (k Key) String() string { return k.Tag + "/" + k.Owner }

type entry struct {
	value     interface{}
	version   uint64
	fetchedAt time.Time
}

type Cache struct {
	mu        sync.Mutex
	staleTime time.Duration
	versions  map[string]uint64
	entries   map[Key]*entry
	group     singleflight.Group
}

// New creates a cache whose entries stay fresh for `staleTime`. A zero stale time makes every
// read refetch, while still coalescing concurrent reads of the same key.
func New(staleTime time.Duration) *Cache {
	return &Cache{
		staleTime: staleTime,
		versions:  make(map[string]uint64),
		entries:   make(map[Key]*entry),
	}
}

// Version returns the current version of `tag`.
func (c *Cache) Version(tag string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.versions[tag]
	if !ok {
		c.versions[tag] = 0 // track the tag so Clear reaches in-flight fetches
	}
	return v
}

// Get returns the cached value for `key` when it is fresh.
func (c *Cache) Get(key Key) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.version != c.versions[key.Tag] {
		return nil, false
	}
	if nowFunc().Sub(e.fetchedAt) >= c.staleTime {
		return nil, false
	}
	return e.value, true
}

// Set stores `value` fetched at `version`. Values fetched at an outdated version are dropped.
func (c *Cache) Set(key Key, version uint64, value interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version != c.versions[key.Tag] {
		return false
	}
	c.entries[key] = &entry{value: value, version: version, fetchedAt: nowFunc()}
	return true
}

// Invalidate bumps the version of every given tag and drops their entries.
func (c *Cache) Invalidate(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tag := range tags {
		c.versions[tag]++
		for key := range c.entries {
			if key.Tag == tag {
				delete(c.entries, key)
			}
		}
	}
}

// Clear invalidates everything, e.g. when the session owner changes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tag := range c.versions {
		c.versions[tag]++
	}
	c.entries = make(map[Key]*entry)
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetch returns the fresh cached value for `key` or calls `fetch` and caches its result.
// Concurrent fetches of the same key at the same version share one call.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if val, ok := v.(T); ok {
			return val, nil
		}
	}

	version := c.Version(key.Tag)
	v, err, _ := c.group.Do(key.String()+"@"+strconv.FormatUint(version, 10), func() (interface{}, error) {
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, version, val)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
