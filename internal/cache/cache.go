// Package cache provides a bounded in-memory cache with LRU eviction
// and optional per-entry expiry. It is safe for concurrent use.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache maps string keys to values of type V. It holds at most maxEntries
// entries; inserting beyond capacity evicts the least-recently-used entry.
// A zero default TTL means entries never expire unless SetTTL is used.
type Cache[V any] struct {
	mu         sync.Mutex
	maxEntries int
	defaultTTL time.Duration
	ll         *list.List // front = most recently used
	items      map[string]*list.Element
}

type entry[V any] struct {
	key      string
	value    V
	expireAt time.Time // zero = no expiry
}

// New creates a cache without a default TTL.
func New[V any](maxEntries int) *Cache[V] {
	return NewTTL[V](maxEntries, 0)
}

// NewTTL creates a cache whose Set entries expire after defaultTTL.
func NewTTL[V any](maxEntries int, defaultTTL time.Duration) *Cache[V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache[V]{
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the value for key. An expired entry is removed and reported
// as absent; a hit promotes the entry to most-recently-used.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[V])
	if ent.expired(time.Now()) {
		c.removeElement(el)
		return zero, false
	}
	c.ll.MoveToFront(el)
	return ent.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.set(key, value, c.defaultTTL, false)
}

// SetTTL stores value under key with an explicit TTL. A TTL <= 0 stores an
// entry that is already expired, so the next Get removes it and misses.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.set(key, value, ttl, true)
}

func (c *Cache[V]) set(key string, value V, ttl time.Duration, explicit bool) {
	var expireAt time.Time
	now := time.Now()
	switch {
	case ttl > 0:
		expireAt = now.Add(ttl)
	case explicit:
		expireAt = now // already expired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[V])
		ent.value = value
		ent.expireAt = expireAt
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&entry[V]{key: key, value: value, expireAt: expireAt})
	c.items[key] = el

	if c.ll.Len() > c.maxEntries {
		if oldest := c.ll.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
}

// Len returns the number of stored entries, including any not yet
// swept expired entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache[V]) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}
