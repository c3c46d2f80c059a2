// Package cache holds the in-process TTL caches used for local-code
// mappings and immutable snapshot lookups.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a bounded least-recently-used cache. Entries expire ttl after their
// last Put; expired entries are dropped lazily on Get.
type LRU[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[K]*list.Element
	recency *list.List // front = most recently used
	hits    int64
	misses  int64
}

type lruItem[K comparable, V any] struct {
	key     K
	val     V
	expires time.Time
}

// NewLRU returns a cache holding at most capacity entries (minimum 1).
// A non-positive ttl disables expiry.
func NewLRU[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[K]*list.Element, capacity),
		recency:  list.New(),
	}
}

func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	it := el.Value.(*lruItem[K, V])
	if c.expired(it) {
		c.drop(el)
		c.misses++
		return zero, false
	}
	c.recency.MoveToFront(el)
	c.hits++
	return it.val, true
}

func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.expiry()
	if el, ok := c.entries[key]; ok {
		it := el.Value.(*lruItem[K, V])
		it.val, it.expires = value, expires
		c.recency.MoveToFront(el)
		return
	}
	for c.recency.Len() >= c.capacity {
		c.drop(c.recency.Back())
	}
	c.entries[key] = c.recency.PushFront(&lruItem[K, V]{key: key, val: value, expires: expires})
}

func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.drop(el)
	}
}

// Len counts stored entries, including expired ones not yet dropped.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len()
}

func (c *LRU[K, V]) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRU[K, V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *LRU[K, V]) expired(it *lruItem[K, V]) bool {
	return !it.expires.IsZero() && c.now().After(it.expires)
}

func (c *LRU[K, V]) drop(el *list.Element) {
	it := c.recency.Remove(el).(*lruItem[K, V])
	delete(c.entries, it.key)
}
