package cache

import (
	"hash/fnv"
	"time"
)

const defaultShards = 16

// Cache is implemented by LRU, ShardedLRU and Instrumented.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V)
	Delete(key K)
	Len() int
	Stats() (hits, misses int64)
}

var (
	_ Cache[string, int] = (*LRU[string, int])(nil)
	_ Cache[string, int] = (*ShardedLRU[string, int])(nil)
)

// ShardedLRU splits keys over independent LRUs by the FNV-1a hash of
// shardKey(key), so concurrent callers rarely share a lock. Capacity and
// recency are per shard.
type ShardedLRU[K comparable, V any] struct {
	shards   []*LRU[K, V]
	shardKey func(K) string
}

// NewShardedLRU spreads capacity over shards LRUs (defaultShards when
// shards <= 0).
func NewShardedLRU[K comparable, V any](capacity, shards int, ttl time.Duration, shardKey func(K) string) *ShardedLRU[K, V] {
	if shards <= 0 {
		shards = defaultShards
	}
	per := capacity / shards
	s := &ShardedLRU[K, V]{shards: make([]*LRU[K, V], shards), shardKey: shardKey}
	for i := range s.shards {
		s.shards[i] = NewLRU[K, V](per, ttl)
	}
	return s
}

// StringKeys is the shard key function for string-keyed caches.
func StringKeys(k string) string { return k }

func (s *ShardedLRU[K, V]) pick(key K) *LRU[K, V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s.shardKey(key)))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *ShardedLRU[K, V]) Get(key K) (V, bool) { return s.pick(key).Get(key) }

func (s *ShardedLRU[K, V]) Put(key K, value V) { s.pick(key).Put(key, value) }

func (s *ShardedLRU[K, V]) Delete(key K) { s.pick(key).Delete(key) }

func (s *ShardedLRU[K, V]) Len() int {
	n := 0
	for _, sh := range s.shards {
		n += sh.Len()
	}
	return n
}

func (s *ShardedLRU[K, V]) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}
