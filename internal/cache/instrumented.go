package cache

import "github.com/emperorhan/oilube/internal/metrics"

// Instrumented reports hits and misses of an underlying cache to the
// oilube_cache_* counters under the given name.
type Instrumented[K comparable, V any] struct {
	Cache[K, V]
	name string
}

func NewInstrumented[K comparable, V any](name string, c Cache[K, V]) *Instrumented[K, V] {
	return &Instrumented[K, V]{Cache: c, name: name}
}

func (c *Instrumented[K, V]) Get(key K) (V, bool) {
	v, ok := c.Cache.Get(key)
	if ok {
		metrics.CacheHits.WithLabelValues(c.name).Inc()
	} else {
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
	}
	return v, ok
}

var _ Cache[string, int] = (*Instrumented[string, int])(nil)
