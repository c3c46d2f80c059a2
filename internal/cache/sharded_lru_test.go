package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedLRU_RoutesKeysConsistently(t *testing.T) {
	s := NewShardedLRU[string, int](1024, 8, time.Minute, StringKeys)
	for i := 0; i < 100; i++ {
		s.Put(fmt.Sprintf("OIL-%03d", i), i)
	}
	for i := 0; i < 100; i++ {
		v, ok := s.Get(fmt.Sprintf("OIL-%03d", i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 100, s.Len())

	hits, misses := s.Stats()
	assert.Equal(t, int64(100), hits)
	assert.Zero(t, misses)
}

func TestShardedLRU_DefaultShardCount(t *testing.T) {
	s := NewShardedLRU[string, int](160, 0, time.Minute, StringKeys)
	assert.Len(t, s.shards, defaultShards)
	for _, sh := range s.shards {
		assert.Equal(t, 10, sh.capacity)
	}
}

func TestShardedLRU_TinyCapacityKeepsOnePerShard(t *testing.T) {
	s := NewShardedLRU[string, int](1, 4, time.Minute, StringKeys)
	for _, sh := range s.shards {
		assert.Equal(t, 1, sh.capacity)
	}
}

func TestShardedLRU_Delete(t *testing.T) {
	s := NewShardedLRU[string, int](32, 4, time.Minute, StringKeys)
	s.Put("OIL-A", 1)
	s.Delete("OIL-A")
	_, ok := s.Get("OIL-A")
	assert.False(t, ok)

	_, misses := s.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestShardedLRU_Concurrent(t *testing.T) {
	s := NewShardedLRU[string, int](256, 8, time.Minute, StringKeys)
	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("OIL-%d-%d", w, i%20)
				s.Put(key, i)
				s.Get(key)
				if i%50 == 0 {
					s.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Len(), 256)
}
