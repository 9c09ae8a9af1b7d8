package embedding

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_evictsLeastRecent(t *testing.T) {
	c := NewEmbeddingCache(2)
	_, ok := c.Get("квартальный отчёт")
	assert.False(t, ok)

	c.Set("квартальный отчёт", []float32{1, 0})
	c.Set("invoice", []float32{0, 1})
	_, ok = c.Get("квартальный отчёт")
	require.True(t, ok)
	c.Set("payroll", []float32{0.6, 0.8})

	_, ok = c.Get("invoice")
	assert.False(t, ok, "invoice was least recently used")
	_, ok = c.Get("квартальный отчёт")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestEmbeddingCache_copiesValues(t *testing.T) {
	c := NewEmbeddingCache(4)
	in := []float32{1, 2, 3}
	c.Set("q", in)
	in[0] = 99

	out, ok := c.Get("q")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, out)
	out[1] = 42
	again, _ := c.Get("q")
	assert.Equal(t, float32(2), again[1])
}

func TestEmbeddingCache_overwriteAndStats(t *testing.T) {
	c := NewEmbeddingCache(0)
	c.Set("a", []float32{1})
	c.Set("a", []float32{2})
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{2}, v)
	c.Get("b")

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, c.Len())
}

func TestEmbeddingCache_concurrentAccess(t *testing.T) {
	c := NewEmbeddingCache(8)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("chunk-%d", i%16)
				c.Set(key, []float32{float32(i)})
				c.Get(key)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 8)
}
