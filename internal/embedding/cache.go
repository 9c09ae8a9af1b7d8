package embedding

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// EmbeddingCache holds the most recently used query and chunk embeddings, keyed by the
// exact text that was embedded. Values are copied in and out so callers may normalize or
// mutate what they receive.
type EmbeddingCache struct {
	mu      sync.Mutex
	limit   int
	entries map[string]*list.Element
	order   *list.List // front is most recent

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cached struct {
	text string
	vec  []float32
}

// NewEmbeddingCache returns a cache holding at most limit embeddings; limit is raised to 1.
func NewEmbeddingCache(limit int) *EmbeddingCache {
	return &EmbeddingCache{
		limit:   max(limit, 1),
		entries: make(map[string]*list.Element, max(limit, 1)),
		order:   list.New(),
	}
}

func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	el, ok := c.entries[text]
	if ok {
		c.order.MoveToFront(el)
	}
	c.mu.Unlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return append([]float32(nil), el.Value.(*cached).vec...), true
}

func (c *EmbeddingCache) Set(text string, vec []float32) {
	own := append([]float32(nil), vec...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[text]; ok {
		el.Value.(*cached).vec = own
		c.order.MoveToFront(el)
		return
	}
	c.entries[text] = c.order.PushFront(&cached{text: text, vec: own})
	for c.order.Len() > c.limit {
		last := c.order.Remove(c.order.Back()).(*cached)
		delete(c.entries, last.text)
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns lookup hit and miss counts since creation.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
