package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// QueryCache is a small LRU of search results. Each entry remembers the
// index generation it was computed against and is dropped once the index
// has moved on.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	results   []domain.QueryResult
	timestamp time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 64
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(query string, topK int) string {
	data := []byte(query)
	data = append(data, 0, byte(topK>>24), byte(topK>>16), byte(topK>>8), byte(topK))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get returns cached results computed at generation gen.
func (c *QueryCache) Get(query string, topK int, gen uint64) ([]domain.QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.indexGen != gen {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return cloneResults(entry.results), true
}

func (c *QueryCache) Put(query string, topK int, gen uint64, results []domain.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	entry := &cacheEntry{
		results:   cloneResults(results),
		timestamp: c.now(),
		indexGen:  gen,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func cloneResults(in []domain.QueryResult) []domain.QueryResult {
	if in == nil {
		return nil
	}
	out := make([]domain.QueryResult, len(in))
	copy(out, in)
	return out
}

// Generational is implemented by indexes that count committed writes.
type Generational interface {
	Generation() uint64
}

// GenerationalRetriever is a retriever whose contents are versioned.
type GenerationalRetriever interface {
	port.Retriever
	Generational
}

var _ port.Retriever = (*CachedRetriever)(nil)

type CachedRetriever struct {
	retriever GenerationalRetriever
	cache     *QueryCache
}

func NewCachedRetriever(retriever GenerationalRetriever, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
	}
}

// Search serves repeated (query, k) pairs from the cache while the index
// generation is unchanged. Errors are never cached.
func (r *CachedRetriever) Search(ctx context.Context, query string, k int) ([]domain.QueryResult, error) {
	gen := r.retriever.Generation()
	if results, hit := r.cache.Get(query, k, gen); hit {
		return results, nil
	}

	results, err := r.retriever.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	// A write that landed during the search makes these results stale.
	if r.retriever.Generation() == gen {
		r.cache.Put(query, k, gen, results)
	}
	return results, nil
}
