package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"lecturmate/internal/domain"
	"lecturmate/internal/port"
)

// QueryCache memoizes retrieval results per (query, k, index generation).
// The generation is part of the key, so results computed against a replaced
// index can never be served again; eviction is LRU with a TTL.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	results   []domain.ScoredChunk
	timestamp time.Time
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(query string, k int, generation uint64) string {
	var suffix [16]byte
	binary.BigEndian.PutUint64(suffix[:8], uint64(k))
	binary.BigEndian.PutUint64(suffix[8:], generation)
	hash := sha256.Sum256(append([]byte(query), suffix[:]...))
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(query string, k int, generation uint64) ([]domain.ScoredChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, k, generation)
	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return entry.results, true
}

func (c *QueryCache) Put(query string, k int, generation uint64, results []domain.ScoredChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, k, generation)
	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{results: results, timestamp: time.Now()}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &cacheEntry{results: results, timestamp: time.Now()}
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

// CachedRetriever decorates a retriever with the query cache. Repeating a
// question against an unchanged index skips the embedding round trip.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
}

func NewCachedRetriever(retriever port.Retriever, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{retriever: retriever, cache: cache}
}

func (r *CachedRetriever) Search(query string, idx *domain.Index, k int) ([]domain.ScoredChunk, error) {
	if idx.Empty() {
		return nil, domain.ErrEmptyIndex
	}

	if results, hit := r.cache.Get(query, k, idx.Generation); hit {
		return results, nil
	}

	results, err := r.retriever.Search(query, idx, k)
	if err != nil {
		return nil, err
	}
	r.cache.Put(query, k, idx.Generation, results)
	return results, nil
}
