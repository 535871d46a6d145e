package ml

import (
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedPrediction struct {
	class      int
	confidence float64
}

// PredictionCache memoizes classifier output for repeated feature vectors.
// Entries are bounded by an LRU policy.
type PredictionCache struct {
	entries *lru.Cache[string, cachedPrediction]
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewPredictionCache(size int) (*PredictionCache, error) {
	entries, err := lru.New[string, cachedPrediction](size)
	if err != nil {
		return nil, err
	}
	return &PredictionCache{entries: entries}, nil
}

func (c *PredictionCache) Get(features []float64) (int, float64, bool) {
	cached, ok := c.entries.Get(cacheKey(features))
	if !ok {
		c.misses.Add(1)
		return 0, 0, false
	}
	c.hits.Add(1)
	return cached.class, cached.confidence, true
}

func (c *PredictionCache) Add(features []float64, class int, confidence float64) {
	c.entries.Add(cacheKey(features), cachedPrediction{class: class, confidence: confidence})
}

// Purge drops every entry. Must be called when the underlying model
// changes, otherwise cached vectors would keep the old model's answers.
func (c *PredictionCache) Purge() {
	c.entries.Purge()
}

func (c *PredictionCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *PredictionCache) Len() int {
	return c.entries.Len()
}

func cacheKey(features []float64) string {
	var b strings.Builder
	for i, v := range features {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%.4f", v)
	}
	return b.String()
}
