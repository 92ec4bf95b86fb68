package analysis

import (
	"container/list"
	"fmt"
	"sync"

	"requiem/domain/report"
)

// ResultCache keeps computed reports keyed by session and parameters,
// evicting the least recently used entry once full
type ResultCache struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	key  string
	resp *report.AnalysisResponse
}

// NewResultCache creates a cache holding up to size reports. A size of zero
// disables caching.
func NewResultCache(size int) *ResultCache {
	return &ResultCache{
		size:    size,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func cacheKey(sessionID string, p Params) string {
	return fmt.Sprintf("%s_%g_%g", sessionID, p.Threshold, p.ConfidenceLevel)
}

// Get returns a cached report
func (c *ResultCache) Get(sessionID string, p Params) (*report.AnalysisResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[cacheKey(sessionID, p)]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).resp, true
}

// Put stores a report
func (c *ResultCache) Put(sessionID string, p Params, resp *report.AnalysisResponse) {
	if c.size <= 0 {
		return
	}
	key := cacheKey(sessionID, p)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).resp = resp
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, resp: resp})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached reports
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
