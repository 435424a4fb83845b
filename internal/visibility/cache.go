package visibility

import (
	"sync"

	"github.com/existflow/secureplan/internal/model"
)

// DefaultCacheSize bounds the number of (viewer, subject) pairs kept.
const DefaultCacheSize = 4096

type cacheKey struct {
	viewer, subject string
}

// Cache holds resolved mutual-project lists per (viewer, subject) pair.
// When full, an arbitrary entry is evicted to make room.
type Cache struct {
	mu      sync.RWMutex
	size    int
	gen     uint64 // bumped by every invalidation
	entries map[cacheKey][]model.Project
}

// NewCache creates an empty cache holding at most size pairs.
// A non-positive size uses DefaultCacheSize.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{size: size, entries: make(map[cacheKey][]model.Project)}
}

// Get returns the cached list or computes and stores it on a miss.
func (c *Cache) Get(viewer, subject string, compute func() ([]model.Project, error)) ([]model.Project, error) {
	key := cacheKey{viewer, subject}
	c.mu.RLock()
	projects, ok := c.entries[key]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return projects, nil
	}

	projects, err := compute()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// invalidated while computing; the result may already be stale
		return projects, nil
	}
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.size {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = projects
	return projects, nil
}

// Invalidate drops the entries for the pair in both directions.
func (c *Cache) Invalidate(a, b string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	delete(c.entries, cacheKey{a, b})
	delete(c.entries, cacheKey{b, a})
}

// InvalidateUsers drops every entry in which one of ids is the viewer or the subject.
func (c *Cache) InvalidateUsers(ids ...string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for k := range c.entries {
		_, v := drop[k.viewer]
		_, s := drop[k.subject]
		if v || s {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
