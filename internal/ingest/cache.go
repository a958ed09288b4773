package ingest

import (
	"sync"
	"time"

	"sentiment-sales-risk/internal/types"
)

// commentCache keeps recent fetch results per platform and query so
// repeated misses on an empty window do not hammer upstream quotas.
type commentCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
	stop chan struct{}
	once sync.Once
}

type cacheEntry struct {
	comments  []types.Comment
	timestamp time.Time
}

func newCommentCache(ttl time.Duration, sweep time.Duration) *commentCache {
	c := &commentCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go c.cleanupLoop(sweep)
	return c
}

func cacheKey(platform, query string) string {
	return platform + "\x00" + query
}

func (c *commentCache) get(platform, query string) ([]types.Comment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[cacheKey(platform, query)]
	if !ok || time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.comments, true
}

func (c *commentCache) set(platform, query string, comments []types.Comment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[cacheKey(platform, query)] = &cacheEntry{
		comments:  comments,
		timestamp: time.Now(),
	}
}

func (c *commentCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *commentCache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *commentCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, k)
		}
	}
}

func (c *commentCache) close() {
	c.once.Do(func() { close(c.stop) })
}
