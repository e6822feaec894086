package ticks

import (
	"strconv"
	"strings"
	"sync"

	"elasticAnalytics/internal/model"
)

// Cache holds processed ticks keyed by pool and tick index. Entries are
// never invalidated; only prices are reused from them.
type Cache struct {
	mu    sync.RWMutex
	ticks map[string]model.ProcessedTick
}

// NewCache creates an empty tick cache.
func NewCache() *Cache {
	return &Cache{ticks: make(map[string]model.ProcessedTick)}
}

func cacheKey(pool string, tickIdx int) string {
	return strings.ToLower(pool) + "_" + strconv.Itoa(tickIdx)
}

// Get returns the cached tick for pool at tickIdx.
func (c *Cache) Get(pool string, tickIdx int) (model.ProcessedTick, bool) {
	if c == nil {
		return model.ProcessedTick{}, false
	}
	c.mu.RLock()
	tick, ok := c.ticks[cacheKey(pool, tickIdx)]
	c.mu.RUnlock()
	return tick, ok
}

// Set stores tick for pool.
func (c *Cache) Set(pool string, tick model.ProcessedTick) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ticks[cacheKey(pool, tick.TickIdx)] = tick
	c.mu.Unlock()
}

// Len returns the number of cached ticks.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ticks)
}
