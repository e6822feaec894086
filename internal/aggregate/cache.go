package aggregate

import (
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"elasticAnalytics/internal/model"
)

// DataCache keeps per-(network, address) explorer data. Entries never expire.
type DataCache[T any] struct {
	entries *xsync.Map[string, model.CacheEntry[T]]
	now     func() time.Time
}

// NewDataCache creates an empty cache.
func NewDataCache[T any]() *DataCache[T] {
	return &DataCache[T]{
		entries: xsync.NewMap[string, model.CacheEntry[T]](),
		now:     time.Now,
	}
}

func dataKey(networkID, address string) string {
	return networkID + ":" + strings.ToLower(address)
}

// Get returns the entry for address on networkID.
func (c *DataCache[T]) Get(networkID, address string) (model.CacheEntry[T], bool) {
	return c.entries.Load(dataKey(networkID, address))
}

// Update applies fn to the entry for address, creating it if needed, and
// stamps LastUpdated.
func (c *DataCache[T]) Update(networkID, address string, fn func(entry *model.CacheEntry[T])) model.CacheEntry[T] {
	entry, _ := c.entries.Compute(dataKey(networkID, address), func(old model.CacheEntry[T], loaded bool) (model.CacheEntry[T], xsync.ComputeOp) {
		fn(&old)
		old.LastUpdated = c.now()
		return old, xsync.UpdateOp
	})
	return entry
}

// SetData stores the main record for address.
func (c *DataCache[T]) SetData(networkID, address string, data T) {
	c.Update(networkID, address, func(entry *model.CacheEntry[T]) {
		entry.Data = &data
	})
}

// Len returns the number of cached addresses.
func (c *DataCache[T]) Len() int {
	return c.entries.Size()
}
