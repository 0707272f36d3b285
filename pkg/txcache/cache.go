// Package txcache keeps a bounded in-memory map from intent IDs to the
// most recent fill transaction hash this process submitted for them. It
// lets the status endpoint and logs answer "what did we last send for
// intent N" without a database round trip.
package txcache

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a fixed-capacity intent-to-transaction cache. Oldest entries
// are evicted when the cap is reached.
type Cache struct {
	entries *lru.Cache[uint64, common.Hash]
}

// New creates a cache holding at most size entries.
func New(size int) (*Cache, error) {
	entries, err := lru.New[uint64, common.Hash](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create tx cache: %v", err)
	}
	return &Cache{entries: entries}, nil
}

// Put records the latest transaction hash for an intent.
func (c *Cache) Put(intentID uint64, txHash common.Hash) {
	c.entries.Add(intentID, txHash)
}

// Get returns the last recorded transaction hash for an intent.
func (c *Cache) Get(intentID uint64) (common.Hash, bool) {
	return c.entries.Get(intentID)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
