// Package pricing supplies reference token prices and candidate executions
// to the solver strategies. The cache is an owned object with an injectable
// clock so expiry is deterministic under test; there is no shared global
// instance.
package pricing

import (
	"math/big"
	"sync"
	"time"
)

// Clock abstracts time.Now for deterministic cache expiry in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// QuoteCache manages cached reference prices to avoid duplicate lookups.
// Prices are in basis points of the quote asset per unit, as integers.
type QuoteCache struct {
	mu       sync.RWMutex
	cache    map[string]*cachedQuote
	cacheTTL time.Duration
	clock    Clock
}

// cachedQuote represents a cached reference price with timestamp
type cachedQuote struct {
	priceBps  *big.Int
	timestamp time.Time
}

// NewQuoteCache creates a new quote cache with the given TTL and clock.
func NewQuoteCache(cacheTTL time.Duration, clock Clock) *QuoteCache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &QuoteCache{
		cache:    make(map[string]*cachedQuote),
		cacheTTL: cacheTTL,
		clock:    clock,
	}
}

// Get retrieves a cached price if it's still valid, otherwise returns false.
func (c *QuoteCache) Get(tokenID string) (*big.Int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, exists := c.cache[tokenID]
	if !exists {
		return nil, false
	}

	// Check if cache is still valid
	if c.clock.Now().Sub(cached.timestamp) > c.cacheTTL {
		return nil, false
	}

	return new(big.Int).Set(cached.priceBps), true
}

// Set stores a price in the cache with the current clock timestamp.
func (c *QuoteCache) Set(tokenID string, priceBps *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[tokenID] = &cachedQuote{
		priceBps:  new(big.Int).Set(priceBps),
		timestamp: c.clock.Now(),
	}
}

// Clear removes all cached entries
func (c *QuoteCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*cachedQuote)
}

// Stats returns the number of live entries and the configured TTL.
func (c *QuoteCache) Stats() (int, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache), c.cacheTTL
}
