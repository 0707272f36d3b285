package pricing

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for deterministic expiry tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestQuoteCacheHit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewQuoteCache(5*time.Minute, clock)

	cache.Set("USDC", big.NewInt(10000))

	price, ok := cache.Get("USDC")
	require.True(t, ok)
	assert.Equal(t, "10000", price.String())
}

func TestQuoteCacheMiss(t *testing.T) {
	cache := NewQuoteCache(5*time.Minute, &fakeClock{})

	_, ok := cache.Get("WETH")
	assert.False(t, ok)
}

func TestQuoteCacheExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewQuoteCache(5*time.Minute, clock)

	cache.Set("USDC", big.NewInt(10000))

	clock.Advance(5 * time.Minute)
	_, ok := cache.Get("USDC")
	assert.True(t, ok, "entry at exactly the TTL boundary is still valid")

	clock.Advance(time.Second)
	_, ok = cache.Get("USDC")
	assert.False(t, ok, "entry past the TTL must expire")
}

func TestQuoteCacheReturnsCopy(t *testing.T) {
	cache := NewQuoteCache(5*time.Minute, &fakeClock{now: time.Now()})
	cache.Set("USDC", big.NewInt(10000))

	price, ok := cache.Get("USDC")
	require.True(t, ok)
	price.SetInt64(1) // mutating the returned value must not poison the cache

	again, ok := cache.Get("USDC")
	require.True(t, ok)
	assert.Equal(t, "10000", again.String())
}

func TestQuoteCacheClear(t *testing.T) {
	cache := NewQuoteCache(5*time.Minute, &fakeClock{now: time.Now()})
	cache.Set("USDC", big.NewInt(10000))
	cache.Set("USDT", big.NewInt(9998))

	count, ttl := cache.Stats()
	assert.Equal(t, 2, count)
	assert.Equal(t, 5*time.Minute, ttl)

	cache.Clear()
	count, _ = cache.Stats()
	assert.Equal(t, 0, count)
}
