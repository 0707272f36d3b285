package txcache

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	cache, err := New(4)
	require.NoError(t, err)

	hash := common.HexToHash("0xabc123")
	cache.Put(42, hash)

	got, ok := cache.Get(42)
	assert.True(t, ok)
	assert.Equal(t, hash, got)

	_, ok = cache.Get(99)
	assert.False(t, ok)
}

func TestOldestEvictedAtCapacity(t *testing.T) {
	cache, err := New(2)
	require.NoError(t, err)

	cache.Put(1, common.HexToHash("0x01"))
	cache.Put(2, common.HexToHash("0x02"))
	cache.Put(3, common.HexToHash("0x03"))

	_, ok := cache.Get(1)
	assert.False(t, ok, "oldest entry should be evicted")

	_, ok = cache.Get(2)
	assert.True(t, ok)
	_, ok = cache.Get(3)
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestPutOverwritesExistingIntent(t *testing.T) {
	cache, err := New(2)
	require.NoError(t, err)

	cache.Put(1, common.HexToHash("0x01"))
	cache.Put(1, common.HexToHash("0x02"))

	got, ok := cache.Get(1)
	require.True(t, ok)
	assert.Equal(t, common.HexToHash("0x02"), got)
	assert.Equal(t, 1, cache.Len())
}
