package lrucache_test

import (
	"testing"

	"github.com/SukkaW/tsurlfilter-sub001/internal/lrucache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	t.Parallel()

	c := lrucache.New[int, string](&lrucache.Config{Size: 2})

	c.Set(1, "one")
	c.Set(2, "two")
	require.Equal(t, 2, c.Len())

	val, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "one", val)

	// Key 2 is now the least recently used one.
	c.Set(3, "three")

	_, ok = c.Get(2)
	assert.False(t, ok)

	val, ok = c.Get(3)
	require.True(t, ok)
	assert.Equal(t, "three", val)

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestLRU_nilInterface(t *testing.T) {
	t.Parallel()

	c := lrucache.New[int, error](&lrucache.Config{Size: 1})
	c.Set(1, nil)

	val, ok := c.Get(1)
	assert.True(t, ok)
	assert.NoError(t, val)
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	c := lrucache.Empty[int, string]{}
	c.Set(1, "one")

	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
