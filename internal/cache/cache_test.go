package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/rulescan/internal/model"
)

func groceries() *model.TransactionSet {
	return model.NewTransactionSet("g", [][]string{
		{"milk", "bread"},
		{"milk", "soda"},
	})
}

func TestCacheKey(t *testing.T) {
	params := model.DefaultMining()
	a := CacheKey(groceries(), params)

	assert.Contains(t, a, "rulescan:v1:")
	assert.Equal(t, a, CacheKey(groceries(), params))

	reordered := model.NewTransactionSet("other name", [][]string{
		{"bread", "milk"},
		{"soda", "milk"},
	})
	assert.Equal(t, a, CacheKey(reordered, params), "item order and name must not matter")

	params.MinSupport = 0.2
	assert.NotEqual(t, a, CacheKey(groceries(), params))

	swapped := model.NewTransactionSet("g", [][]string{{"milk", "soda"}, {"milk", "bread"}})
	assert.NotEqual(t, a, CacheKey(swapped, model.DefaultMining()))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("hello")
	require.NoError(t, c.Set("k", value, 0))
	value[0] = 'j'

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hello", string(got), "stored value must not alias the caller's slice")
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestBoltCache_RoundTripAndExpiry(t *testing.T) {
	c, err := NewBoltCache(filepath.Join(t.TempDir(), "sub", "cache.db"), time.Hour)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set("k", []byte("v"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	require.NoError(t, c.Set("old", []byte("v"), -time.Second))
	_, ok = c.Get("old")
	assert.False(t, ok, "expired entries are not returned")

	require.NoError(t, c.Clear())
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestBoltCache_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewBoltCache(path, time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Set("k", []byte("v"), 0))
	require.NoError(t, c.Close())

	c, err = NewBoltCache(path, time.Hour)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	lc, err := NewLayeredCache(time.Minute, path, time.Hour)
	require.NoError(t, err)
	defer func() { _ = lc.Close() }()

	require.NoError(t, lc.disk.Set("k", []byte("v"), 0))
	_, inMemory := lc.memory.Get("k")
	require.False(t, inMemory)

	got, ok := lc.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	_, inMemory = lc.memory.Get("k")
	assert.True(t, inMemory)

	require.NoError(t, lc.Delete("k"))
	_, ok = lc.Get("k")
	assert.False(t, ok)
}

func TestRecords(t *testing.T) {
	r := NewRecords(NewMemoryCache(time.Minute, time.Minute), 0)

	records := []model.RuleRecord{{
		Items:   model.NewItemSet("milk"),
		Support: 1,
		Statistics: []model.OrderedStatistic{{
			ItemsBase:  model.ItemSet{},
			ItemsAdd:   model.NewItemSet("milk"),
			Confidence: 1,
			Lift:       1,
		}},
	}}
	require.NoError(t, r.Put("k", records))

	got, ok := r.Get("k")
	require.True(t, ok)
	assert.Equal(t, records, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}
