package kv_test

import (
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoppss/path-planner/pkg/kv"
)

func newCache(t *testing.T) *kv.MapCache {
	t.Helper()
	db, err := pebble.Open(t.TempDir(), &pebble.Options{})
	require.NoError(t, err)
	cache := kv.NewMapCache(db)
	t.Cleanup(cache.Close)
	return cache
}

func TestMapCache(t *testing.T) {

	t.Run("stores and retrieves a grid", func(t *testing.T) {
		cache := newCache(t)

		rec := kv.GridRecord{
			CellSize: 10,
			Cols:     3,
			Rows:     2,
			OriginX:  -15,
			OriginY:  7.5,
			Cells:    []float64{0, 1, 0, 0.5, 0, 1},
		}
		require.NoError(t, cache.PutGrid("extract.pbf", rec))

		got, ok, err := cache.GetGrid("extract.pbf")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rec, got)
	})

	t.Run("a missing key is a miss, not an error", func(t *testing.T) {
		cache := newCache(t)

		_, ok, err := cache.GetGrid("never-stored.pbf")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("overwriting a key keeps the latest grid", func(t *testing.T) {
		cache := newCache(t)

		first := kv.GridRecord{CellSize: 10, Cols: 1, Rows: 1, Cells: []float64{0}}
		second := kv.GridRecord{CellSize: 20, Cols: 1, Rows: 1, Cells: []float64{1}}
		require.NoError(t, cache.PutGrid("extract.pbf", first))
		require.NoError(t, cache.PutGrid("extract.pbf", second))

		got, ok, err := cache.GetGrid("extract.pbf")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, second, got)
	})
}
