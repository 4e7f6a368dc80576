package kv

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

// MapCache stores rasterized cost grids keyed by the map file path, so a
// repeated refresh of the same extract skips the expensive rasterization.
// Values are binary-encoded and zstd-compressed.
type MapCache struct {
	db *pebble.DB
}

func NewMapCache(db *pebble.DB) *MapCache {
	return &MapCache{db}
}

func (c *MapCache) PutGrid(path string, rec GridRecord) error {
	encoded, err := Encode(rec)
	if err != nil {
		return err
	}
	compressed, err := Compress(encoded)
	if err != nil {
		return err
	}
	return c.db.Set([]byte(path), compressed, pebble.Sync)
}

// GetGrid returns the cached grid for path; the bool is false on a miss.
func (c *MapCache) GetGrid(path string) (GridRecord, bool, error) {
	val, closer, err := c.db.Get([]byte(path))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return GridRecord{}, false, nil
		}
		return GridRecord{}, false, err
	}
	defer closer.Close()

	decompressed, err := Decompress(val)
	if err != nil {
		return GridRecord{}, false, err
	}
	rec, err := Decode(decompressed)
	if err != nil {
		return GridRecord{}, false, err
	}
	return rec, true, nil
}

func (c *MapCache) Close() {
	c.db.Close()
}
