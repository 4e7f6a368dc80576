package kv

import (
	"github.com/DataDog/zstd"
	"github.com/kelindar/binary"
)

// GridRecord mirrors the rasterized grid fields so the cache does not depend
// on the mapdata package.
type GridRecord struct {
	CellSize float64
	Cols     int
	Rows     int
	OriginX  float64
	OriginY  float64
	Cells    []float64
}

func Encode(rec GridRecord) ([]byte, error) {
	return binary.Marshal(&rec)
}

func Decode(bb []byte) (GridRecord, error) {
	var rec GridRecord
	err := binary.Unmarshal(bb, &rec)
	return rec, err
}

func Compress(bb []byte) ([]byte, error) {
	var bbCompressed []byte
	bbCompressed, err := zstd.Compress(bbCompressed, bb)
	if err != nil {
		return []byte{}, err
	}
	return bbCompressed, nil
}

func Decompress(bbCompressed []byte) ([]byte, error) {
	var bb []byte
	bb, err := zstd.Decompress(bb, bbCompressed)
	if err != nil {
		return []byte{}, err
	}

	return bb, nil
}
