package mapdata

import (
	"math"
	"strings"

	"github.com/hoppss/path-planner/domain"
	"github.com/hoppss/path-planner/pkg/kv"
)

// BlockedCost is the cell cost at or above which a cell is impassable.
const BlockedCost = 1.0

// CostMap is the per-cell cost field the edge cost evaluator queries.
type CostMap interface {
	IsBlocked(x, y float64) bool
	CostAt(x, y float64) float64
}

// EmptyMap is the default map substituted when loading fails: free everywhere.
type EmptyMap struct{}

func (EmptyMap) IsBlocked(x, y float64) bool { return false }
func (EmptyMap) CostAt(x, y float64) float64 { return 0 }

// Grid is a dense cost grid in the local planar frame.
type Grid struct {
	CellSize float64
	Cols     int
	Rows     int
	OriginX  float64
	OriginY  float64
	Cells    []float64
}

func (g *Grid) index(x, y float64) (int, bool) {
	col := int(math.Floor((x - g.OriginX) / g.CellSize))
	row := int(math.Floor((y - g.OriginY) / g.CellSize))
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return 0, false
	}
	return row*g.Cols + col, true
}

func (g *Grid) IsBlocked(x, y float64) bool {
	return g.CostAt(x, y) >= BlockedCost
}

func (g *Grid) CostAt(x, y float64) float64 {
	i, ok := g.index(x, y)
	if !ok {
		return 0
	}
	return g.Cells[i]
}

func (g *Grid) toRecord() kv.GridRecord {
	return kv.GridRecord{
		CellSize: g.CellSize,
		Cols:     g.Cols,
		Rows:     g.Rows,
		OriginX:  g.OriginX,
		OriginY:  g.OriginY,
		Cells:    g.Cells,
	}
}

func gridFromRecord(rec kv.GridRecord) *Grid {
	return &Grid{
		CellSize: rec.CellSize,
		Cols:     rec.Cols,
		Rows:     rec.Rows,
		OriginX:  rec.OriginX,
		OriginY:  rec.OriginY,
		Cells:    rec.Cells,
	}
}

// Load selects the map format by filename: grid-world text maps end in .map,
// OpenStreetMap extracts in .pbf. The cache may be nil.
func Load(path string, refLat, refLon float64, cache *kv.MapCache) (CostMap, error) {
	switch {
	case strings.HasSuffix(path, ".map"):
		return LoadGridWorld(path)
	case strings.HasSuffix(path, ".pbf"):
		return LoadOSMGrid(path, refLat, refLon, cache)
	default:
		return nil, domain.WrapErrorf(nil, domain.ErrMapLoad, "unrecognized map format %q", path)
	}
}
