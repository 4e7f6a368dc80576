package mapdata

import (
	"context"
	"io"
	"log"
	"math"
	"os"
	"runtime"

	"github.com/dhconnelly/rtreego"
	"github.com/golang/geo/s2"
	"github.com/k0kubun/go-ansi"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/schollz/progressbar/v3"

	"github.com/hoppss/path-planner/domain"
	"github.com/hoppss/path-planner/pkg/concurrent"
	"github.com/hoppss/path-planner/pkg/kv"
)

const (
	earthRadius = 6371000.0

	// defaultOSMCellSize is the rasterization resolution in meters. It grows
	// when the extract would otherwise exceed maxGridCells.
	defaultOSMCellSize = 10.0
	maxGridCells       = 4_000_000

	// obstacleClearance is the half-width painted around every blocking way.
	obstacleClearance = 5.0

	rtreeTol = 0.001
)

// isBlockingWay reports whether a tagged way is impassable for the vehicle.
func isBlockingWay(tag map[string]string) bool {
	switch tag["natural"] {
	case "coastline", "water":
		return true
	}
	switch tag["man_made"] {
	case "breakwater", "pier", "groyne":
		return true
	}
	switch tag["landuse"] {
	case "reservoir", "basin":
		return true
	}
	if tag["waterway"] == "riverbank" || tag["waterway"] == "dam" {
		return true
	}
	if _, ok := tag["building"]; ok {
		return true
	}
	return false
}

type waySegment struct {
	ax, ay float64
	bx, by float64
}

func (s *waySegment) Bounds() rtreego.Rect {
	minX, maxX := math.Min(s.ax, s.bx), math.Max(s.ax, s.bx)
	minY, maxY := math.Min(s.ay, s.by), math.Max(s.ay, s.by)
	rect, err := rtreego.NewRect(rtreego.Point{minX, minY},
		[]float64{maxX - minX + rtreeTol, maxY - minY + rtreeTol})
	if err != nil {
		return rtreego.Point{s.ax, s.ay}.ToRect(rtreeTol)
	}
	return rect
}

// distanceTo returns the distance from (x, y) to the segment.
func (s *waySegment) distanceTo(x, y float64) float64 {
	dx, dy := s.bx-s.ax, s.by-s.ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(x-s.ax, y-s.ay)
	}
	t := ((x-s.ax)*dx + (y-s.ay)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(x-(s.ax+t*dx), y-(s.ay+t*dy))
}

// project maps a lat/lon onto the local planar frame centered on the
// reference point, equirectangular with the reference latitude's scale.
func project(lat, lon, refLat, refLon float64) (x, y float64) {
	ll := s2.LatLngFromDegrees(lat, lon)
	ref := s2.LatLngFromDegrees(refLat, refLon)
	x = earthRadius * (ll.Lng - ref.Lng).Radians() * math.Cos(ref.Lat.Radians())
	y = earthRadius * (ll.Lat - ref.Lat).Radians()
	return x, y
}

// LoadOSMGrid rasterizes the blocking features of an OpenStreetMap extract
// into a cost grid around the reference point. Rasterized grids are cached
// by file path when a cache is supplied.
func LoadOSMGrid(path string, refLat, refLon float64, cache *kv.MapCache) (*Grid, error) {
	if cache != nil {
		rec, ok, err := cache.GetGrid(path)
		if err != nil {
			log.Printf("map cache read for %q failed: %v", path, err)
		} else if ok {
			return gridFromRecord(rec), nil
		}
	}

	segments, err := scanBlockingSegments(path, refLat, refLon)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, domain.WrapErrorf(nil, domain.ErrMapLoad, "extract %q has no blocking features", path)
	}

	grid := rasterize(segments)
	if cache != nil {
		if err := cache.PutGrid(path, grid.toRecord()); err != nil {
			log.Printf("map cache write for %q failed: %v", path, err)
		}
	}
	return grid, nil
}

// scanBlockingSegments reads the extract twice, ways first to learn which
// nodes matter, then nodes, and projects every blocking way into planar
// segments.
func scanBlockingSegments(path string, refLat, refLon float64) ([]*waySegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapErrorf(err, domain.ErrMapLoad, "opening extract %q", path)
	}
	defer f.Close()

	scanner := osmpbf.New(context.Background(), f, 3)
	var ways []*osm.Way
	wayNodes := make(map[osm.NodeID]bool)
	for scanner.Scan() {
		o := scanner.Object()
		if o.ObjectID().Type() != osm.TypeWay {
			continue
		}
		way := o.(*osm.Way)
		if !isBlockingWay(way.TagMap()) {
			continue
		}
		ways = append(ways, way)
		for _, node := range way.Nodes {
			wayNodes[node.ID] = true
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, domain.WrapErrorf(err, domain.ErrMapLoad, "scanning ways of %q", path)
	}
	scanner.Close()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, domain.WrapErrorf(err, domain.ErrMapLoad, "rewinding %q", path)
	}
	scanner = osmpbf.New(context.Background(), f, 3)
	defer scanner.Close()

	nodeMap := make(map[osm.NodeID]*osm.Node, len(wayNodes))
	for scanner.Scan() {
		o := scanner.Object()
		if o.ObjectID().Type() != osm.TypeNode {
			continue
		}
		node := o.(*osm.Node)
		if wayNodes[node.ID] {
			nodeMap[node.ID] = node
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.WrapErrorf(err, domain.ErrMapLoad, "scanning nodes of %q", path)
	}

	var segments []*waySegment
	for _, way := range ways {
		for i := 0; i+1 < len(way.Nodes); i++ {
			a, okA := nodeMap[way.Nodes[i].ID]
			b, okB := nodeMap[way.Nodes[i+1].ID]
			if !okA || !okB {
				continue
			}
			ax, ay := project(a.Lat, a.Lon, refLat, refLon)
			bx, by := project(b.Lat, b.Lon, refLat, refLon)
			segments = append(segments, &waySegment{ax: ax, ay: ay, bx: bx, by: by})
		}
	}
	return segments, nil
}

type rowJob struct {
	row int
}

type rowResult struct {
	row   int
	cells []float64
}

func rasterize(segments []*waySegment) *Grid {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	tree := rtreego.NewTree(2, 25, 50)
	for _, seg := range segments {
		tree.Insert(seg)
		minX = math.Min(minX, math.Min(seg.ax, seg.bx))
		maxX = math.Max(maxX, math.Max(seg.ax, seg.bx))
		minY = math.Min(minY, math.Min(seg.ay, seg.by))
		maxY = math.Max(maxY, math.Max(seg.ay, seg.by))
	}
	minX -= obstacleClearance
	minY -= obstacleClearance
	maxX += obstacleClearance
	maxY += obstacleClearance

	cellSize := defaultOSMCellSize
	for ((maxX-minX)/cellSize)*((maxY-minY)/cellSize) > maxGridCells {
		cellSize *= 2
	}
	cols := int(math.Ceil((maxX - minX) / cellSize))
	rows := int(math.Ceil((maxY - minY) / cellSize))

	grid := &Grid{
		CellSize: cellSize,
		Cols:     cols,
		Rows:     rows,
		OriginX:  minX,
		OriginY:  minY,
		Cells:    make([]float64, cols*rows),
	}

	bar := progressbar.NewOptions(rows,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription("[cyan]rasterizing map extract...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	pool := concurrent.NewWorkerPool[rowJob, rowResult](runtime.NumCPU(), rows)
	for row := 0; row < rows; row++ {
		pool.AddJob(rowJob{row: row})
	}
	pool.Close()
	pool.Start(func(job rowJob) rowResult {
		return rasterizeRow(grid, tree, job.row)
	})
	go pool.Wait()

	for res := range pool.CollectResults() {
		copy(grid.Cells[res.row*cols:(res.row+1)*cols], res.cells)
		bar.Add(1)
	}
	return grid
}

func rasterizeRow(grid *Grid, tree *rtreego.Rtree, row int) rowResult {
	cells := make([]float64, grid.Cols)
	cy := grid.OriginY + (float64(row)+0.5)*grid.CellSize

	rect, err := rtreego.NewRect(
		rtreego.Point{grid.OriginX - obstacleClearance, cy - grid.CellSize/2 - obstacleClearance},
		[]float64{float64(grid.Cols)*grid.CellSize + 2*obstacleClearance, grid.CellSize + 2*obstacleClearance})
	if err != nil {
		return rowResult{row: row, cells: cells}
	}
	nearby := tree.SearchIntersect(rect)

	for col := 0; col < grid.Cols; col++ {
		cx := grid.OriginX + (float64(col)+0.5)*grid.CellSize
		for _, spatial := range nearby {
			seg := spatial.(*waySegment)
			if seg.distanceTo(cx, cy) <= obstacleClearance {
				cells[col] = BlockedCost
				break
			}
		}
	}
	return rowResult{row: row, cells: cells}
}
