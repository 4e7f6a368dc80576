package ribbon

import (
	"fmt"
	"math"
	"strings"

	"github.com/hoppss/path-planner/pkg/datastructure"
)

// DefaultWidth is the coverage swath half-width in meters: a ribbon point is
// considered covered when the vehicle passes within this distance of it.
const DefaultWidth = 2.0

// Ribbon is a linear coverage corridor the vehicle must sweep, stored as a
// line segment in the local planar frame.
type Ribbon struct {
	StartX, StartY float64
	EndX, EndY     float64
}

func (r Ribbon) Length() float64 {
	dx := r.EndX - r.StartX
	dy := r.EndY - r.StartY
	return math.Sqrt(dx*dx + dy*dy)
}

// Project returns the parameter t (meters along the segment, clamped to
// [0, Length]) of the closest point to (x, y) and the distance to it.
func (r Ribbon) Project(x, y float64) (t, dist float64) {
	dx := r.EndX - r.StartX
	dy := r.EndY - r.StartY
	length := r.Length()
	if length == 0 {
		return 0, math.Hypot(x-r.StartX, y-r.StartY)
	}
	t = ((x-r.StartX)*dx + (y-r.StartY)*dy) / length
	t = math.Max(0, math.Min(length, t))
	px, py := r.PointAt(t)
	return t, math.Hypot(x-px, y-py)
}

// PointAt returns the point t meters along the segment from its start.
func (r Ribbon) PointAt(t float64) (x, y float64) {
	length := r.Length()
	if length == 0 {
		return r.StartX, r.StartY
	}
	f := t / length
	return r.StartX + (r.EndX-r.StartX)*f, r.StartY + (r.EndY-r.StartY)*f
}

// Manager owns the set of uncovered ribbons. It is not synchronized: the
// executive guards its copy with a lock and the planner works on per-vertex
// snapshots obtained through Copy.
type Manager struct {
	width   float64
	ribbons []Ribbon
}

func NewManager(width float64) *Manager {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Manager{width: width}
}

// minLength is the shortest ribbon fragment worth keeping after a split.
func (m *Manager) minLength() float64 {
	return m.width / 2
}

func (m *Manager) Add(x1, y1, x2, y2 float64) {
	r := Ribbon{StartX: x1, StartY: y1, EndX: x2, EndY: y2}
	if r.Length() < m.minLength() {
		return
	}
	m.ribbons = append(m.ribbons, r)
}

// Cover marks the swath around (x, y) as covered: any ribbon the point
// projects onto within the coverage width is trimmed or split, dropping
// fragments shorter than the minimum length.
func (m *Manager) Cover(x, y float64) {
	remaining := make([]Ribbon, 0, len(m.ribbons))
	for _, r := range m.ribbons {
		t, dist := r.Project(x, y)
		if dist > m.width {
			remaining = append(remaining, r)
			continue
		}
		length := r.Length()
		if left := t - m.width; left >= m.minLength() {
			ex, ey := r.PointAt(left)
			remaining = append(remaining, Ribbon{StartX: r.StartX, StartY: r.StartY, EndX: ex, EndY: ey})
		}
		if right := t + m.width; length-right >= m.minLength() {
			sx, sy := r.PointAt(right)
			remaining = append(remaining, Ribbon{StartX: sx, StartY: sy, EndX: r.EndX, EndY: r.EndY})
		}
	}
	m.ribbons = remaining
}

func (m *Manager) Done() bool {
	return len(m.ribbons) == 0
}

func (m *Manager) Reset() {
	m.ribbons = nil
}

func (m *Manager) Count() int {
	return len(m.ribbons)
}

// Copy returns an independent snapshot sharing nothing with the receiver.
func (m *Manager) Copy() *Manager {
	cp := &Manager{width: m.width}
	cp.ribbons = append(cp.ribbons, m.ribbons...)
	return cp
}

// NearestUncoveredPoint returns the closest point of any uncovered ribbon to
// the given state. The second return is false when coverage is complete.
func (m *Manager) NearestUncoveredPoint(from datastructure.State) (datastructure.State, bool) {
	best := math.MaxFloat64
	var bx, by float64
	for _, r := range m.ribbons {
		t, dist := r.Project(from.X, from.Y)
		if dist < best {
			best = dist
			bx, by = r.PointAt(t)
		}
	}
	if best == math.MaxFloat64 {
		return datastructure.State{}, false
	}
	return datastructure.State{X: bx, Y: by}, true
}

// MaxDistanceFrom returns the distance to the farthest uncovered ribbon
// endpoint, a lower bound on the remaining travel used as the heuristic input.
func (m *Manager) MaxDistanceFrom(x, y float64) float64 {
	var max float64
	for _, r := range m.ribbons {
		if d := math.Hypot(x-r.StartX, y-r.StartY); d > max {
			max = d
		}
		if d := math.Hypot(x-r.EndX, y-r.EndY); d > max {
			max = d
		}
	}
	return max
}

func (m *Manager) TotalUncoveredLength() float64 {
	var total float64
	for _, r := range m.ribbons {
		total += r.Length()
	}
	return total
}

// Dump renders the uncovered ribbons for visualization clients.
func (m *Manager) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ribbons: %d\n", len(m.ribbons))
	for _, r := range m.ribbons {
		fmt.Fprintf(&b, "%.2f %.2f %.2f %.2f\n", r.StartX, r.StartY, r.EndX, r.EndY)
	}
	return b.String()
}
