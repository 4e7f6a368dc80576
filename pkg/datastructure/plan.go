package datastructure

import (
	"github.com/twpayne/go-polyline"
)

// Segment is one edge of a traced plan: the connection between two vertices of
// the search tree, with the true cost paid for it and the turning-radius
// policy that produced it.
type Segment struct {
	Start        State   `json:"start"`
	End          State   `json:"end"`
	Cost         float64 `json:"cost"`
	CoverageMode bool    `json:"coverage_mode"`
}

// Plan is an ordered sequence of segments from the search root to the accepted
// goal vertex, plus the poses sampled along them at the collision-checking
// increment. Done reports whether the coverage objective was complete at the
// goal vertex.
type Plan struct {
	Segments []Segment
	States   []State
	Done     bool
}

func (p *Plan) AppendState(s State) {
	p.States = append(p.States, s)
}

func (p *Plan) AppendSegment(seg Segment, sampled []State) {
	p.Segments = append(p.Segments, seg)
	p.States = append(p.States, sampled...)
}

func (p *Plan) Empty() bool {
	return p == nil || len(p.Segments) == 0
}

func (p *Plan) StartTime() float64 {
	if len(p.Segments) == 0 {
		return 0
	}
	return p.Segments[0].Start.Time
}

func (p *Plan) EndTime() float64 {
	if len(p.Segments) == 0 {
		return 0
	}
	return p.Segments[len(p.Segments)-1].End.Time
}

func (p *Plan) TotalCost() float64 {
	var total float64
	for _, seg := range p.Segments {
		total += seg.Cost
	}
	return total
}

// Polyline encodes the sampled trajectory as a google polyline string for the
// REST API and visualization clients.
func (p *Plan) Polyline() string {
	coords := make([][]float64, 0, len(p.States))
	for _, s := range p.States {
		coords = append(coords, []float64{s.X, s.Y})
	}
	return string(polyline.EncodeCoords(coords))
}
