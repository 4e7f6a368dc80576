package planner

import (
	"math"

	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/ribbon"
)

// Edge connects a parent vertex to a candidate end state under a turning
// radius policy. Costs are computed lazily and cached: the approximate cost
// during candidate triage, the true cost only for candidates that survive it.
type Edge struct {
	Start        *Vertex
	End          datastructure.State
	Radius       float64
	CoverageMode bool
	Infeasible   bool

	// Samples holds the poses walked at the collision-checking increment,
	// filled by the true-cost evaluation.
	Samples []datastructure.State

	approxCost float64
	approxSet  bool
	trueCost   float64
	trueSet    bool
}

func (e *Edge) ApproxCost(ev Evaluator) float64 {
	if !e.approxSet {
		e.approxCost = ev.ApproxCost(e.Start.State, e.End, e.Radius)
		e.approxSet = true
	}
	return e.approxCost
}

func (e *Edge) TrueCost() float64 {
	if !e.trueSet {
		return math.MaxFloat64
	}
	return e.trueCost
}

// Vertex is a node of the search tree. Ribbons is the per-vertex snapshot of
// the uncovered set after traversing the parent edge; it stays nil until the
// edge's true cost has been computed.
type Vertex struct {
	State      datastructure.State
	Depth      int
	ParentEdge *Edge
	Ribbons    *ribbon.Manager

	g    float64
	gSet bool
	h    float64
	hSet bool
}

// MakeRoot builds the tree root at the start state with the current
// uncovered set.
func MakeRoot(start datastructure.State, ribbons *ribbon.Manager) *Vertex {
	return &Vertex{State: start, Ribbons: ribbons, gSet: true}
}

// Connect hangs a candidate vertex off parent toward the target state. The
// vertex's state, cost and ribbon snapshot are filled by ComputeTrueCost.
func Connect(parent *Vertex, target datastructure.State, radius float64, coverage bool) *Vertex {
	v := &Vertex{
		State: target,
		Depth: parent.Depth + 1,
	}
	v.ParentEdge = &Edge{
		Start:        parent,
		End:          target,
		Radius:       radius,
		CoverageMode: coverage,
	}
	return v
}

func (v *Vertex) IsRoot() bool {
	return v.ParentEdge == nil
}

// ribbonView returns the vertex's snapshot, falling back to the parent's
// before the edge has been evaluated.
func (v *Vertex) ribbonView() *ribbon.Manager {
	if v.Ribbons != nil {
		return v.Ribbons
	}
	if v.ParentEdge != nil {
		return v.ParentEdge.Start.ribbonView()
	}
	return nil
}

// Done reports whether the coverage objective is complete at this vertex.
func (v *Vertex) Done() bool {
	rm := v.ribbonView()
	return rm == nil || rm.Done()
}

// CurrentCost is the accumulated true cost from the root (g).
func (v *Vertex) CurrentCost() float64 {
	if !v.gSet {
		return math.MaxFloat64
	}
	return v.g
}

// ApproxToGo is the admissible cost-to-go (h): the distance to the farthest
// uncovered ribbon endpoint at maximum speed. Cached after the first call.
func (v *Vertex) ApproxToGo(cfg *Config) float64 {
	if v.hSet {
		return v.h
	}
	rm := v.ribbonView()
	if rm == nil || rm.Done() {
		v.h = 0
	} else {
		v.h = rm.MaxDistanceFrom(v.State.X, v.State.Y) / cfg.MaxSpeed * cfg.TimePenalty
	}
	v.hSet = true
	return v.h
}

// F is the admissible total estimate g + h used for pruning against the
// incumbent goal.
func (v *Vertex) F(cfg *Config) float64 {
	if !v.gSet {
		return math.MaxFloat64
	}
	return v.g + v.ApproxToGo(cfg)
}

// ComputeTrueCost evaluates the parent edge against the map and obstacles,
// fixes the vertex's arrival state, and derives the vertex's ribbon snapshot
// by covering every pose walked along the edge.
func (v *Vertex) ComputeTrueCost(cfg *Config, ev Evaluator) {
	e := v.ParentEdge
	parent := e.Start

	speed := e.End.Speed
	if e.CoverageMode {
		speed = cfg.CoverageMaxSpeed
	} else if speed <= 0 {
		speed = cfg.MaxSpeed
	}

	res := ev.TrueCost(parent.State, e.End, e.Radius, speed)
	e.trueCost = res.Cost
	e.trueSet = true
	e.Infeasible = res.Infeasible
	if res.Infeasible {
		return
	}
	e.Samples = res.Samples
	v.State = res.End

	v.Ribbons = parent.Ribbons.Copy()
	for _, s := range res.Samples {
		v.Ribbons.Cover(s.X, s.Y)
	}
	v.hSet = false

	v.g = parent.g + res.Cost
	v.gSet = true
}
