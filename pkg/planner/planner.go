package planner

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/hoppss/path-planner/domain"
	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/ribbon"
	"github.com/hoppss/path-planner/pkg/util"
)

// Stats summarizes one planning call.
type Stats struct {
	Expanded   int
	Generated  int
	Pruned     int
	TimeBudget float64
}

// SamplingBasedPlanner searches for a coverage trajectory over a fixed set of
// random samples. Expansion connects each vertex to the nearest uncovered
// ribbon point and to the best few samples under both turning-radius
// policies; the depth-ordered open list drives the search to a goal quickly.
type SamplingBasedPlanner struct {
	cfg       *Config
	ev        Evaluator
	samples   []datastructure.State
	queue     *VertexQueue
	startTime float64
	stats     Stats

	// OnGoal, when set, observes the accepted goal vertex before tracing.
	OnGoal func(*Vertex)
}

func NewSamplingBasedPlanner() *SamplingBasedPlanner {
	return &SamplingBasedPlanner{}
}

func (p *SamplingBasedPlanner) Stats() Stats {
	return p.stats
}

// Plan searches from the start state until a vertex satisfies the goal
// condition and returns the traced plan. The previous plan and remaining time
// are advisory. An exhausted search space is an error; no partial plan is
// returned.
func (p *SamplingBasedPlanner) Plan(
	ribbons *ribbon.Manager,
	start datastructure.State,
	cfg Config,
	previous *datastructure.Plan,
	timeRemaining float64,
) (*datastructure.Plan, error) {
	_ = previous

	cfg.applyDefaults()
	p.cfg = &cfg
	p.ev = newEvaluator(&cfg)
	p.startTime = start.Time
	p.stats = Stats{TimeBudget: timeRemaining}

	magnitude := cfg.MaxSpeed * cfg.TimeHorizon
	gen := NewStateGenerator(
		start.X-magnitude, start.X+magnitude,
		start.Y-magnitude, start.Y+magnitude,
		cfg.MaxSpeed, cfg.MaxSpeed,
		cfg.Seed,
	)
	p.samples = p.samples[:0]
	for i := 0; i < cfg.SampleCount; i++ {
		p.samples = append(p.samples, gen.Generate())
	}

	p.queue = NewVertexQueue(&cfg, p.goalCondition)

	vertex := MakeRoot(start, ribbons.Copy())
	for !p.goalCondition(vertex) {
		p.expand(vertex)
		var err error
		vertex, err = p.queue.PopVertex()
		if err != nil {
			return nil, domain.WrapErrorf(err, domain.ErrSearchExhausted,
				"planning from %s", start)
		}
	}

	if p.OnGoal != nil {
		p.OnGoal(vertex)
	}
	p.queue.SetIncumbent(vertex)
	return p.tracePlan(vertex), nil
}

// goalCondition accepts a vertex at or beyond the time horizon, or one that
// has completed coverage once the minimum duration has elapsed. A zero
// minimum disables the early coverage exit so the plan always runs to the
// horizon.
func (p *SamplingBasedPlanner) goalCondition(v *Vertex) bool {
	t := v.State.Time
	if t >= p.startTime+p.cfg.TimeHorizon {
		return true
	}
	return p.cfg.TimeMinimum > 0 && v.Done() && t >= p.startTime+p.cfg.TimeMinimum
}

// candidateHeap keeps the k cheapest candidates by approximate edge cost,
// worst on top so it can be evicted in O(log k).
type candidateHeap struct {
	verts []*Vertex
	ev    Evaluator
}

func (h *candidateHeap) Len() int { return len(h.verts) }
func (h *candidateHeap) Less(i, j int) bool {
	return h.verts[i].ParentEdge.ApproxCost(h.ev) > h.verts[j].ParentEdge.ApproxCost(h.ev)
}
func (h *candidateHeap) Swap(i, j int) { h.verts[i], h.verts[j] = h.verts[j], h.verts[i] }
func (h *candidateHeap) Push(x interface{}) {
	h.verts = append(h.verts, x.(*Vertex))
}
func (h *candidateHeap) Pop() interface{} {
	old := h.verts
	n := len(old)
	v := old[n-1]
	h.verts = old[:n-1]
	return v
}

func (h *candidateHeap) worstApprox() float64 {
	return h.verts[0].ParentEdge.ApproxCost(h.ev)
}

// drainAscending empties the heap and returns its vertices cheapest first.
func (h *candidateHeap) drainAscending() []*Vertex {
	out := make([]*Vertex, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(*Vertex)
	}
	return out
}

// expand generates the successors of src: a connection to the nearest
// uncovered ribbon point under both radius policies, then the k best samples
// per policy. Samples are scanned in ascending straight-line distance, so
// once a kept set's worst approximate cost is at or below the next sample's
// distance no later sample can improve it and the scan for that policy stops.
func (p *SamplingBasedPlanner) expand(src *Vertex) {
	p.visualizeVertex(src, "Expanded")
	p.stats.Expanded++

	cfg := p.cfg
	coverageEnabled := cfg.CoverageTurningRadius > 0

	if !src.Done() {
		if pt, ok := src.Ribbons.NearestUncoveredPoint(src.State); ok &&
			src.State.DistanceTo(pt) > cfg.CollisionCheckingIncrement {
			target := datastructure.State{X: pt.X, Y: pt.Y, Speed: cfg.MaxSpeed}
			v := Connect(src, target, cfg.TurningRadius, false)
			v.ComputeTrueCost(cfg, p.ev)
			p.pushVertex(v)
			if coverageEnabled {
				target.Speed = cfg.CoverageMaxSpeed
				v = Connect(src, target, cfg.CoverageTurningRadius, true)
				v.ComputeTrueCost(cfg, p.ev)
				p.pushVertex(v)
			}
		}
	}

	ordered := make([]datastructure.State, len(p.samples))
	copy(ordered, p.samples)
	sort.Slice(ordered, func(i, j int) bool {
		return src.State.DistanceTo(ordered[i]) < src.State.DistanceTo(ordered[j])
	})

	k := cfg.BranchingFactor
	best := &candidateHeap{ev: p.ev}
	bestCoverage := &candidateHeap{ev: p.ev}
	regularDone := false
	coverageDone := !coverageEnabled

	for _, sample := range ordered {
		if regularDone && coverageDone {
			break
		}
		d := src.State.DistanceTo(sample)
		if !regularDone {
			if best.Len() < k || best.worstApprox() > d {
				if d > cfg.CollisionCheckingIncrement {
					cand := Connect(src, sample, cfg.TurningRadius, false)
					cand.ParentEdge.ApproxCost(p.ev)
					heap.Push(best, cand)
					if best.Len() > k {
						heap.Pop(best)
					}
				}
			} else {
				regularDone = true
			}
		}
		if !coverageDone {
			if bestCoverage.Len() < k || bestCoverage.worstApprox() > d {
				if d > cfg.CollisionCheckingIncrement {
					cand := Connect(src, sample, cfg.CoverageTurningRadius, true)
					cand.ParentEdge.ApproxCost(p.ev)
					heap.Push(bestCoverage, cand)
					if bestCoverage.Len() > k {
						heap.Pop(bestCoverage)
					}
				}
			} else {
				coverageDone = true
			}
		}
	}

	for _, cand := range best.drainAscending() {
		cand.ComputeTrueCost(cfg, p.ev)
		p.pushVertex(cand)
	}
	for _, cand := range bestCoverage.drainAscending() {
		cand.ComputeTrueCost(cfg, p.ev)
		p.pushVertex(cand)
	}
}

func (p *SamplingBasedPlanner) pushVertex(v *Vertex) {
	if p.queue.PushVertex(v) {
		p.stats.Generated++
		p.visualizeVertex(v, "Generated")
	} else {
		p.stats.Pruned++
	}
}

func (p *SamplingBasedPlanner) visualizeVertex(v *Vertex, tag string) {
	if p.cfg.Visualizer == nil {
		return
	}
	coverage := false
	if !v.IsRoot() {
		coverage = v.ParentEdge.CoverageMode
	}
	fmt.Fprintf(p.cfg.Visualizer, "%s %s g = %.2f h = %.2f depth = %d coverage = %v\n",
		tag, v.State, v.CurrentCost(), v.ApproxToGo(p.cfg), v.Depth, coverage)
}

// tracePlan walks the parent chain from the goal back to the root and emits
// the segments in forward order, carrying the poses sampled along each edge.
func (p *SamplingBasedPlanner) tracePlan(goal *Vertex) *datastructure.Plan {
	var chain []*Vertex
	for v := goal; !v.IsRoot(); v = v.ParentEdge.Start {
		chain = append(chain, v)
	}
	util.ReverseG(chain)

	plan := &datastructure.Plan{Done: goal.Done()}
	for _, v := range chain {
		e := v.ParentEdge
		plan.AppendSegment(datastructure.Segment{
			Start:        e.Start.State,
			End:          v.State,
			Cost:         e.TrueCost(),
			CoverageMode: e.CoverageMode,
		}, e.Samples)
	}
	return plan
}
