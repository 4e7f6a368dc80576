package planner

import (
	"container/heap"

	"github.com/hoppss/path-planner/domain"
)

// VertexQueue is the open list. Ordering is by depth, greatest first, which
// drives the search depth-first so an initial goal is reached quickly and can
// start pruning. Push applies admissibility pruning against the incumbent;
// popping an empty queue means the search space is exhausted.
type VertexQueue struct {
	verts     []*Vertex
	cfg       *Config
	incumbent *Vertex
	goalFn    func(*Vertex) bool
}

func NewVertexQueue(cfg *Config, goalFn func(*Vertex) bool) *VertexQueue {
	return &VertexQueue{cfg: cfg, goalFn: goalFn}
}

func (q *VertexQueue) Len() int { return len(q.verts) }

func (q *VertexQueue) Less(i, j int) bool {
	return q.verts[i].Depth > q.verts[j].Depth
}

func (q *VertexQueue) Swap(i, j int) {
	q.verts[i], q.verts[j] = q.verts[j], q.verts[i]
}

func (q *VertexQueue) Push(x interface{}) {
	q.verts = append(q.verts, x.(*Vertex))
}

func (q *VertexQueue) Pop() interface{} {
	old := q.verts
	n := len(old)
	v := old[n-1]
	old[n-1] = nil
	q.verts = old[:n-1]
	return v
}

// PushVertex inserts v unless pruned: vertices behind an infeasible edge
// never enter the queue, nor do vertices that cannot beat the incumbent, nor
// goal vertices merely tying it.
func (q *VertexQueue) PushVertex(v *Vertex) bool {
	if !v.IsRoot() && v.ParentEdge.Infeasible {
		return false
	}
	v.ApproxToGo(q.cfg)
	if q.incumbent != nil {
		f := v.F(q.cfg)
		incumbentF := q.incumbent.F(q.cfg)
		if incumbentF < f {
			return false
		}
		if incumbentF == f && q.goalFn(v) {
			return false
		}
	}
	heap.Push(q, v)
	return true
}

// PopVertex removes and returns the deepest vertex.
func (q *VertexQueue) PopVertex() (*Vertex, error) {
	if len(q.verts) == 0 {
		return nil, domain.NewErrorf(domain.ErrQueueEmpty, "open list is empty")
	}
	return heap.Pop(q).(*Vertex), nil
}

// SetIncumbent records the best goal vertex found so far for pruning.
func (q *VertexQueue) SetIncumbent(v *Vertex) {
	q.incumbent = v
}

func (q *VertexQueue) Incumbent() *Vertex {
	return q.incumbent
}

func (q *VertexQueue) Clear() {
	q.verts = nil
}
