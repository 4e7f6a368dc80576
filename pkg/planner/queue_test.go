package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoppss/path-planner/domain"
	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/planner"
	"github.com/hoppss/path-planner/pkg/ribbon"
)

func queueConfig() *planner.Config {
	return &planner.Config{MaxSpeed: 2, TimePenalty: 1}
}

func TestVertexQueueOrdering(t *testing.T) {

	t.Run("deepest vertex pops first", func(t *testing.T) {
		q := planner.NewVertexQueue(queueConfig(), func(*planner.Vertex) bool { return false })

		shallow := planner.MakeRoot(datastructure.State{}, ribbon.NewManager(2))
		shallow.Depth = 1
		deep := planner.MakeRoot(datastructure.State{}, ribbon.NewManager(2))
		deep.Depth = 5
		middle := planner.MakeRoot(datastructure.State{}, ribbon.NewManager(2))
		middle.Depth = 3

		require.True(t, q.PushVertex(shallow))
		require.True(t, q.PushVertex(deep))
		require.True(t, q.PushVertex(middle))

		v, err := q.PopVertex()
		require.NoError(t, err)
		assert.Equal(t, 5, v.Depth)
		v, err = q.PopVertex()
		require.NoError(t, err)
		assert.Equal(t, 3, v.Depth)
	})

	t.Run("popping an empty queue fails", func(t *testing.T) {
		q := planner.NewVertexQueue(queueConfig(), func(*planner.Vertex) bool { return false })
		_, err := q.PopVertex()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrQueueEmpty)
	})
}

func TestVertexQueuePruning(t *testing.T) {

	t.Run("vertices behind infeasible edges never enter the queue", func(t *testing.T) {
		q := planner.NewVertexQueue(queueConfig(), func(*planner.Vertex) bool { return false })

		parent := planner.MakeRoot(datastructure.State{}, ribbon.NewManager(2))
		v := planner.Connect(parent, datastructure.State{X: 10}, 8, false)
		v.ParentEdge.Infeasible = true

		assert.False(t, q.PushVertex(v))
		assert.Zero(t, q.Len())
	})

	t.Run("the incumbent prunes strictly worse vertices", func(t *testing.T) {
		cfg := queueConfig()
		q := planner.NewVertexQueue(cfg, func(v *planner.Vertex) bool { return v.Done() })

		// incumbent finished coverage at the start: f = 0
		incumbent := planner.MakeRoot(datastructure.State{}, ribbon.NewManager(2))
		q.SetIncumbent(incumbent)

		uncovered := ribbon.NewManager(2)
		uncovered.Add(100, 0, 120, 0)
		worse := planner.MakeRoot(datastructure.State{}, uncovered)
		assert.False(t, q.PushVertex(worse))
	})

	t.Run("goal vertices tying the incumbent are rejected", func(t *testing.T) {
		cfg := queueConfig()
		q := planner.NewVertexQueue(cfg, func(v *planner.Vertex) bool { return v.Done() })

		incumbent := planner.MakeRoot(datastructure.State{}, ribbon.NewManager(2))
		q.SetIncumbent(incumbent)

		duplicate := planner.MakeRoot(datastructure.State{}, ribbon.NewManager(2))
		assert.False(t, q.PushVertex(duplicate))
	})

	t.Run("non-goal vertices tying the incumbent survive", func(t *testing.T) {
		cfg := queueConfig()
		q := planner.NewVertexQueue(cfg, func(v *planner.Vertex) bool { return false })

		incumbent := planner.MakeRoot(datastructure.State{}, ribbon.NewManager(2))
		q.SetIncumbent(incumbent)

		tie := planner.MakeRoot(datastructure.State{}, ribbon.NewManager(2))
		assert.True(t, q.PushVertex(tie))
	})
}
