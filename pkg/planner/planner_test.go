package planner_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/planner"
	"github.com/hoppss/path-planner/pkg/ribbon"
)

func testConfig() planner.Config {
	return planner.Config{
		MaxSpeed:              2.5,
		TurningRadius:         8,
		CoverageMaxSpeed:      2.5,
		CoverageTurningRadius: 16,
		TimeHorizon:           60,
		TimeMinimum:           0,
	}
}

func TestPlanReachesTimeHorizon(t *testing.T) {

	t.Run("with nothing to cover the plan still runs to the horizon", func(t *testing.T) {
		p := planner.NewSamplingBasedPlanner()
		start := datastructure.State{X: 0, Y: 0, Heading: 0, Speed: 2.5, Time: 1}

		plan, err := p.Plan(ribbon.NewManager(2), start, testConfig(), nil, 1)
		require.NoError(t, err)
		require.False(t, plan.Empty())
		assert.GreaterOrEqual(t, plan.EndTime(), start.Time+60)
	})
}

func TestPlanMinimumDuration(t *testing.T) {

	t.Run("completed coverage still plans to the minimum duration", func(t *testing.T) {
		rm := ribbon.NewManager(2)
		rm.Add(0, 5, 10, 5)
		for x := 0.0; x <= 10; x += 2 {
			rm.Cover(x, 5)
		}
		require.True(t, rm.Done())

		cfg := testConfig()
		cfg.TimeMinimum = 30

		p := planner.NewSamplingBasedPlanner()
		start := datastructure.State{X: 0, Y: 0, Heading: 0, Speed: 2.5, Time: 1}

		plan, err := p.Plan(rm, start, cfg, nil, 1)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, plan.EndTime(), start.Time+30)
		assert.True(t, plan.Done)
	})
}

func TestPlanCoveragePolicyDisabled(t *testing.T) {

	t.Run("zero coverage radius yields no coverage-mode candidates", func(t *testing.T) {
		rm := ribbon.NewManager(2)
		rm.Add(20, 0, 30, 0)

		cfg := testConfig()
		cfg.CoverageTurningRadius = 0
		cfg.TimeHorizon = 30
		cfg.TimeMinimum = 10

		var out bytes.Buffer
		cfg.Visualizer = &out

		p := planner.NewSamplingBasedPlanner()
		start := datastructure.State{X: 0, Y: 0, Heading: 0, Speed: 2.5, Time: 1}

		plan, err := p.Plan(rm, start, cfg, nil, 1)
		require.NoError(t, err)

		assert.NotContains(t, out.String(), "coverage = true")
		for _, seg := range plan.Segments {
			assert.False(t, seg.CoverageMode)
		}
	})
}

func TestPlanDeterminism(t *testing.T) {

	t.Run("identical inputs give identical plans", func(t *testing.T) {
		rm := ribbon.NewManager(2)
		rm.Add(10, 10, 30, 10)
		start := datastructure.State{X: 0, Y: 0, Heading: 0, Speed: 2.5, Time: 1}
		cfg := testConfig()
		cfg.TimeHorizon = 30
		cfg.TimeMinimum = 5

		first, err := planner.NewSamplingBasedPlanner().Plan(rm.Copy(), start, cfg, nil, 1)
		require.NoError(t, err)
		second, err := planner.NewSamplingBasedPlanner().Plan(rm.Copy(), start, cfg, nil, 1)
		require.NoError(t, err)

		require.Equal(t, len(first.Segments), len(second.Segments))
		assert.InDelta(t, first.EndTime(), second.EndTime(), 1e-9)
		assert.InDelta(t, first.TotalCost(), second.TotalCost(), 1e-9)
	})
}

func TestPlanBoundedBranching(t *testing.T) {

	t.Run("each expansion generates a bounded number of vertices", func(t *testing.T) {
		rm := ribbon.NewManager(2)
		rm.Add(10, 0, 20, 0)
		cfg := testConfig()
		cfg.TimeHorizon = 20
		cfg.TimeMinimum = 5
		cfg.BranchingFactor = 3

		p := planner.NewSamplingBasedPlanner()
		start := datastructure.State{X: 0, Y: 0, Heading: 0, Speed: 2.5, Time: 1}
		_, err := p.Plan(rm, start, cfg, nil, 1)
		require.NoError(t, err)

		stats := p.Stats()
		require.Positive(t, stats.Expanded)
		// per expansion: k samples per policy plus the two ribbon connections
		bound := stats.Expanded * (2*cfg.BranchingFactor + 2)
		assert.LessOrEqual(t, stats.Generated+stats.Pruned, bound)
	})
}

func TestPlanTracesRootToGoal(t *testing.T) {

	t.Run("segments chain and time is monotonic", func(t *testing.T) {
		rm := ribbon.NewManager(2)
		rm.Add(5, 5, 15, 5)
		cfg := testConfig()
		cfg.TimeHorizon = 30
		cfg.TimeMinimum = 5

		p := planner.NewSamplingBasedPlanner()
		start := datastructure.State{X: 0, Y: 0, Heading: 0, Speed: 2.5, Time: 1}
		plan, err := p.Plan(rm, start, cfg, nil, 1)
		require.NoError(t, err)
		require.False(t, plan.Empty())

		assert.InDelta(t, start.X, plan.Segments[0].Start.X, 1e-9)
		assert.InDelta(t, start.Y, plan.Segments[0].Start.Y, 1e-9)
		for i := 1; i < len(plan.Segments); i++ {
			prev, cur := plan.Segments[i-1], plan.Segments[i]
			assert.Equal(t, prev.End, cur.Start)
			assert.Greater(t, cur.End.Time, cur.Start.Time)
		}
	})

	t.Run("visualizer reports expansions", func(t *testing.T) {
		var out bytes.Buffer
		cfg := testConfig()
		cfg.TimeHorizon = 15
		cfg.Visualizer = &out

		p := planner.NewSamplingBasedPlanner()
		_, err := p.Plan(ribbon.NewManager(2), datastructure.State{Speed: 2.5, Time: 1}, cfg, nil, 1)
		require.NoError(t, err)
		assert.True(t, strings.Contains(out.String(), "Expanded"))
		assert.True(t, strings.Contains(out.String(), "Generated"))
	})
}
