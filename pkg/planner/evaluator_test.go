package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/mapdata"
)

func evaluatorConfig() *Config {
	cfg := &Config{MaxSpeed: 2.5, TurningRadius: 8}
	cfg.applyDefaults()
	return cfg
}

func TestApproxCostLowerBound(t *testing.T) {

	t.Run("approximate cost never undercuts the straight-line distance", func(t *testing.T) {
		ev := newEvaluator(evaluatorConfig())
		cases := []struct {
			from datastructure.State
			to   datastructure.State
		}{
			{datastructure.State{Heading: 0}, datastructure.State{X: 50, Y: 0}},
			{datastructure.State{Heading: math.Pi}, datastructure.State{X: 50, Y: 0}},
			{datastructure.State{Heading: math.Pi / 2}, datastructure.State{X: -20, Y: 30}},
			{datastructure.State{X: 5, Y: 5, Heading: -1}, datastructure.State{X: -40, Y: 12}},
		}
		for _, c := range cases {
			cost := ev.ApproxCost(c.from, c.to, 8)
			assert.GreaterOrEqual(t, cost, c.from.DistanceTo(c.to)-1e-9)
		}
	})

	t.Run("an aligned target costs exactly the distance", func(t *testing.T) {
		ev := newEvaluator(evaluatorConfig())
		from := datastructure.State{Heading: 0}
		to := datastructure.State{X: 100}
		assert.InDelta(t, 100, ev.ApproxCost(from, to, 8), 1e-9)
	})
}

func TestTrueCost(t *testing.T) {

	t.Run("samples advance monotonically in time and end at the target", func(t *testing.T) {
		cfg := evaluatorConfig()
		ev := newEvaluator(cfg)
		from := datastructure.State{Heading: 0, Speed: 2.5, Time: 10}
		to := datastructure.State{X: 30, Y: 10}

		res := ev.TrueCost(from, to, cfg.TurningRadius, 2.5)
		require.False(t, res.Infeasible)
		require.NotEmpty(t, res.Samples)

		last := from.Time
		for _, s := range res.Samples {
			assert.Greater(t, s.Time, last)
			last = s.Time
		}
		assert.InDelta(t, to.X, res.End.X, 1e-9)
		assert.InDelta(t, to.Y, res.End.Y, 1e-9)
		assert.Greater(t, res.End.Time, from.Time)
	})

	t.Run("a blocked cell makes the edge infeasible", func(t *testing.T) {
		grid := &mapdata.Grid{CellSize: 10, Cols: 10, Rows: 10, Cells: make([]float64, 100)}
		for i := range grid.Cells {
			grid.Cells[i] = mapdata.BlockedCost
		}
		cfg := evaluatorConfig()
		cfg.Map = grid
		ev := newEvaluator(cfg)

		res := ev.TrueCost(datastructure.State{Heading: 0}, datastructure.State{X: 50}, 8, 2.5)
		assert.True(t, res.Infeasible)
		assert.Empty(t, res.Samples)
	})

	t.Run("obstacle density adds a collision penalty", func(t *testing.T) {
		cfg := evaluatorConfig()
		ev := newEvaluator(cfg)
		from := datastructure.State{Heading: 0, Speed: 2.5, Time: 0}
		to := datastructure.State{X: 20}

		clear := ev.TrueCost(from, to, cfg.TurningRadius, 2.5)

		withContact := evaluatorConfig()
		withContact.Obstacles.Update(1, datastructure.State{X: 10, Y: 0, Time: 0})
		ev = newEvaluator(withContact)
		crossed := ev.TrueCost(from, to, cfg.TurningRadius, 2.5)

		assert.Greater(t, crossed.Cost, clear.Cost)
	})
}
