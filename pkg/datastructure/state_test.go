package datastructure_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hoppss/path-planner/pkg/datastructure"
)

func TestState(t *testing.T) {

	t.Run("distance and bearing", func(t *testing.T) {
		a := datastructure.State{X: 0, Y: 0}
		b := datastructure.State{X: 3, Y: 4}
		assert.InDelta(t, 5, a.DistanceTo(b), 1e-9)
		assert.InDelta(t, math.Atan2(4, 3), a.HeadingTo(b), 1e-9)
	})

	t.Run("estimate extrapolates along the heading", func(t *testing.T) {
		s := datastructure.State{X: 1, Y: 2, Heading: math.Pi / 2, Speed: 2, Time: 10}
		e := s.Estimate(3)
		assert.InDelta(t, 1, e.X, 1e-9)
		assert.InDelta(t, 8, e.Y, 1e-9)
		assert.InDelta(t, 13, e.Time, 1e-9)
	})

	t.Run("negative dt estimates backwards", func(t *testing.T) {
		s := datastructure.State{X: 10, Y: 0, Heading: 0, Speed: 2, Time: 10}
		e := s.Estimate(-2)
		assert.InDelta(t, 6, e.X, 1e-9)
		assert.InDelta(t, 8, e.Time, 1e-9)
	})

	t.Run("same position within tolerance", func(t *testing.T) {
		a := datastructure.State{X: 0, Y: 0}
		b := datastructure.State{X: 0.4, Y: 0.3}
		assert.True(t, a.IsSamePosition(b, 0.5))
		assert.False(t, a.IsSamePosition(b, 0.4))
	})
}

func TestPlan(t *testing.T) {

	t.Run("start and end times come from the segments", func(t *testing.T) {
		p := &datastructure.Plan{}
		assert.True(t, p.Empty())

		p.AppendSegment(datastructure.Segment{
			Start: datastructure.State{Time: 5},
			End:   datastructure.State{Time: 9},
			Cost:  4,
		}, nil)
		p.AppendSegment(datastructure.Segment{
			Start: datastructure.State{Time: 9},
			End:   datastructure.State{Time: 15},
			Cost:  6,
		}, nil)

		assert.False(t, p.Empty())
		assert.InDelta(t, 5, p.StartTime(), 1e-9)
		assert.InDelta(t, 15, p.EndTime(), 1e-9)
		assert.InDelta(t, 10, p.TotalCost(), 1e-9)
	})

	t.Run("polyline encodes the sampled states", func(t *testing.T) {
		p := &datastructure.Plan{}
		p.AppendState(datastructure.State{X: 1, Y: 2})
		p.AppendState(datastructure.State{X: 3, Y: 4})
		assert.NotEmpty(t, p.Polyline())
	})

	t.Run("a nil plan is empty", func(t *testing.T) {
		var p *datastructure.Plan
		assert.True(t, p.Empty())
	})
}
