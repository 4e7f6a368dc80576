package executive

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoppss/path-planner/pkg/datastructure"
)

// fakePublisher records interactions and hands the executive a usable clock.
type fakePublisher struct {
	mu          sync.Mutex
	allDone     int
	published   []*datastructure.Plan
	firstPlan   chan struct{}
	signalOnce  sync.Once
	estimatorOK bool
}

func newFakePublisher(estimatorOK bool) *fakePublisher {
	return &fakePublisher{firstPlan: make(chan struct{}), estimatorOK: estimatorOK}
}

func (f *fakePublisher) PublishTrajectory(plan *datastructure.Plan) {
	f.mu.Lock()
	f.published = append(f.published, plan)
	f.mu.Unlock()
	f.signalOnce.Do(func() { close(f.firstPlan) })
}

func (f *fakePublisher) DisplayTrajectory(plan *datastructure.Plan, final bool) {}
func (f *fakePublisher) DisplayRibbons(dump string)                            {}

func (f *fakePublisher) AllDone() {
	f.mu.Lock()
	f.allDone++
	f.mu.Unlock()
}

func (f *fakePublisher) allDoneCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allDone
}

func (f *fakePublisher) GetTime() float64 {
	return float64(time.Now().UnixNano()) * 1e-9
}

func (f *fakePublisher) GetEstimatedState(t float64) datastructure.State {
	if f.estimatorOK {
		return datastructure.State{X: 0, Y: 0, Heading: 0, Speed: 2, Time: t}
	}
	return datastructure.State{Time: -1}
}

func testVehicleConfig() VehicleConfig {
	return VehicleConfig{
		MaxSpeed:              2,
		TurningRadius:         5,
		CoverageMaxSpeed:      2,
		CoverageTurningRadius: 10,
		TimeHorizon:           15,
		TimeMinimum:           5,
	}
}

func TestPauseResume(t *testing.T) {

	t.Run("pausing twice announces once", func(t *testing.T) {
		pub := newFakePublisher(true)
		e := New(pub, nil, nil)
		e.running = true

		e.Unpause()
		e.Pause()
		e.Pause()
		assert.Equal(t, 1, pub.allDoneCount())
		assert.True(t, e.Paused())
	})

	t.Run("pausing before the planner starts stays silent", func(t *testing.T) {
		pub := newFakePublisher(true)
		e := New(pub, nil, nil)

		e.Unpause()
		e.Pause()
		assert.Zero(t, pub.allDoneCount())
	})

	t.Run("terminate releases the gate permanently", func(t *testing.T) {
		pub := newFakePublisher(true)
		e := New(pub, nil, nil)
		e.running = true

		e.Terminate()
		assert.False(t, e.waitWhilePaused())

		// unpausing after terminate must not revive the loops
		e.Unpause()
		assert.False(t, e.waitWhilePaused())
	})
}

func TestUpdateCovered(t *testing.T) {

	t.Run("steady headings cover the swath", func(t *testing.T) {
		pub := newFakePublisher(true)
		e := New(pub, nil, nil)
		e.AddRibbon(0, -1, 8, -1)

		e.UpdateCovered(0, 0, 0, 1, 10)
		_, uncovered := e.RibbonsRemaining()
		assert.Less(t, uncovered, 8.0)
	})

	t.Run("fast turns are not coverage", func(t *testing.T) {
		pub := newFakePublisher(true)
		e := New(pub, nil, nil)
		e.UpdateCovered(0, 0, 0, 1, 10)

		e.AddRibbon(0, -1, 8, -1)
		before := func() float64 { _, u := e.RibbonsRemaining(); return u }()

		// ~2 rad/s, well above the coverage gate
		e.UpdateCovered(0.5, 0, 1.0, 1, 10.5)
		after := func() float64 { _, u := e.RibbonsRemaining(); return u }()
		assert.InDelta(t, before, after, 1e-9)
	})
}

func TestRefreshMap(t *testing.T) {

	t.Run("a failed load clears the staged path for retry", func(t *testing.T) {
		pub := newFakePublisher(true)
		e := New(pub, nil, nil)

		e.RefreshMap(filepath.Join(t.TempDir(), "missing.map"), 0, 0)
		e.mapLoads.Wait()

		e.mapMu.Lock()
		defer e.mapMu.Unlock()
		assert.Nil(t, e.stagedMap)
		assert.Empty(t, e.stagedPath)
	})

	t.Run("a successful load stages the map", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "world.map")
		require.NoError(t, os.WriteFile(path, []byte("2 2 1.0\n#.\n.#\n"), 0644))

		pub := newFakePublisher(true)
		e := New(pub, nil, nil)

		e.RefreshMap(path, 0, 0)
		e.mapLoads.Wait()

		e.mapMu.Lock()
		defer e.mapMu.Unlock()
		assert.NotNil(t, e.stagedMap)
		assert.Equal(t, path, e.stagedPath)
	})

	t.Run("refreshing the current path is a no-op", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "world.map")
		require.NoError(t, os.WriteFile(path, []byte("2 2 1.0\n#.\n.#\n"), 0644))

		pub := newFakePublisher(true)
		e := New(pub, nil, nil)
		e.RefreshMap(path, 0, 0)
		e.mapLoads.Wait()
		e.mapMu.Lock()
		staged := e.stagedMap
		e.mapMu.Unlock()

		e.RefreshMap(path, 0, 0)
		e.mapLoads.Wait()
		e.mapMu.Lock()
		defer e.mapMu.Unlock()
		assert.Equal(t, staged, e.stagedMap)
	})
}

func TestPlanningLoop(t *testing.T) {

	t.Run("plans and publishes a trajectory for pending ribbons", func(t *testing.T) {
		pub := newFakePublisher(true)
		e := New(pub, nil, nil)
		e.SetVehicleConfiguration(testVehicleConfig())
		e.AddRibbon(5, 0, 15, 0)

		e.StartPlanner("", 0, 0)
		defer e.Close()

		select {
		case <-pub.firstPlan:
		case <-time.After(20 * time.Second):
			t.Fatal("no trajectory published")
		}

		require.NoError(t, e.Err())
		plan := e.CurrentPlan()
		if plan != nil {
			assert.False(t, plan.Empty())
		}
	})

	t.Run("falls back to dead reckoning when the estimator fails", func(t *testing.T) {
		pub := newFakePublisher(false)
		e := New(pub, nil, nil)
		e.SetVehicleConfiguration(testVehicleConfig())
		e.AddRibbon(5, 0, 15, 0)
		// seed the last observed state the fallback extrapolates from
		e.UpdateCovered(0, 0, 0, 2, pub.GetTime())

		e.StartPlanner("", 0, 0)
		defer e.Close()

		select {
		case <-pub.firstPlan:
		case <-time.After(20 * time.Second):
			t.Fatal("no trajectory published")
		}
		require.NoError(t, e.Err())
	})
}
