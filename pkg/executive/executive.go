package executive

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/hoppss/path-planner/domain"
	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/kv"
	"github.com/hoppss/path-planner/pkg/mapdata"
	"github.com/hoppss/path-planner/pkg/obstacle"
	"github.com/hoppss/path-planner/pkg/planner"
	"github.com/hoppss/path-planner/pkg/ribbon"
	"github.com/hoppss/path-planner/pkg/util"
)

const (
	// planningTime is the re-planning cadence and the lead applied to the
	// start state so the plan begins where the vehicle will be when it
	// arrives.
	planningTime = 1.0

	// coverageHeadingRateMax gates coverage updates: above this turning
	// rate the vehicle is maneuvering, not sweeping.
	coverageHeadingRateMax = 0.5

	publishPeriod = 50 * time.Millisecond
	doneSleep     = time.Second
)

// TrajectoryPublisher is the executive's outward face: the trajectory
// consumer, the state estimator and the clock.
type TrajectoryPublisher interface {
	PublishTrajectory(plan *datastructure.Plan)
	DisplayTrajectory(plan *datastructure.Plan, final bool)
	DisplayRibbons(dump string)
	// AllDone announces that coverage is finished or planning has stopped.
	AllDone()
	GetTime() float64
	// GetEstimatedState returns the predicted vehicle state at time t. A
	// returned state with Time == -1 means the estimator has no answer.
	GetEstimatedState(t float64) datastructure.State
}

// MetricsSink observes planning cycles. Implementations must be safe for
// concurrent use.
type MetricsSink interface {
	ObservePlanningCycle(seconds float64, stats planner.Stats)
	ObserveRibbonsRemaining(count int)
}

// VehicleConfig is the dynamics configuration the planner is handed each
// cycle.
type VehicleConfig struct {
	MaxSpeed              float64 `yaml:"max_speed"`
	TurningRadius         float64 `yaml:"turning_radius"`
	CoverageMaxSpeed      float64 `yaml:"coverage_max_speed"`
	CoverageTurningRadius float64 `yaml:"coverage_turning_radius"`
	TimeHorizon           float64 `yaml:"time_horizon"`
	TimeMinimum           float64 `yaml:"time_minimum"`
}

// Executive runs the re-planning loop: every cycle it adopts any staged map,
// predicts the start state one planning period ahead, plans against a
// snapshot of the uncovered ribbons and publishes the result. Pause and
// resume gate both loops through a condition variable.
type Executive struct {
	publisher TrajectoryPublisher
	planner   *planner.SamplingBasedPlanner
	metrics   MetricsSink
	cache     *kv.MapCache

	pauseMu  sync.Mutex
	pauseCv  *sync.Cond
	paused   bool
	running  bool
	loopWg   sync.WaitGroup
	mapLoads sync.WaitGroup

	cfgMu sync.Mutex
	cfg   VehicleConfig

	ribbonsMu sync.RWMutex
	ribbons   *ribbon.Manager

	obstacles *obstacle.Manager

	// mapMu guards the staged map; the planning loop adopts it with a
	// non-blocking TryLock so a slow load never stalls a cycle.
	mapMu      sync.Mutex
	stagedMap  mapdata.CostMap
	stagedPath string
	currentMap mapdata.CostMap

	stateMu     sync.Mutex
	lastState   datastructure.State
	lastHeading float64
	lastUpdate  float64

	planMu      sync.RWMutex
	currentPlan *datastructure.Plan

	errMu sync.Mutex
	err   error
}

// New builds an executive around the publisher. The metrics sink and map
// cache may be nil.
func New(publisher TrajectoryPublisher, metrics MetricsSink, cache *kv.MapCache) *Executive {
	e := &Executive{
		publisher:  publisher,
		planner:    planner.NewSamplingBasedPlanner(),
		metrics:    metrics,
		cache:      cache,
		paused:     true,
		ribbons:    ribbon.NewManager(ribbon.DefaultWidth),
		obstacles:  obstacle.NewManager(),
		currentMap: mapdata.EmptyMap{},
	}
	e.pauseCv = sync.NewCond(&e.pauseMu)
	return e
}

// StartPlanner loads the initial map, falling back to an empty map when the
// load fails, and starts the planning and publishing loops paused off.
func (e *Executive) StartPlanner(mapPath string, refLat, refLon float64) {
	e.pauseMu.Lock()
	alreadyRunning := e.running
	e.running = true
	e.pauseMu.Unlock()

	if mapPath != "" {
		m, err := mapdata.Load(mapPath, refLat, refLon, e.cache)
		if err != nil {
			log.Printf("loading map %q failed, planning on an empty map: %v", mapPath, err)
		} else if alreadyRunning {
			// the planning loop owns currentMap once it is running
			e.mapMu.Lock()
			e.stagedMap = m
			e.stagedPath = mapPath
			e.mapMu.Unlock()
		} else {
			e.currentMap = m
			e.mapMu.Lock()
			e.stagedPath = mapPath
			e.mapMu.Unlock()
		}
	}

	if !alreadyRunning {
		e.loopWg.Add(2)
		go e.requestPath()
		go e.publishLoop()
	}
	e.Unpause()
}

// waitWhilePaused blocks until unpaused; returns false once terminated.
func (e *Executive) waitWhilePaused() bool {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()
	for e.paused && e.running {
		e.pauseCv.Wait()
	}
	return e.running
}

// requestPath is the planning loop.
func (e *Executive) requestPath() {
	defer e.loopWg.Done()

	for e.waitWhilePaused() {
		e.ribbonsMu.RLock()
		done := e.ribbons.Done()
		dump := e.ribbons.Dump()
		snapshot := e.ribbons.Copy()
		e.ribbonsMu.RUnlock()

		if done {
			time.Sleep(doneSleep)
			log.Println("coverage complete; pausing")
			e.Pause()
			continue
		}

		e.publisher.DisplayRibbons(dump)
		if e.metrics != nil {
			e.metrics.ObserveRibbonsRemaining(snapshot.Count())
		}

		// adopt a staged map without ever blocking on a load in progress
		if e.mapMu.TryLock() {
			if e.stagedMap != nil {
				e.currentMap = e.stagedMap
				e.stagedMap = nil
			}
			e.mapMu.Unlock()
		}

		cycleStart := e.publisher.GetTime()
		startState := e.publisher.GetEstimatedState(cycleStart + planningTime)
		if startState.Time == -1 {
			// estimator error, extrapolate from the last observed state
			e.stateMu.Lock()
			last := e.lastState
			e.stateMu.Unlock()
			startState = last.Estimate(cycleStart + planningTime - last.Time)
		}

		cfg := e.plannerConfig()
		timeRemaining := cycleStart + planningTime - e.publisher.GetTime()

		e.planMu.RLock()
		previous := e.currentPlan
		e.planMu.RUnlock()

		plan, err := e.planner.Plan(snapshot, startState, cfg, previous, timeRemaining)
		if err != nil {
			log.Printf("planning failed, pausing: %v", err)
			e.setErr(err)
			e.Pause()
			return
		}

		e.planMu.Lock()
		e.currentPlan = plan
		e.planMu.Unlock()

		e.publisher.PublishTrajectory(plan)
		e.publisher.DisplayTrajectory(plan, true)

		cycleEnd := e.publisher.GetTime()
		if e.metrics != nil {
			e.metrics.ObservePlanningCycle(cycleEnd-cycleStart, e.planner.Stats())
		}
		if elapsed := cycleEnd - cycleStart; elapsed < planningTime {
			time.Sleep(time.Duration((planningTime - elapsed) * float64(time.Second)))
		}
	}
}

// publishLoop re-publishes the current plan at 20 Hz so a late consumer
// still hears about it.
func (e *Executive) publishLoop() {
	defer e.loopWg.Done()

	for e.waitWhilePaused() {
		e.planMu.RLock()
		plan := e.currentPlan
		e.planMu.RUnlock()
		if !plan.Empty() {
			e.publisher.PublishTrajectory(plan)
		}
		time.Sleep(publishPeriod)
	}
}

func (e *Executive) plannerConfig() planner.Config {
	e.cfgMu.Lock()
	cfg := e.cfg
	e.cfgMu.Unlock()
	return planner.Config{
		MaxSpeed:              cfg.MaxSpeed,
		TurningRadius:         cfg.TurningRadius,
		CoverageMaxSpeed:      cfg.CoverageMaxSpeed,
		CoverageTurningRadius: cfg.CoverageTurningRadius,
		TimeHorizon:           cfg.TimeHorizon,
		TimeMinimum:           cfg.TimeMinimum,
		Map:                   e.currentMap,
		Obstacles:             e.obstacles,
	}
}

// Pause stops both loops at their next gate check. Announced through
// AllDone exactly once per pause while the executive is running.
func (e *Executive) Pause() {
	e.pauseMu.Lock()
	if e.paused {
		e.pauseMu.Unlock()
		return
	}
	e.paused = true
	running := e.running
	e.pauseMu.Unlock()

	if running {
		e.publisher.AllDone()
	}
}

func (e *Executive) Unpause() {
	e.pauseMu.Lock()
	e.paused = false
	e.pauseMu.Unlock()
	e.pauseCv.Broadcast()
}

// Terminate stops the loops permanently. Idempotent.
func (e *Executive) Terminate() {
	e.pauseMu.Lock()
	if !e.running {
		e.pauseMu.Unlock()
		return
	}
	e.running = false
	e.pauseMu.Unlock()
	e.pauseCv.Broadcast()
}

// Close terminates and waits for the loops and any in-flight map load.
func (e *Executive) Close() {
	e.Terminate()
	e.loopWg.Wait()
	e.mapLoads.Wait()
}

// Err reports the error that stopped the planning loop, if any. A paused
// executive with a nil Err finished its coverage; one with a non-nil Err
// gave up.
func (e *Executive) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *Executive) setErr(err error) {
	e.errMu.Lock()
	e.err = err
	e.errMu.Unlock()
}

// UpdateCovered records the observed vehicle state and covers the swath
// under it, unless the vehicle is turning faster than the coverage gate
// allows.
func (e *Executive) UpdateCovered(x, y, heading, speed, t float64) {
	e.stateMu.Lock()
	dt := t - e.lastUpdate
	rate := math.Inf(1)
	if dt > 0 {
		rate = math.Abs(util.NormalizeAngle(heading-e.lastHeading)) / dt
	}
	e.lastUpdate = t
	e.lastHeading = heading
	e.lastState = datastructure.State{X: x, Y: y, Heading: heading, Speed: speed, Time: t}
	e.stateMu.Unlock()

	if rate <= coverageHeadingRateMax {
		e.ribbonsMu.Lock()
		e.ribbons.Cover(x, y)
		e.ribbonsMu.Unlock()
	}
}

func (e *Executive) AddRibbon(x1, y1, x2, y2 float64) {
	e.ribbonsMu.Lock()
	e.ribbons.Add(x1, y1, x2, y2)
	e.ribbonsMu.Unlock()
}

func (e *Executive) ClearRibbons() {
	e.ribbonsMu.Lock()
	e.ribbons.Reset()
	e.ribbonsMu.Unlock()
}

// RibbonsRemaining returns the count and total length of uncovered ribbons.
func (e *Executive) RibbonsRemaining() (int, float64) {
	e.ribbonsMu.RLock()
	defer e.ribbonsMu.RUnlock()
	return e.ribbons.Count(), e.ribbons.TotalUncoveredLength()
}

// UpdateDynamicObstacle folds an observed contact into the obstacle set.
func (e *Executive) UpdateDynamicObstacle(id uint32, observed datastructure.State) {
	e.obstacles.Update(id, observed)
}

func (e *Executive) RemoveDynamicObstacle(id uint32) {
	e.obstacles.Remove(id)
}

func (e *Executive) SetVehicleConfiguration(cfg VehicleConfig) {
	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()
}

func (e *Executive) VehicleConfiguration() VehicleConfig {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.cfg
}

// CurrentPlan returns the most recently published plan, which may be nil.
func (e *Executive) CurrentPlan() *datastructure.Plan {
	e.planMu.RLock()
	defer e.planMu.RUnlock()
	return e.currentPlan
}

// Paused reports whether the loops are gated.
func (e *Executive) Paused() bool {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()
	return e.paused
}

// RefreshMap stages a replacement map in the background. The planning loop
// adopts it at the start of a later cycle. A failed load clears the staged
// map and forgets the path so the same file can be retried.
func (e *Executive) RefreshMap(path string, refLat, refLon float64) {
	e.mapLoads.Add(1)
	go func() {
		defer e.mapLoads.Done()
		e.mapMu.Lock()
		defer e.mapMu.Unlock()
		if e.stagedPath == path {
			return
		}
		m, err := mapdata.Load(path, refLat, refLon, e.cache)
		if err != nil {
			log.Printf("loading map at %q: %v", path,
				domain.WrapErrorf(err, domain.ErrMapLoad, "refresh"))
			e.stagedMap = nil
			e.stagedPath = ""
			return
		}
		e.stagedMap = m
		e.stagedPath = path
	}()
}
