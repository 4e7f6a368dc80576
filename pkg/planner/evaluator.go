package planner

import (
	"math"

	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/util"
)

// EdgeResult is the outcome of a true-cost evaluation: the accumulated cost,
// the adjusted end state (heading and arrival time set), the poses sampled
// along the connection, and whether the connection is disallowed.
type EdgeResult struct {
	Cost       float64
	Infeasible bool
	End        datastructure.State
	Samples    []datastructure.State
}

// Evaluator is the edge cost capability: a cheap approximate connection cost
// used for candidate triage and an expensive true cost that walks the
// connection against the map and the dynamic obstacles.
type Evaluator interface {
	ApproxCost(from, to datastructure.State, radius float64) float64
	TrueCost(from, to datastructure.State, radius, speed float64) EdgeResult
}

// arcEvaluator approximates the Dubins connection with a minimum-radius turn
// onto the target bearing followed by a straight run. The arc+straight length
// is never below the straight-line distance, which the bounded best-K scan's
// early termination relies on.
type arcEvaluator struct {
	cfg *Config
}

func newEvaluator(cfg *Config) Evaluator {
	return &arcEvaluator{cfg: cfg}
}

// turnGeometry describes the turn-then-straight connection from one state
// toward a target position.
type turnGeometry struct {
	arcLen      float64
	straightLen float64
	dTheta      float64 // signed turn angle
	side        float64 // +1 left turn, -1 right turn
	cx, cy      float64 // turn circle center
	arcEndX     float64
	arcEndY     float64
	runHeading  float64 // heading of the straight run
}

func connectGeometry(from, to datastructure.State, radius float64) turnGeometry {
	bearing := from.HeadingTo(to)
	dTheta := util.NormalizeAngle(bearing - from.Heading)

	var g turnGeometry
	g.dTheta = dTheta
	g.side = 1
	if dTheta < 0 {
		g.side = -1
	}
	if radius <= 0 {
		// degenerate: snap onto the bearing in place
		g.arcEndX, g.arcEndY = from.X, from.Y
	} else {
		g.arcLen = math.Abs(dTheta) * radius
		g.cx = from.X - g.side*radius*math.Sin(from.Heading)
		g.cy = from.Y + g.side*radius*math.Cos(from.Heading)
		endHeading := from.Heading + dTheta
		g.arcEndX = g.cx + g.side*radius*math.Sin(endHeading)
		g.arcEndY = g.cy - g.side*radius*math.Cos(endHeading)
	}
	g.straightLen = math.Hypot(to.X-g.arcEndX, to.Y-g.arcEndY)
	g.runHeading = math.Atan2(to.Y-g.arcEndY, to.X-g.arcEndX)
	return g
}

// poseAt returns the pose s meters along the connection.
func (g turnGeometry) poseAt(from datastructure.State, radius, s float64) (x, y, heading float64) {
	if s < g.arcLen && radius > 0 {
		theta := from.Heading + g.side*(s/radius)
		return g.cx + g.side*radius*math.Sin(theta),
			g.cy - g.side*radius*math.Cos(theta),
			theta
	}
	run := s - g.arcLen
	if run > g.straightLen {
		run = g.straightLen
	}
	return g.arcEndX + math.Cos(g.runHeading)*run,
		g.arcEndY + math.Sin(g.runHeading)*run,
		g.runHeading
}

func (e *arcEvaluator) ApproxCost(from, to datastructure.State, radius float64) float64 {
	g := connectGeometry(from, to, radius)
	return g.arcLen + g.straightLen
}

func (e *arcEvaluator) TrueCost(from, to datastructure.State, radius, speed float64) EdgeResult {
	if speed <= 0 {
		speed = e.cfg.MaxSpeed
	}
	g := connectGeometry(from, to, radius)
	length := g.arcLen + g.straightLen
	duration := length / speed

	var res EdgeResult
	res.Cost = duration * e.cfg.TimePenalty

	inc := e.cfg.CollisionCheckingIncrement
	for s := inc; s <= length; s += inc {
		x, y, heading := g.poseAt(from, radius, s)
		if e.cfg.Map.IsBlocked(x, y) {
			return EdgeResult{Infeasible: true}
		}
		t := from.Time + s/speed
		res.Cost += e.cfg.Map.CostAt(x, y) * inc
		if density := e.cfg.Obstacles.CollisionDensityAt(x, y, t); density > 0 {
			res.Cost += e.cfg.CollisionPenalty * density
		}
		res.Samples = append(res.Samples, datastructure.State{
			X: x, Y: y, Heading: heading, Speed: speed, Time: t,
		})
	}

	res.End = datastructure.State{
		X:       to.X,
		Y:       to.Y,
		Heading: g.runHeading,
		Speed:   speed,
		Time:    from.Time + duration,
	}
	return res
}
