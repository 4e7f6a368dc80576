package planner

import (
	"io"

	"github.com/hoppss/path-planner/pkg/mapdata"
	"github.com/hoppss/path-planner/pkg/obstacle"
)

const (
	defaultBranchingFactor    = 5
	defaultSampleCount        = 1000
	defaultCollisionIncrement = 0.1
	defaultTimePenalty        = 1.0
	defaultCollisionPenalty   = 600.0

	// luckySeed makes a given start state and configuration reproducible.
	luckySeed = 7
)

// Config carries the vehicle and search parameters for one planning call.
// Zero values are replaced by defaults; Map and Obstacles may be nil.
type Config struct {
	MaxSpeed              float64
	TurningRadius         float64
	CoverageMaxSpeed      float64
	CoverageTurningRadius float64

	TimeHorizon float64
	TimeMinimum float64

	BranchingFactor            int
	CollisionCheckingIncrement float64
	SampleCount                int
	Seed                       int64

	TimePenalty      float64
	CollisionPenalty float64

	Map       mapdata.CostMap
	Obstacles *obstacle.Manager

	// Visualizer, when non-nil, receives a line per generated/expanded vertex.
	Visualizer io.Writer
}

func (c *Config) applyDefaults() {
	if c.BranchingFactor <= 0 {
		c.BranchingFactor = defaultBranchingFactor
	}
	if c.SampleCount <= 0 {
		c.SampleCount = defaultSampleCount
	}
	if c.CollisionCheckingIncrement <= 0 {
		c.CollisionCheckingIncrement = defaultCollisionIncrement
	}
	if c.TimePenalty <= 0 {
		c.TimePenalty = defaultTimePenalty
	}
	if c.CollisionPenalty <= 0 {
		c.CollisionPenalty = defaultCollisionPenalty
	}
	if c.Seed == 0 {
		c.Seed = luckySeed
	}
	if c.CoverageMaxSpeed <= 0 {
		c.CoverageMaxSpeed = c.MaxSpeed
	}
	if c.Map == nil {
		c.Map = mapdata.EmptyMap{}
	}
	if c.Obstacles == nil {
		c.Obstacles = obstacle.NewManager()
	}
}
