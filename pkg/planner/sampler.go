package planner

import (
	"math"
	"math/rand"

	"github.com/hoppss/path-planner/pkg/datastructure"
)

// StateGenerator draws uniform random states from a box around the start
// state. The generator is deterministically seeded so a given start state and
// configuration always produce the same search tree.
type StateGenerator struct {
	minX, maxX float64
	minY, maxY float64
	minSpeed   float64
	maxSpeed   float64
	rng        *rand.Rand
}

func NewStateGenerator(minX, maxX, minY, maxY, minSpeed, maxSpeed float64, seed int64) *StateGenerator {
	return &StateGenerator{
		minX: minX, maxX: maxX,
		minY: minY, maxY: maxY,
		minSpeed: minSpeed,
		maxSpeed: maxSpeed,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (g *StateGenerator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *StateGenerator) Generate() datastructure.State {
	return datastructure.State{
		X:       g.uniform(g.minX, g.maxX),
		Y:       g.uniform(g.minY, g.maxY),
		Heading: g.uniform(-math.Pi, math.Pi),
		Speed:   g.uniform(g.minSpeed, g.maxSpeed),
	}
}
