package obstacle

import (
	"math"
	"sync"

	"github.com/hoppss/path-planner/pkg/datastructure"
)

// positionVariance is the fixed variance (m^2) of the Gaussian placed around
// each observed or extrapolated contact position.
const positionVariance = 5.0

// Distribution is a bivariate Gaussian over a contact's position at a point
// in time, with the contact's heading attached for consumers that render it.
type Distribution struct {
	MeanX, MeanY float64
	VarX, VarY   float64
	Heading      float64
	Time         float64
}

// Density evaluates the Gaussian at (x, y).
func (d Distribution) Density(x, y float64) float64 {
	dx := x - d.MeanX
	dy := y - d.MeanY
	norm := 1 / (2 * math.Pi * math.Sqrt(d.VarX*d.VarY))
	return norm * math.Exp(-0.5*(dx*dx/d.VarX+dy*dy/d.VarY))
}

// Manager maintains, per tracked contact, the short-horizon predictive
// envelope consumed by the edge cost evaluator: exactly two distributions,
// one at the observed state and one at its 1-second linear extrapolation.
type Manager struct {
	mu       sync.RWMutex
	contacts map[uint32][]Distribution
}

func NewManager() *Manager {
	return &Manager{contacts: make(map[uint32][]Distribution)}
}

// Update synthesizes the two-point envelope from a single observed state.
func (m *Manager) Update(id uint32, observed datastructure.State) {
	projected := observed.Estimate(1)
	envelope := []Distribution{
		{MeanX: observed.X, MeanY: observed.Y, VarX: positionVariance, VarY: positionVariance,
			Heading: observed.Heading, Time: observed.Time},
		{MeanX: projected.X, MeanY: projected.Y, VarX: positionVariance, VarY: positionVariance,
			Heading: projected.Heading, Time: projected.Time},
	}

	m.mu.Lock()
	m.contacts[id] = envelope
	m.mu.Unlock()
}

func (m *Manager) Remove(id uint32) {
	m.mu.Lock()
	delete(m.contacts, id)
	m.mu.Unlock()
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contacts)
}

// CollisionDensityAt returns the summed probability density over all tracked
// contacts at position (x, y) and time t, clamped to 1. Between the two
// envelope points the mean is interpolated linearly; outside them it is
// clamped, keeping the envelope a short-horizon model rather than an
// unbounded extrapolation.
func (m *Manager) CollisionDensityAt(x, y, t float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total float64
	for _, envelope := range m.contacts {
		first, second := envelope[0], envelope[1]
		span := second.Time - first.Time
		f := 0.0
		if span > 0 {
			f = math.Max(0, math.Min(1, (t-first.Time)/span))
		}
		d := Distribution{
			MeanX: first.MeanX + (second.MeanX-first.MeanX)*f,
			MeanY: first.MeanY + (second.MeanY-first.MeanY)*f,
			VarX:  first.VarX,
			VarY:  first.VarY,
		}
		total += d.Density(x, y)
	}
	return math.Min(1, total)
}
