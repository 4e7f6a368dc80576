package datastructure

import (
	"fmt"
	"math"

	"github.com/hoppss/path-planner/pkg/util"
)

// State is a vehicle configuration in the local planar frame: position in
// meters, heading in radians (0 along +x, counterclockwise), speed in m/s and
// time in seconds. A State with Time == -1 is the estimator error sentinel.
type State struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Speed   float64 `json:"speed"`
	Time    float64 `json:"time"`
}

func (s State) DistanceTo(o State) float64 {
	dx := s.X - o.X
	dy := s.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// HeadingTo returns the bearing from s toward o, in radians.
func (s State) HeadingTo(o State) float64 {
	return math.Atan2(o.Y-s.Y, o.X-s.X)
}

// Estimate projects the state dt seconds forward along its current heading at
// its current speed. Negative dt projects backwards.
func (s State) Estimate(dt float64) State {
	return State{
		X:       s.X + math.Cos(s.Heading)*s.Speed*dt,
		Y:       s.Y + math.Sin(s.Heading)*s.Speed*dt,
		Heading: s.Heading,
		Speed:   s.Speed,
		Time:    s.Time + dt,
	}
}

// TimeUntil returns the signed seconds from s to o.
func (s State) TimeUntil(o State) float64 {
	return o.Time - s.Time
}

func (s State) IsSamePosition(o State, tolerance float64) bool {
	return s.DistanceTo(o) <= tolerance
}

func (s State) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f, %.2f, %.2f)",
		s.X, s.Y, util.RoundFloat(s.Heading, 2), s.Speed, s.Time)
}
