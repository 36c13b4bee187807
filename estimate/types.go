// Package estimate turns a stream of timestamped height observations into a
// drag-aware trajectory estimate and a smoothed velocity estimate.
//
// Two independent Kalman filters run on every observation: DragFilter
// estimates height, vertical velocity and a quadratic drag coefficient with a
// model re-linearized at each step, and VelocityFilter tracks height and
// velocity under a constant-velocity model. Session owns both filters and
// the bookkeeping between observations.
package estimate

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNonPositiveTimeStep reports an observation whose timestamp does not
// advance past the previous one.
var ErrNonPositiveTimeStep = errors.New("non-positive time step")

// Observation is one height reading.
type Observation struct {
	T float64 // seconds since an arbitrary epoch
	Z float64 // height
}

// TrajectoryState is the DragFilter estimate.
type TrajectoryState struct {
	Height   float64
	Velocity float64
	Drag     float64
}

// SmoothedState is the VelocityFilter estimate.
type SmoothedState struct {
	Height   float64
	Velocity float64
}

// Result is everything produced for one observation after the first.
type Result struct {
	T           float64
	Trajectory  TrajectoryState
	RawVelocity float64 // finite difference of the last two observations
	Smoothed    SmoothedState
}

// Phase is the Session lifecycle state.
type Phase int

const (
	PhaseAwaitingFirstObservation Phase = iota + 1
	PhaseTracking
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingFirstObservation:
		return "AWAITING_FIRST_OBSERVATION"
	case PhaseTracking:
		return "TRACKING"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}
