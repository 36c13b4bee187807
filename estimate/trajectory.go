package estimate

import (
	"math"

	"ball-estimation/kalman"
	"ball-estimation/linalg"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DragJacobian returns the transition matrix of the drag model
//
//	ḣ = v,  v̇ = −g − k·v·|v|,  k̇ = 0
//
// linearized about velocity v and drag coefficient k for a step of dt
// seconds. The sign of v picks the branch because drag always opposes the
// motion. At exactly v == 0 the velocity row is zeroed.
func DragJacobian(v, k, dt float64) *mat.Dense {
	dt2 := dt * dt
	switch {
	case v > 0:
		return linalg.Rows(
			[]float64{1, dt - k*v*dt2, -0.5 * v * v * dt2},
			[]float64{0, 1 - 2*k*v*dt, -v * v * dt},
			[]float64{0, 0, 1},
		)
	case v < 0:
		return linalg.Rows(
			[]float64{1, dt + k*v*dt2, 0.5 * v * v * dt2},
			[]float64{0, 1 + 2*k*v*dt, v * v * dt},
			[]float64{0, 0, 1},
		)
	default:
		return linalg.Rows(
			[]float64{1, dt, 0},
			[]float64{0, 0, 0},
			[]float64{0, 0, 1},
		)
	}
}

// DragFilter estimates [height, velocity, drag] from height measurements.
type DragFilter struct {
	tuning DragTuning
	kf     *kalman.Filter

	processNoise     *mat.Dense
	measurement      *mat.Dense
	measurementNoise *mat.Dense
	gravity          *mat.VecDense
}

// NewDragFilter returns a DragFilter seeded with seed.
func NewDragFilter(seed DragSeed, tuning DragTuning) (*DragFilter, error) {
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	propagation, _ := ParsePropagation(string(tuning.Propagation))
	tuning.Propagation = propagation

	kf, err := kalman.New(kalman.Dims{State: 3, Measurement: 1, Control: 1})
	if err != nil {
		return nil, err
	}
	err = kf.Initialize(
		linalg.Vec(seed.Height, seed.Velocity, seed.Drag),
		linalg.Diag(tuning.InitialCovariance...),
	)
	if err != nil {
		return nil, err
	}
	return &DragFilter{
		tuning:           tuning,
		kf:               kf,
		processNoise:     linalg.Diag(tuning.ProcessNoise...),
		measurement:      linalg.Rows([]float64{1, 0, 0}),
		measurementNoise: linalg.Diag(tuning.MeasurementNoise),
		gravity:          linalg.Vec(-tuning.Gravity),
	}, nil
}

// Tuning returns the constants the filter was built with.
func (f *DragFilter) Tuning() DragTuning {
	return f.tuning
}

// State returns the current estimate.
func (f *DragFilter) State() TrajectoryState {
	return trajectoryOf(f.kf.Mean())
}

// Covariance returns a copy of the estimate covariance.
func (f *DragFilter) Covariance() *mat.Dense {
	return f.kf.Covariance()
}

// Estimate re-linearizes the model about the current estimate, predicts dt
// seconds ahead under gravity and corrects with the measured height. On error
// the filter keeps the state it had before the call.
func (f *DragFilter) Estimate(dt, height float64) (TrajectoryState, error) {
	if !(dt > 0) {
		return TrajectoryState{}, errors.Wrapf(ErrNonPositiveTimeStep, "dt=%g", dt)
	}
	if err := f.kf.Step(f.model(dt), f.gravity, linalg.Vec(height)); err != nil {
		return TrajectoryState{}, err
	}
	return f.State(), nil
}

func (f *DragFilter) model(dt float64) kalman.Model {
	mean := f.kf.Mean()
	v, k := mean.AtVec(1), mean.AtVec(2)

	m := kalman.Model{
		Transition:       DragJacobian(v, k, dt),
		Control:          linalg.Rows([]float64{0}, []float64{dt}, []float64{0}),
		ProcessNoise:     f.processNoise,
		Measurement:      f.measurement,
		MeasurementNoise: f.measurementNoise,
	}
	if f.tuning.Propagation == PropagationNonlinear {
		m.Propagate = func(x, u mat.Vector) *mat.VecDense {
			return dragStep(x, u.AtVec(0), dt)
		}
	}
	return m
}

// dragStep advances x = [h, v, k] by one Euler step with acceleration a.
func dragStep(x mat.Vector, a, dt float64) *mat.VecDense {
	h, v, k := x.AtVec(0), x.AtVec(1), x.AtVec(2)
	return linalg.Vec(
		h+v*dt,
		v+(a-k*v*math.Abs(v))*dt,
		k,
	)
}

func trajectoryOf(mean mat.Vector) TrajectoryState {
	return TrajectoryState{
		Height:   mean.AtVec(0),
		Velocity: mean.AtVec(1),
		Drag:     mean.AtVec(2),
	}
}
