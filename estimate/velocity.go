package estimate

import (
	"ball-estimation/kalman"
	"ball-estimation/linalg"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// VelocityFilter smooths [height, velocity] with a constant-velocity model.
// The large velocity process noise lets it follow abrupt velocity changes
// such as bounces.
type VelocityFilter struct {
	tuning VelocityTuning
	kf     *kalman.Filter

	dt         float64
	transition *mat.Dense
	control    *mat.Dense

	processNoise     *mat.Dense
	measurement      *mat.Dense
	measurementNoise *mat.Dense
}

// NewVelocityFilter returns a VelocityFilter with a zero state. Call Seed and
// ConfigureTimestep before Estimate.
func NewVelocityFilter(tuning VelocityTuning) (*VelocityFilter, error) {
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	kf, err := kalman.New(kalman.Dims{State: 2, Measurement: 1, Control: 1})
	if err != nil {
		return nil, err
	}
	if err := kf.Initialize(linalg.Vec(0, 0), linalg.Diag(tuning.InitialCovariance...)); err != nil {
		return nil, err
	}
	return &VelocityFilter{
		tuning:           tuning,
		kf:               kf,
		processNoise:     linalg.Diag(tuning.ProcessNoise...),
		measurement:      linalg.Rows([]float64{1, 0}),
		measurementNoise: linalg.Diag(tuning.MeasurementNoise),
	}, nil
}

// Seed sets the state mean and resets the covariance to its initial value.
func (f *VelocityFilter) Seed(height, velocity float64) error {
	return f.kf.Initialize(linalg.Vec(height, velocity), linalg.Diag(f.tuning.InitialCovariance...))
}

// ConfigureTimestep rebuilds F = [[1, dt], [0, 1]] and B = [[0], [dt]].
func (f *VelocityFilter) ConfigureTimestep(dt float64) error {
	if !(dt > 0) {
		return errors.Wrapf(ErrNonPositiveTimeStep, "dt=%g", dt)
	}
	f.dt = dt
	f.transition = linalg.Rows([]float64{1, dt}, []float64{0, 1})
	f.control = linalg.Rows([]float64{0}, []float64{dt})
	return nil
}

// Timestep returns the last configured time step, zero before the first
// ConfigureTimestep.
func (f *VelocityFilter) Timestep() float64 {
	return f.dt
}

// Estimate predicts without control input and corrects with height z.
func (f *VelocityFilter) Estimate(z float64) (SmoothedState, error) {
	return f.estimate(z, nil)
}

// EstimateWithControl predicts with acceleration u and corrects with
// height z.
func (f *VelocityFilter) EstimateWithControl(z, u float64) (SmoothedState, error) {
	return f.estimate(z, linalg.Vec(u))
}

// State returns the current estimate.
func (f *VelocityFilter) State() SmoothedState {
	mean := f.kf.Mean()
	return SmoothedState{Height: mean.AtVec(0), Velocity: mean.AtVec(1)}
}

func (f *VelocityFilter) estimate(z float64, u mat.Vector) (SmoothedState, error) {
	if f.transition == nil {
		return SmoothedState{}, errors.Wrap(ErrNonPositiveTimeStep, "timestep not configured")
	}
	m := kalman.Model{
		Transition:       f.transition,
		Control:          f.control,
		ProcessNoise:     f.processNoise,
		Measurement:      f.measurement,
		MeasurementNoise: f.measurementNoise,
	}
	if err := f.kf.Step(m, u, linalg.Vec(z)); err != nil {
		return SmoothedState{}, err
	}
	return f.State(), nil
}
