// Package kalman implements a discrete-time Kalman filter whose model is
// supplied on every call. The filter owns only the state mean and covariance;
// callers rebuild the transition, control and noise matrices for each time
// step, which allows both linear models and per-step re-linearized
// (extended) models to share one engine.
package kalman

import (
	"math"

	"ball-estimation/linalg"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidDimension reports a state, model or measurement whose size
	// does not match the configured dimensions.
	ErrInvalidDimension = errors.New("invalid dimension")
	// ErrSingularInnovationCovariance reports an update whose innovation
	// covariance cannot be inverted.
	ErrSingularInnovationCovariance = errors.New("singular innovation covariance")
)

// Dims configures the sizes handled by a Filter.
type Dims struct {
	State       int // N
	Measurement int // K
	Control     int // M, may be zero
}

// Model is the set of matrices used by one predict/update cycle.
//
// Control may be nil when the filter has no control input. Propagate, when
// set, replaces the linear mean propagation Transition·mean + Control·u;
// Transition is then used only as the Jacobian for the covariance.
type Model struct {
	Transition       mat.Matrix // N x N
	Control          mat.Matrix // N x M
	ProcessNoise     mat.Matrix // N x N
	Measurement      mat.Matrix // K x N
	MeasurementNoise mat.Matrix // K x K

	Propagate func(mean, u mat.Vector) *mat.VecDense
}

// State is a copy of the filter estimate.
type State struct {
	Mean       *mat.VecDense
	Covariance *mat.Dense
}

// Filter is the predict/update engine. It is not safe for concurrent use.
type Filter struct {
	dims       Dims
	mean       *mat.VecDense
	covariance *mat.Dense
}

// New returns a Filter with a zero mean and an identity covariance.
func New(dims Dims) (*Filter, error) {
	if dims.State <= 0 || dims.Measurement <= 0 || dims.Control < 0 {
		return nil, errors.Wrapf(ErrInvalidDimension, "dims state=%d measurement=%d control=%d",
			dims.State, dims.Measurement, dims.Control)
	}
	return &Filter{
		dims:       dims,
		mean:       mat.NewVecDense(dims.State, nil),
		covariance: linalg.Eye(dims.State),
	}, nil
}

// Dims returns the configured sizes.
func (kf *Filter) Dims() Dims {
	return kf.dims
}

// Initialize sets the state mean and covariance.
func (kf *Filter) Initialize(mean mat.Vector, covariance mat.Matrix) error {
	n := kf.dims.State
	if mean.Len() != n {
		return errors.Wrapf(ErrInvalidDimension, "mean has %d entries, want %d", mean.Len(), n)
	}
	if err := checkDims("covariance", covariance, n, n); err != nil {
		return err
	}
	kf.mean = mat.VecDenseCopyOf(mean)
	kf.covariance = mat.DenseCopyOf(covariance)
	return nil
}

// Mean returns a copy of the current state estimate.
func (kf *Filter) Mean() *mat.VecDense {
	return mat.VecDenseCopyOf(kf.mean)
}

// Covariance returns a copy of the current estimate covariance.
func (kf *Filter) Covariance() *mat.Dense {
	return mat.DenseCopyOf(kf.covariance)
}

// Snapshot returns a copy of the filter state for a later Restore.
func (kf *Filter) Snapshot() State {
	return State{Mean: kf.Mean(), Covariance: kf.Covariance()}
}

// Restore puts back a state taken with Snapshot.
func (kf *Filter) Restore(s State) {
	kf.mean = mat.VecDenseCopyOf(s.Mean)
	kf.covariance = mat.DenseCopyOf(s.Covariance)
}

// Predict advances the state one step:
//
//	mean' = F·mean + B·u
//	P'    = F·P·Fᵀ + Q
//
// The control term is skipped when the filter has no control dimension or
// u is nil.
func (kf *Filter) Predict(m Model, u mat.Vector) error {
	n := kf.dims.State
	if err := checkDims("transition", m.Transition, n, n); err != nil {
		return err
	}
	if err := checkDims("process noise", m.ProcessNoise, n, n); err != nil {
		return err
	}
	useControl := kf.dims.Control > 0 && u != nil
	if useControl {
		if u.Len() != kf.dims.Control {
			return errors.Wrapf(ErrInvalidDimension, "control input has %d entries, want %d", u.Len(), kf.dims.Control)
		}
		if err := checkDims("control matrix", m.Control, n, kf.dims.Control); err != nil {
			return err
		}
	}

	var next *mat.VecDense
	if m.Propagate != nil {
		next = m.Propagate(kf.mean, u)
		if next == nil || next.Len() != n {
			return errors.Wrap(ErrInvalidDimension, "propagated mean")
		}
	} else {
		next = mat.NewVecDense(n, nil)
		next.MulVec(m.Transition, kf.mean)
		if useControl {
			bu := mat.NewVecDense(n, nil)
			bu.MulVec(m.Control, u)
			next.AddVec(next, bu)
		}
	}

	cov := mat.NewDense(n, n, nil)
	cov.Product(m.Transition, kf.covariance, m.Transition.T())
	cov.Add(cov, m.ProcessNoise)
	linalg.Symmetrize(cov)

	kf.mean = next
	kf.covariance = cov
	return nil
}

// Update corrects the state with measurement z:
//
//	y  = z − H·mean
//	S  = H·P·Hᵀ + R
//	K  = P·Hᵀ·S⁻¹
//	mean' = mean + K·y
//	P'    = (I − K·H)·P
//
// The state is left untouched when an error is returned.
func (kf *Filter) Update(m Model, z mat.Vector) error {
	n, k := kf.dims.State, kf.dims.Measurement
	if z.Len() != k {
		return errors.Wrapf(ErrInvalidDimension, "measurement has %d entries, want %d", z.Len(), k)
	}
	if err := checkDims("measurement matrix", m.Measurement, k, n); err != nil {
		return err
	}
	if err := checkDims("measurement noise", m.MeasurementNoise, k, k); err != nil {
		return err
	}

	H := m.Measurement
	P := kf.covariance

	innovation := mat.NewVecDense(k, nil)
	innovation.MulVec(H, kf.mean)
	innovation.SubVec(z, innovation)

	S := mat.NewDense(k, k, nil)
	S.Product(H, P, H.T())
	S.Add(S, m.MeasurementNoise)

	SInv, err := invert(S)
	if err != nil {
		return err
	}

	gain := mat.NewDense(n, k, nil)
	gain.Product(P, H.T(), SInv)

	mean := mat.NewVecDense(n, nil)
	mean.MulVec(gain, innovation)
	mean.AddVec(kf.mean, mean)

	cov := mat.NewDense(n, n, nil)
	cov.Mul(gain, H)
	cov.Sub(linalg.Eye(n), cov)
	cov.Mul(cov, P)
	linalg.Symmetrize(cov)

	kf.mean = mean
	kf.covariance = cov
	return nil
}

// Step runs Predict followed by Update. When either fails the filter is
// restored to the state it had before the call.
func (kf *Filter) Step(m Model, u, z mat.Vector) error {
	saved := kf.Snapshot()
	if err := kf.Predict(m, u); err != nil {
		kf.Restore(saved)
		return err
	}
	if err := kf.Update(m, z); err != nil {
		kf.Restore(saved)
		return err
	}
	return nil
}

func invert(S *mat.Dense) (*mat.Dense, error) {
	det := mat.Det(S)
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return nil, errors.Wrapf(ErrSingularInnovationCovariance, "det(S)=%g", det)
	}
	var inv mat.Dense
	if err := inv.Inverse(S); err != nil {
		// gonum reports ill-conditioning as mat.Condition while still
		// returning a usable inverse; only an infinite condition is fatal.
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, errors.Wrap(ErrSingularInnovationCovariance, err.Error())
		}
	}
	return &inv, nil
}

func checkDims(name string, m mat.Matrix, rows, cols int) error {
	if m == nil {
		return errors.Wrapf(ErrInvalidDimension, "%s is missing", name)
	}
	r, c := m.Dims()
	if r != rows || c != cols {
		return errors.Wrapf(ErrInvalidDimension, "%s is %dx%d, want %dx%d", name, r, c, rows, cols)
	}
	return nil
}
