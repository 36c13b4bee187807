package estimate

import (
	"strings"

	"github.com/pkg/errors"
)

// StandardGravity is the gravitational acceleration used by default, m/s².
const StandardGravity = 9.8

// Empirical noise settings. Large velocity and drag process noise lets the
// drag filter follow bounces and re-estimate the drag coefficient quickly.
var (
	DefaultDragProcessNoise          = []float64{0.01, 1e6, 1e3}
	DefaultDragMeasurementNoise      = 0.04
	DefaultVelocityProcessNoise      = []float64{0.01, 100}
	DefaultVelocityMeasurementNoise  = 0.05
	DefaultDragInitialCovariance     = []float64{1, 1, 1}
	DefaultVelocityInitialCovariance = []float64{1, 1}
)

// Propagation selects how DragFilter advances its mean.
type Propagation string

const (
	// PropagationLinearized advances the mean with the Jacobian itself:
	// mean' = F·mean + B·u.
	PropagationLinearized Propagation = "linearized"
	// PropagationNonlinear advances the mean with one Euler step of the drag
	// dynamics and keeps the Jacobian for the covariance only.
	PropagationNonlinear Propagation = "nonlinear"
)

// ParsePropagation converts a config string into a Propagation. The empty
// string selects PropagationLinearized.
func ParsePropagation(value string) (Propagation, error) {
	switch Propagation(strings.ToLower(strings.TrimSpace(value))) {
	case "", PropagationLinearized:
		return PropagationLinearized, nil
	case PropagationNonlinear:
		return PropagationNonlinear, nil
	default:
		return "", errors.Errorf("unknown propagation %q", value)
	}
}

// DragSeed is the initial DragFilter state.
type DragSeed struct {
	Height   float64 `json:"height" yaml:"height"`
	Velocity float64 `json:"velocity" yaml:"velocity"`
	Drag     float64 `json:"drag" yaml:"drag"`
}

// DefaultDragSeed returns the seed used when none is configured.
func DefaultDragSeed() DragSeed {
	return DragSeed{Height: 1.3, Velocity: 4.0, Drag: 0.06}
}

// DragTuning holds the DragFilter constants.
type DragTuning struct {
	Gravity           float64     `json:"gravity" yaml:"gravity"`
	ProcessNoise      []float64   `json:"process_noise" yaml:"process_noise"`
	MeasurementNoise  float64     `json:"measurement_noise" yaml:"measurement_noise"`
	InitialCovariance []float64   `json:"initial_covariance" yaml:"initial_covariance"`
	Propagation       Propagation `json:"propagation" yaml:"propagation"`
}

// DefaultDragTuning returns the empirical DragFilter constants.
func DefaultDragTuning() DragTuning {
	return DragTuning{
		Gravity:           StandardGravity,
		ProcessNoise:      append([]float64(nil), DefaultDragProcessNoise...),
		MeasurementNoise:  DefaultDragMeasurementNoise,
		InitialCovariance: append([]float64(nil), DefaultDragInitialCovariance...),
		Propagation:       PropagationLinearized,
	}
}

// Validate checks lengths and the measurement noise floor.
func (t DragTuning) Validate() error {
	if len(t.ProcessNoise) != 3 {
		return errors.Errorf("drag process_noise needs 3 values, got %d", len(t.ProcessNoise))
	}
	if len(t.InitialCovariance) != 3 {
		return errors.Errorf("drag initial_covariance needs 3 values, got %d", len(t.InitialCovariance))
	}
	if t.MeasurementNoise <= 0 {
		return errors.Errorf("drag measurement_noise must be > 0, got %g", t.MeasurementNoise)
	}
	if _, err := ParsePropagation(string(t.Propagation)); err != nil {
		return err
	}
	return nil
}

// VelocityTuning holds the VelocityFilter constants.
type VelocityTuning struct {
	ProcessNoise      []float64 `json:"process_noise" yaml:"process_noise"`
	MeasurementNoise  float64   `json:"measurement_noise" yaml:"measurement_noise"`
	InitialCovariance []float64 `json:"initial_covariance" yaml:"initial_covariance"`
}

// DefaultVelocityTuning returns the empirical VelocityFilter constants.
func DefaultVelocityTuning() VelocityTuning {
	return VelocityTuning{
		ProcessNoise:      append([]float64(nil), DefaultVelocityProcessNoise...),
		MeasurementNoise:  DefaultVelocityMeasurementNoise,
		InitialCovariance: append([]float64(nil), DefaultVelocityInitialCovariance...),
	}
}

// Validate checks lengths and the measurement noise floor.
func (t VelocityTuning) Validate() error {
	if len(t.ProcessNoise) != 2 {
		return errors.Errorf("velocity process_noise needs 2 values, got %d", len(t.ProcessNoise))
	}
	if len(t.InitialCovariance) != 2 {
		return errors.Errorf("velocity initial_covariance needs 2 values, got %d", len(t.InitialCovariance))
	}
	if t.MeasurementNoise <= 0 {
		return errors.Errorf("velocity measurement_noise must be > 0, got %g", t.MeasurementNoise)
	}
	return nil
}
