package estimate

import "github.com/pkg/errors"

// SessionConfig collects what a Session needs at start.
type SessionConfig struct {
	Seed     DragSeed       `json:"seed" yaml:"seed"`
	Drag     DragTuning     `json:"drag" yaml:"drag"`
	Velocity VelocityTuning `json:"velocity" yaml:"velocity"`
}

// DefaultSessionConfig returns the default seed and tuning.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Seed:     DefaultDragSeed(),
		Drag:     DefaultDragTuning(),
		Velocity: DefaultVelocityTuning(),
	}
}

// Session runs both filters over one observation stream. It owns its filters
// exclusively and is not safe for concurrent use; hosts must feed it from a
// single goroutine.
type Session struct {
	drag     *DragFilter
	velocity *VelocityFilter

	phase Phase
	prevT float64
	prevZ float64
}

// NewSession builds both filters from cfg.
func NewSession(cfg SessionConfig) (*Session, error) {
	drag, err := NewDragFilter(cfg.Seed, cfg.Drag)
	if err != nil {
		return nil, errors.Wrap(err, "drag filter")
	}
	velocity, err := NewVelocityFilter(cfg.Velocity)
	if err != nil {
		return nil, errors.Wrap(err, "velocity filter")
	}
	return &Session{
		drag:     drag,
		velocity: velocity,
		phase:    PhaseAwaitingFirstObservation,
	}, nil
}

// Phase reports whether the session has seen its first observation.
func (s *Session) Phase() Phase {
	return s.phase
}

// Trajectory returns the current DragFilter estimate.
func (s *Session) Trajectory() TrajectoryState {
	return s.drag.State()
}

// Smoothed returns the current VelocityFilter estimate.
func (s *Session) Smoothed() SmoothedState {
	return s.velocity.State()
}

// Process consumes one observation. The first observation only seeds the
// session and returns ok == false. Later observations return a Result.
//
// An observation that does not advance time fails with
// ErrNonPositiveTimeStep. On any error both filters and the previous
// observation are kept as they were, so the caller may drop the sample and
// continue.
func (s *Session) Process(obs Observation) (Result, bool, error) {
	if s.phase == PhaseAwaitingFirstObservation {
		if err := s.velocity.Seed(obs.Z, 0); err != nil {
			return Result{}, false, err
		}
		s.prevT, s.prevZ = obs.T, obs.Z
		s.phase = PhaseTracking
		return Result{}, false, nil
	}

	dt := obs.T - s.prevT
	if !(dt > 0) {
		return Result{}, false, errors.Wrapf(ErrNonPositiveTimeStep, "t=%g previous=%g", obs.T, s.prevT)
	}

	dragSaved := s.drag.kf.Snapshot()
	velSaved := s.velocity.kf.Snapshot()
	velDt, velF, velB := s.velocity.dt, s.velocity.transition, s.velocity.control
	restore := func() {
		s.drag.kf.Restore(dragSaved)
		s.velocity.kf.Restore(velSaved)
		s.velocity.dt, s.velocity.transition, s.velocity.control = velDt, velF, velB
	}

	traj, err := s.drag.Estimate(dt, obs.Z)
	if err != nil {
		return Result{}, false, errors.Wrap(err, "drag estimate")
	}
	if err := s.velocity.ConfigureTimestep(dt); err != nil {
		restore()
		return Result{}, false, err
	}
	smoothed, err := s.velocity.Estimate(obs.Z)
	if err != nil {
		restore()
		return Result{}, false, errors.Wrap(err, "velocity estimate")
	}

	res := Result{
		T:           obs.T,
		Trajectory:  traj,
		RawVelocity: (obs.Z - s.prevZ) / dt,
		Smoothed:    smoothed,
	}
	s.prevT, s.prevZ = obs.T, obs.Z
	return res, true, nil
}
