package estimate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(DefaultSessionConfig())
	require.NoError(t, err)
	return s
}

func TestSessionFirstObservationSeeds(t *testing.T) {
	s := newSession(t)
	require.Equal(t, PhaseAwaitingFirstObservation, s.Phase())

	_, ok, err := s.Process(Observation{T: 10, Z: 1.25})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, PhaseTracking, s.Phase())
	require.Equal(t, SmoothedState{Height: 1.25, Velocity: 0}, s.Smoothed())
	require.Equal(t, TrajectoryState{Height: 1.3, Velocity: 4.0, Drag: 0.06}, s.Trajectory())
}

func TestSessionMatchesStandaloneFilters(t *testing.T) {
	s := newSession(t)
	drag, err := NewDragFilter(DefaultDragSeed(), DefaultDragTuning())
	require.NoError(t, err)
	vel := newVelocityFilter(t)

	obs := []Observation{
		{T: 100.000, Z: 1.30},
		{T: 100.008, Z: 1.33},
		{T: 100.017, Z: 1.36},
		{T: 100.025, Z: 1.38},
	}
	_, ok, err := s.Process(obs[0])
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, vel.Seed(obs[0].Z, 0))

	for i := 1; i < len(obs); i++ {
		dt := obs[i].T - obs[i-1].T
		wantTraj, err := drag.Estimate(dt, obs[i].Z)
		require.NoError(t, err)
		require.NoError(t, vel.ConfigureTimestep(dt))
		wantSmooth, err := vel.Estimate(obs[i].Z)
		require.NoError(t, err)

		res, ok, err := s.Process(obs[i])
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, obs[i].T, res.T)
		require.Equal(t, wantTraj, res.Trajectory)
		require.Equal(t, wantSmooth, res.Smoothed)
		require.InDelta(t, (obs[i].Z-obs[i-1].Z)/dt, res.RawVelocity, 1e-9)
	}
}

func TestSessionRejectsNonPositiveTimeStep(t *testing.T) {
	s := newSession(t)
	_, _, err := s.Process(Observation{T: 1.0, Z: 1.3})
	require.NoError(t, err)
	_, ok, err := s.Process(Observation{T: 1.01, Z: 1.32})
	require.NoError(t, err)
	require.True(t, ok)

	dragBefore, velBefore := s.drag.kf.Snapshot(), s.velocity.kf.Snapshot()
	trajBefore := s.Trajectory()

	for _, ts := range []float64{1.01, 1.0} {
		_, ok, err = s.Process(Observation{T: ts, Z: 5})
		require.ErrorIs(t, err, ErrNonPositiveTimeStep)
		require.False(t, ok)
	}
	require.Equal(t, trajBefore, s.Trajectory())
	require.True(t, mat.Equal(dragBefore.Covariance, s.drag.kf.Covariance()))
	require.True(t, mat.Equal(velBefore.Mean, s.velocity.kf.Mean()))

	// the dropped samples leave the previous observation in place
	res, ok, err := s.Process(Observation{T: 1.03, Z: 1.36})
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, (1.36-1.32)/0.02, res.RawVelocity, 1e-9)
}

func TestSessionSimulatedFlight(t *testing.T) {
	s := newSession(t)
	const dt = 1.0 / 120
	points := Simulate(DragSeed{Height: 1.3, Velocity: 4.0, Drag: 0.06}, StandardGravity, dt, 120)

	results := 0
	for _, p := range points {
		res, ok, err := s.Process(p.Observation())
		require.NoError(t, err)
		if !ok {
			continue
		}
		results++
		for _, v := range []float64{res.Trajectory.Height, res.Trajectory.Velocity, res.Trajectory.Drag,
			res.RawVelocity, res.Smoothed.Height, res.Smoothed.Velocity} {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
	require.Equal(t, len(points)-1, results)

	last := points[len(points)-1]
	require.InDelta(t, last.Height, s.Trajectory().Height, 0.01)
	require.InDelta(t, last.Velocity, s.Trajectory().Velocity, 0.1)
	require.InDelta(t, last.Height, s.Smoothed().Height, 0.05)
}

func TestNewSessionValidates(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.Velocity.InitialCovariance = nil
	_, err := NewSession(cfg)
	require.Error(t, err)
}

func TestPhaseString(t *testing.T) {
	require.Equal(t, "TRACKING", PhaseTracking.String())
	require.Equal(t, "Phase(9)", Phase(9).String())
}
