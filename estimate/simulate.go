package estimate

import "math"

const simulateSubsteps = 50

// SimulatedPoint is one sample of a simulated drag trajectory.
type SimulatedPoint struct {
	T        float64
	Height   float64
	Velocity float64
}

// Observation returns the noise-free height observation for p.
func (p SimulatedPoint) Observation() Observation {
	return Observation{T: p.T, Z: p.Height}
}

// Simulate integrates ḣ = v, v̇ = −gravity − k·v·|v| from seed and returns n
// samples spaced dt apart, starting with the seed itself at t = 0. Each
// interval is integrated with fixed-step RK4 sub-steps.
func Simulate(seed DragSeed, gravity, dt float64, n int) []SimulatedPoint {
	if n <= 0 {
		return nil
	}
	accel := func(v float64) float64 {
		return -gravity - seed.Drag*v*math.Abs(v)
	}

	h, v := seed.Height, seed.Velocity
	out := make([]SimulatedPoint, 0, n)
	out = append(out, SimulatedPoint{T: 0, Height: h, Velocity: v})

	d := dt / simulateSubsteps
	for i := 1; i < n; i++ {
		for s := 0; s < simulateSubsteps; s++ {
			h1, v1 := v, accel(v)
			h2, v2 := v+d/2*v1, accel(v+d/2*v1)
			h3, v3 := v+d/2*v2, accel(v+d/2*v2)
			h4, v4 := v+d*v3, accel(v+d*v3)
			h += d / 6 * (h1 + 2*h2 + 2*h3 + h4)
			v += d / 6 * (v1 + 2*v2 + 2*v3 + v4)
		}
		out = append(out, SimulatedPoint{T: float64(i) * dt, Height: h, Velocity: v})
	}
	return out
}
