package ball_est

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"ball-estimation/estimate"

	"gonum.org/v1/gonum/stat/distuv"
)

// RunReplay runs the observations in r through a fresh session and writes
// the results to w as CSV.
func RunReplay(ctx context.Context, cfg AppConfig, r io.Reader, w io.Writer) (*Metrics, error) {
	session, err := estimate.NewSession(cfg.Estimator)
	if err != nil {
		return nil, err
	}
	metrics := NewMetrics()
	sinks := MultiSink{NewCSVSink(w), metrics}
	if err := Run(ctx, NewCSVSource(r), session, sinks, metrics); err != nil {
		return metrics, err
	}
	return metrics, nil
}

// SimulationConfig describes a synthetic flight.
type SimulationConfig struct {
	Seed     estimate.DragSeed
	Gravity  float64
	Dt       float64
	Samples  int
	Noise    float64 // standard deviation added to each height, 0 for none
	RandSeed uint64
}

// WriteSimulation writes a simulated flight as "t,z" lines, suitable for
// RunReplay or for sending to a live session.
func WriteSimulation(w io.Writer, cfg SimulationConfig) error {
	var noise *distuv.Normal
	if cfg.Noise > 0 {
		noise = &distuv.Normal{Mu: 0, Sigma: cfg.Noise, Src: rand.NewPCG(cfg.RandSeed, cfg.RandSeed^0x9e3779b97f4a7c15)}
	}
	for _, p := range estimate.Simulate(cfg.Seed, cfg.Gravity, cfg.Dt, cfg.Samples) {
		z := p.Height
		if noise != nil {
			z += noise.Rand()
		}
		if _, err := fmt.Fprintf(w, "%.6f,%.6f\n", p.T, z); err != nil {
			return err
		}
	}
	return nil
}
