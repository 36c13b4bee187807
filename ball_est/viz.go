package ball_est

import (
	"net/http"
	"time"

	"ball-estimation/estimate"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/rcrowley/go-metrics/exp"
	log "github.com/sirupsen/logrus"
)

// VizConfig controls the optional HTTP endpoint exposing live metrics.
type VizConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// Metrics counts pipeline activity and mirrors the latest outputs as gauges.
// A nil *Metrics ignores every call.
type Metrics struct {
	registry metrics.Registry

	observations metrics.Counter
	results      metrics.Counter
	step         metrics.Timer

	height           metrics.GaugeFloat64
	velocity         metrics.GaugeFloat64
	drag             metrics.GaugeFloat64
	rawVelocity      metrics.GaugeFloat64
	smoothedHeight   metrics.GaugeFloat64
	smoothedVelocity metrics.GaugeFloat64
}

// NewMetrics registers all metrics in a fresh registry.
func NewMetrics() *Metrics {
	r := metrics.NewRegistry()
	return &Metrics{
		registry:         r,
		observations:     metrics.NewRegisteredCounter("observations", r),
		results:          metrics.NewRegisteredCounter("results", r),
		step:             metrics.NewRegisteredTimer("step", r),
		height:           metrics.NewRegisteredGaugeFloat64("kf.height", r),
		velocity:         metrics.NewRegisteredGaugeFloat64("kf.velocity", r),
		drag:             metrics.NewRegisteredGaugeFloat64("kf.drag", r),
		rawVelocity:      metrics.NewRegisteredGaugeFloat64("nv.velocity", r),
		smoothedHeight:   metrics.NewRegisteredGaugeFloat64("kf_vel.height", r),
		smoothedVelocity: metrics.NewRegisteredGaugeFloat64("kf_vel.velocity", r),
	}
}

// Serve exposes the registry as JSON on addr at /debug/metrics.
func (m *Metrics) Serve(addr string) *http.Server {
	if addr == "" {
		addr = "127.0.0.1:7070"
	}
	mux := http.NewServeMux()
	mux.Handle("/debug/metrics", exp.ExpHandler(m.registry))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("viz server")
		}
	}()
	return server
}

// Observed counts an observation read from the source.
func (m *Metrics) Observed() {
	if m == nil {
		return
	}
	m.observations.Inc(1)
}

// Timed records the time spent processing one observation.
func (m *Metrics) Timed(d time.Duration) {
	if m == nil {
		return
	}
	m.step.Update(d)
}

// Dropped counts a discarded observation or result under kind.
func (m *Metrics) Dropped(kind string) {
	if m == nil {
		return
	}
	metrics.GetOrRegisterCounter("dropped."+kind, m.registry).Inc(1)
}

// Publish implements Sink by updating the output gauges.
func (m *Metrics) Publish(res estimate.Result) error {
	if m == nil {
		return nil
	}
	m.results.Inc(1)
	m.height.Update(res.Trajectory.Height)
	m.velocity.Update(res.Trajectory.Velocity)
	m.drag.Update(res.Trajectory.Drag)
	m.rawVelocity.Update(res.RawVelocity)
	m.smoothedHeight.Update(res.Smoothed.Height)
	m.smoothedVelocity.Update(res.Smoothed.Velocity)
	return nil
}

// Count returns the value of a counter by name, zero if absent.
func (m *Metrics) Count(name string) int64 {
	if m == nil {
		return 0
	}
	if c, ok := m.registry.Get(name).(metrics.Counter); ok {
		return c.Count()
	}
	return 0
}

// LogSummary logs the counters at INFO.
func (m *Metrics) LogSummary() {
	if m == nil {
		return
	}
	fields := log.Fields{}
	m.registry.Each(func(name string, v interface{}) {
		if c, ok := v.(metrics.Counter); ok {
			fields[name] = c.Count()
		}
	})
	log.WithFields(fields).Info("estimation summary")
}
