package ball_est

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics/exp"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilIsNoop(t *testing.T) {
	var m *Metrics
	m.Observed()
	m.Timed(time.Millisecond)
	m.Dropped(dropPayload)
	m.LogSummary()
	require.NoError(t, m.Publish(sampleResult))
	require.Zero(t, m.Count("observations"))
}

func TestMetricsCountsAndGauges(t *testing.T) {
	m := NewMetrics()
	m.Observed()
	m.Observed()
	m.Dropped(dropSingular)
	m.Timed(2 * time.Millisecond)
	require.NoError(t, m.Publish(sampleResult))

	require.Equal(t, int64(2), m.Count("observations"))
	require.Equal(t, int64(1), m.Count("results"))
	require.Equal(t, int64(1), m.Count("dropped.singular"))
	require.Zero(t, m.Count("kf.height"))
	require.Zero(t, m.Count("missing"))
	require.Equal(t, 1.2, m.height.Value())
	require.Equal(t, 0.07, m.drag.Value())
	require.Equal(t, -0.6, m.rawVelocity.Value())
	require.Equal(t, -0.55, m.smoothedVelocity.Value())
	require.Equal(t, int64(1), m.step.Count())
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	m.Observed()
	require.NoError(t, m.Publish(sampleResult))

	rec := httptest.NewRecorder()
	exp.ExpHandler(m.registry).ServeHTTP(rec, httptest.NewRequest("GET", "/debug/metrics", nil))
	require.Equal(t, 200, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "observations")
	require.Contains(t, body, "kf.drag")
}
