package ball_est

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"ball-estimation/estimate"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseObservation(t *testing.T) {
	obs, err := parseObservation([]byte("12.5,1.75"))
	require.NoError(t, err)
	require.Equal(t, estimate.Observation{T: 12.5, Z: 1.75}, obs)

	obs, err = parseObservation([]byte(" 3.0, 0.1, -0.2, 0.9 \n"))
	require.NoError(t, err)
	require.Equal(t, estimate.Observation{T: 3, Z: 0.9}, obs)

	for _, payload := range []string{"", "   ", "1.0", "1,2,3", "a,1", "1,b", "1,2,3,x"} {
		_, err := parseObservation([]byte(payload))
		require.True(t, errors.Is(err, ErrBadPayload), "payload %q", payload)
	}
}

func TestCSVSourceSkipsCommentsAndReportsLine(t *testing.T) {
	src := NewCSVSource(strings.NewReader("# t,z\n\n0.0,1.3\n0.1,oops\n0.2,1.4\n"))
	ctx := context.Background()

	obs, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, estimate.Observation{T: 0, Z: 1.3}, obs)

	_, err = src.Next(ctx)
	require.True(t, errors.Is(err, ErrBadPayload))
	require.ErrorContains(t, err, "line 4")

	obs, err = src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, estimate.Observation{T: 0.2, Z: 1.4}, obs)

	_, err = src.Next(ctx)
	require.Equal(t, io.EOF, err)
}

func TestCSVSourceHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCSVSource(strings.NewReader("0,1\n")).Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCSVSinkFormat(t *testing.T) {
	var buf bytes.Buffer
	res := estimate.Result{
		T:           1.5,
		Trajectory:  estimate.TrajectoryState{Height: 2, Velocity: -1.25, Drag: 0.06},
		RawVelocity: -1.5,
		Smoothed:    estimate.SmoothedState{Height: 2.01, Velocity: -1.3},
	}
	require.NoError(t, NewCSVSink(&buf).Publish(res))
	require.Equal(t,
		"kf,1.500000,2.000000,-1.250000,0.060000\n"+
			"nv,1.500000,-1.500000\n"+
			"kf_vel,1.500000,2.010000,-1.300000\n",
		buf.String())
}

type recordingSink struct {
	results []estimate.Result
	err     error
}

func (s *recordingSink) Publish(res estimate.Result) error {
	s.results = append(s.results, res)
	return s.err
}

func TestMultiSinkPublishesToAll(t *testing.T) {
	failing := &recordingSink{err: errors.New("down")}
	ok := &recordingSink{}
	ms := MultiSink{failing, nil, ok}

	err := ms.Publish(estimate.Result{T: 1})
	require.EqualError(t, err, "down")
	require.Len(t, failing.results, 1)
	require.Len(t, ok.results, 1)

	require.NoError(t, MultiSink{ok}.Publish(estimate.Result{T: 2}))
	require.Len(t, ok.results, 2)
}
