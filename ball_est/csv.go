package ball_est

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ball-estimation/estimate"

	"github.com/pkg/errors"
)

// parseObservation parses "t,z" or "t,x,y,z" payloads. The four-field form
// carries a full position of which only z, the height, is used.
func parseObservation(b []byte) (estimate.Observation, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return estimate.Observation{}, errors.Wrap(ErrBadPayload, "empty payload")
	}

	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 4 {
		return estimate.Observation{}, errors.Wrapf(ErrBadPayload, "expected 2 or 4 fields, got %d", len(parts))
	}

	t, err := parseF64(parts[0])
	if err != nil {
		return estimate.Observation{}, errors.Wrapf(ErrBadPayload, "timestamp: %v", err)
	}
	z, err := parseF64(parts[len(parts)-1])
	if err != nil {
		return estimate.Observation{}, errors.Wrapf(ErrBadPayload, "height: %v", err)
	}
	return estimate.Observation{T: t, Z: z}, nil
}

// parseF64 parses a float from a CSV field.
func parseF64(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

// formatResult renders res as three CSV records:
//
//	kf,t,height,velocity,drag
//	nv,t,raw_velocity
//	kf_vel,t,smoothed_height,smoothed_velocity
func formatResult(res estimate.Result) []string {
	return []string{
		fmt.Sprintf("kf,%.6f,%.6f,%.6f,%.6f", res.T, res.Trajectory.Height, res.Trajectory.Velocity, res.Trajectory.Drag),
		fmt.Sprintf("nv,%.6f,%.6f", res.T, res.RawVelocity),
		fmt.Sprintf("kf_vel,%.6f,%.6f,%.6f", res.T, res.Smoothed.Height, res.Smoothed.Velocity),
	}
}

// CSVSource reads one observation per line. Blank lines and lines starting
// with '#' are skipped.
type CSVSource struct {
	scanner *bufio.Scanner
	line    int
}

// NewCSVSource returns a source reading from r.
func NewCSVSource(r io.Reader) *CSVSource {
	return &CSVSource{scanner: bufio.NewScanner(r)}
}

// Next implements Source. It returns io.EOF after the last line.
func (s *CSVSource) Next(ctx context.Context) (estimate.Observation, error) {
	for {
		if err := ctx.Err(); err != nil {
			return estimate.Observation{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return estimate.Observation{}, err
			}
			return estimate.Observation{}, io.EOF
		}
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		obs, err := parseObservation([]byte(text))
		if err != nil {
			return estimate.Observation{}, errors.Wrapf(err, "line %d", s.line)
		}
		return obs, nil
	}
}

// CSVSink writes results as CSV records to an io.Writer.
type CSVSink struct {
	w io.Writer
}

// NewCSVSink returns a sink writing to w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: w}
}

// Publish implements Sink.
func (s *CSVSink) Publish(res estimate.Result) error {
	for _, line := range formatResult(res) {
		if _, err := fmt.Fprintln(s.w, line); err != nil {
			return err
		}
	}
	return nil
}
