// Package ball_est hosts the estimation session: it reads height
// observations from a source, runs them through an estimate.Session one at a
// time and hands every result to the configured sinks.
package ball_est

import (
	"context"

	"ball-estimation/estimate"

	"github.com/pkg/errors"
)

// ErrBadPayload marks an observation that could not be parsed. The pipeline
// drops it and keeps reading.
var ErrBadPayload = errors.New("bad observation payload")

// Source delivers observations in arrival order. Next blocks until an
// observation is available, ctx is done, or the source is exhausted
// (io.EOF).
type Source interface {
	Next(ctx context.Context) (estimate.Observation, error)
}

// Sink receives each result.
type Sink interface {
	Publish(res estimate.Result) error
}

// MultiSink publishes to every sink and returns the first error.
type MultiSink []Sink

// Publish implements Sink.
func (ms MultiSink) Publish(res estimate.Result) error {
	var first error
	for _, s := range ms {
		if s == nil {
			continue
		}
		if err := s.Publish(res); err != nil && first == nil {
			first = err
		}
	}
	return first
}
