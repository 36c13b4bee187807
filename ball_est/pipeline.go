package ball_est

import (
	"context"
	"io"
	"time"

	"ball-estimation/estimate"
	"ball-estimation/kalman"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Run feeds observations from src through session and publishes results to
// sink. Each observation is processed to completion before the next is
// read. Bad payloads and observations the session rejects are logged,
// counted and dropped. Run returns nil when src is exhausted or ctx is done.
// metrics may be nil.
func Run(ctx context.Context, src Source, session *estimate.Session, sink Sink, metrics *Metrics) error {
	for {
		obs, err := src.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case errors.Is(err, ErrBadPayload):
			log.WithError(err).Warn("dropping payload")
			metrics.Dropped(dropPayload)
			continue
		default:
			return errors.Wrap(err, "read observation")
		}

		metrics.Observed()
		start := time.Now()
		res, ok, err := session.Process(obs)
		metrics.Timed(time.Since(start))
		if err != nil {
			kind := dropKind(err)
			log.WithFields(log.Fields{"t": obs.T, "z": obs.Z, "kind": kind}).WithError(err).Warn("dropping observation")
			metrics.Dropped(kind)
			continue
		}
		if !ok {
			log.WithFields(log.Fields{"t": obs.T, "z": obs.Z}).Info("first observation, tracking")
			continue
		}

		if err := sink.Publish(res); err != nil {
			log.WithField("t", res.T).WithError(err).Warn("publish failed")
			metrics.Dropped(dropPublish)
		}
	}
}

const (
	dropPayload   = "payload"
	dropTimeStep  = "time_step"
	dropSingular  = "singular"
	dropDimension = "dimension"
	dropPublish   = "publish"
	dropOther     = "other"
)

func dropKind(err error) string {
	switch {
	case errors.Is(err, estimate.ErrNonPositiveTimeStep):
		return dropTimeStep
	case errors.Is(err, kalman.ErrSingularInnovationCovariance):
		return dropSingular
	case errors.Is(err, kalman.ErrInvalidDimension):
		return dropDimension
	default:
		return dropOther
	}
}
