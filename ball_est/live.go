package ball_est

import (
	"context"
	"io"
	"net"
	"time"

	"ball-estimation/estimate"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const udpPollInterval = 200 * time.Millisecond

// UDPSource reads one observation per datagram.
type UDPSource struct {
	conn *net.UDPConn
	buf  []byte
}

// NewUDPSource listens on cfg.UDPAddr.
func NewUDPSource(cfg LiveConfig) (*UDPSource, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.UDPAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	bufSize := cfg.ReadBuffer
	if bufSize <= 0 {
		bufSize = 2048
	}
	return &UDPSource{conn: conn, buf: make([]byte, bufSize)}, nil
}

// Addr returns the bound local address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Close releases the socket.
func (s *UDPSource) Close() error {
	return s.conn.Close()
}

// Next implements Source. Reads poll ctx between short deadlines so a
// cancelled context stops a quiet socket.
func (s *UDPSource) Next(ctx context.Context) (estimate.Observation, error) {
	for {
		if err := ctx.Err(); err != nil {
			return estimate.Observation{}, err
		}
		if err := s.conn.SetReadDeadline(time.Now().Add(udpPollInterval)); err != nil {
			return estimate.Observation{}, err
		}
		n, _, err := s.conn.ReadFromUDP(s.buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return estimate.Observation{}, io.EOF
			}
			return estimate.Observation{}, err
		}
		return parseObservation(s.buf[:n])
	}
}

// RunLive listens for UDP observations and publishes results to the UDP,
// MQTT and metrics sinks enabled in cfg until ctx is done.
func RunLive(ctx context.Context, cfg AppConfig) error {
	if cfg.Live.UDPAddr == "" {
		return errors.New("live.udp_addr must be set")
	}

	session, err := estimate.NewSession(cfg.Estimator)
	if err != nil {
		return err
	}
	src, err := NewUDPSource(cfg.Live)
	if err != nil {
		return err
	}
	defer src.Close()

	udp, err := NewUDPSink(cfg.Output.UDPAddr)
	if err != nil {
		return err
	}
	defer udp.Close()

	metrics := NewMetrics()
	sinks := MultiSink{udp, metrics}

	if cfg.MQTT.Broker != "" {
		mqtt, err := NewMQTTSink(cfg.MQTT)
		if err != nil {
			return err
		}
		defer mqtt.Close()
		sinks = append(sinks, mqtt)
	}

	if cfg.Viz.Enabled {
		srv := metrics.Serve(cfg.Viz.Addr)
		defer srv.Close()
	}

	log.WithFields(log.Fields{
		"listen":      src.Addr().String(),
		"output":      cfg.Output.UDPAddr,
		"mqtt":        cfg.MQTT.Broker,
		"propagation": cfg.Estimator.Drag.Propagation,
	}).Info("live estimation started")

	err = Run(ctx, src, session, sinks, metrics)
	metrics.LogSummary()
	return err
}
