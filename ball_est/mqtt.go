package ball_est

import (
	"encoding/json"
	"time"

	"ball-estimation/estimate"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

// pointMessage is the payload published per topic. Fields follow a stamped
// point: kf packs (height, velocity, drag) into (x, y, z), nv carries the raw
// velocity in z, and kf_vel carries velocity in y and height in z.
type pointMessage struct {
	Stamp float64 `json:"stamp"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// mqttClient is the part of paho.Client the sink uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes results to <prefix>/kf, <prefix>/nv and <prefix>/kf_vel.
type MQTTSink struct {
	client  mqttClient
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTTSink connects to cfg.Broker.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetProtocolVersion(4)
	opts.SetKeepAlive(30 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, errors.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "mqtt connect %s", cfg.Broker)
	}
	return newMQTTSink(client, cfg.TopicPrefix, cfg.QoS, timeout), nil
}

func newMQTTSink(client mqttClient, prefix string, qos byte, timeout time.Duration) *MQTTSink {
	return &MQTTSink{client: client, prefix: prefix, qos: qos, timeout: timeout}
}

// Publish implements Sink.
func (s *MQTTSink) Publish(res estimate.Result) error {
	messages := []struct {
		topic string
		msg   pointMessage
	}{
		{"kf", pointMessage{Stamp: res.T, X: res.Trajectory.Height, Y: res.Trajectory.Velocity, Z: res.Trajectory.Drag}},
		{"nv", pointMessage{Stamp: res.T, Z: res.RawVelocity}},
		{"kf_vel", pointMessage{Stamp: res.T, Y: res.Smoothed.Velocity, Z: res.Smoothed.Height}},
	}
	for _, m := range messages {
		payload, err := json.Marshal(m.msg)
		if err != nil {
			return err
		}
		topic := s.topic(m.topic)
		token := s.client.Publish(topic, s.qos, false, payload)
		if s.qos == 0 {
			continue
		}
		if !token.WaitTimeout(s.timeout) {
			return errors.Errorf("mqtt publish %s: timeout", topic)
		}
		if err := token.Error(); err != nil {
			return errors.Wrapf(err, "mqtt publish %s", topic)
		}
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}

func (s *MQTTSink) topic(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
