package ball_est

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"ball-estimation/estimate"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LiveConfig controls UDP input settings for height observations.
type LiveConfig struct {
	UDPAddr    string `json:"udp_addr" yaml:"udp_addr"`
	ReadBuffer int    `json:"read_buffer" yaml:"read_buffer"`
}

// OutputConfig controls UDP output of estimation results.
type OutputConfig struct {
	UDPAddr string `json:"udp_addr" yaml:"udp_addr"`
}

// MQTTConfig controls publishing results to an MQTT broker. An empty Broker
// disables the sink.
type MQTTConfig struct {
	Broker         string `json:"broker" yaml:"broker"`
	ClientID       string `json:"client_id" yaml:"client_id"`
	TopicPrefix    string `json:"topic_prefix" yaml:"topic_prefix"`
	QoS            byte   `json:"qos" yaml:"qos"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// LogConfig controls logrus output. Filename "" or "-" logs to stderr;
// anything else is a file rotated by lumberjack.
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	Filename   string `json:"filename" yaml:"filename"`
	MaxSize    int    `json:"max_size" yaml:"max_size"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAge     int    `json:"max_age" yaml:"max_age"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// AppConfig aggregates all configuration sections.
type AppConfig struct {
	Estimator estimate.SessionConfig `json:"estimator" yaml:"estimator"`
	Live      LiveConfig             `json:"live" yaml:"live"`
	Output    OutputConfig           `json:"output" yaml:"output"`
	MQTT      MQTTConfig             `json:"mqtt" yaml:"mqtt"`
	Viz       VizConfig              `json:"viz" yaml:"viz"`
	Log       LogConfig              `json:"log" yaml:"log"`
}

// DefaultConfig returns the configuration used for anything a file leaves out.
func DefaultConfig() AppConfig {
	return AppConfig{
		Estimator: estimate.DefaultSessionConfig(),
		Live:      LiveConfig{UDPAddr: "127.0.0.1:9870", ReadBuffer: 2048},
		MQTT:      MQTTConfig{ClientID: "ball-estimation", TopicPrefix: "ball", TimeoutSeconds: 5},
		Viz:       VizConfig{Addr: "127.0.0.1:7070"},
		Log:       LogConfig{Level: "info", MaxSize: 10, MaxBackups: 3, MaxAge: 7},
	}
}

// LoadConfig reads a JSON or YAML config from disk on top of DefaultConfig.
// Files ending in .yaml or .yml are decoded as YAML.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the estimator tuning.
func (c AppConfig) Validate() error {
	if err := c.Estimator.Drag.Validate(); err != nil {
		return err
	}
	if err := c.Estimator.Velocity.Validate(); err != nil {
		return err
	}
	if c.MQTT.QoS > 2 {
		return errors.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}
