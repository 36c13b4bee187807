package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ball-estimation/ball_est"
	"ball-estimation/estimate"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Globals struct {
	Config   string `name:"config" short:"c" placeholder:"<path>" help:"Path to JSON or YAML config."`
	LogLevel string `name:"log-level" help:"Override log level (trace, debug, info, warn, error)."`
}

// load reads the config file, or the defaults when none is given, and sets
// up logging.
func (g *Globals) load() (ball_est.AppConfig, func(), error) {
	cfg := ball_est.DefaultConfig()
	if g.Config != "" {
		var err error
		cfg, err = ball_est.LoadConfig(g.Config)
		if err != nil {
			return cfg, nil, err
		}
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	closer, err := ball_est.SetupLogging(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, func() { _ = closer.Close() }, nil
}

type LiveCmd struct {
	LiveAddr    string `name:"live-addr" help:"Override live UDP listen addr (host:port)."`
	OutputAddr  string `name:"output-addr" help:"Override output UDP addr (host:port)."`
	MQTTBroker  string `name:"mqtt-broker" help:"Override MQTT broker (tcp://host:port)."`
	VizAddr     string `name:"viz-addr" help:"Serve metrics on this addr."`
	Propagation string `name:"propagation" help:"Drag filter mean propagation (linearized or nonlinear)."`
}

func (c *LiveCmd) Run(g *Globals) error {
	cfg, done, err := g.load()
	if err != nil {
		return err
	}
	defer done()

	if c.LiveAddr != "" {
		cfg.Live.UDPAddr = c.LiveAddr
	}
	if c.OutputAddr != "" {
		cfg.Output.UDPAddr = c.OutputAddr
	}
	if c.MQTTBroker != "" {
		cfg.MQTT.Broker = c.MQTTBroker
	}
	if c.VizAddr != "" {
		cfg.Viz.Enabled = true
		cfg.Viz.Addr = c.VizAddr
	}
	if c.Propagation != "" {
		p, err := estimate.ParsePropagation(c.Propagation)
		if err != nil {
			return err
		}
		cfg.Estimator.Drag.Propagation = p
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return ball_est.RunLive(ctx, cfg)
}

type ReplayCmd struct {
	File string `arg:"" name:"FILE" help:"CSV observations (t,z or t,x,y,z); - for stdin."`
}

func (c *ReplayCmd) Run(g *Globals) error {
	cfg, done, err := g.load()
	if err != nil {
		return err
	}
	defer done()

	in := os.Stdin
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	metrics, err := ball_est.RunReplay(ctx, cfg, in, os.Stdout)
	metrics.LogSummary()
	return err
}

type SimulateCmd struct {
	Height   float64 `name:"height" default:"1.3" help:"Initial height."`
	Velocity float64 `name:"velocity" default:"4.0" help:"Initial vertical velocity."`
	Drag     float64 `name:"drag" default:"0.06" help:"Drag coefficient."`
	Gravity  float64 `name:"gravity" default:"9.8" help:"Gravitational acceleration."`
	Rate     float64 `name:"rate" default:"120" help:"Samples per second."`
	Samples  int     `name:"samples" short:"n" default:"240" help:"Number of samples."`
	Noise    float64 `name:"noise" default:"0" help:"Height noise standard deviation."`
	Seed     uint64  `name:"seed" default:"1" help:"Noise random seed."`
}

func (c *SimulateCmd) Run(g *Globals) error {
	if c.Rate <= 0 {
		return errors.Errorf("rate must be > 0, got %g", c.Rate)
	}
	return ball_est.WriteSimulation(os.Stdout, ball_est.SimulationConfig{
		Seed:     estimate.DragSeed{Height: c.Height, Velocity: c.Velocity, Drag: c.Drag},
		Gravity:  c.Gravity,
		Dt:       1 / c.Rate,
		Samples:  c.Samples,
		Noise:    c.Noise,
		RandSeed: c.Seed,
	})
}

type CLI struct {
	Globals

	Live     LiveCmd     `cmd:"" help:"Estimate from UDP observations in real time."`
	Replay   ReplayCmd   `cmd:"" help:"Estimate from a CSV file and print results."`
	Simulate SimulateCmd `cmd:"" help:"Print a simulated drag trajectory as CSV observations."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ballest"),
		kong.Description("Height, velocity and drag estimation for a falling object."),
		kong.UsageOnError(),
		kong.HelpOptions{Compact: true, FlagsLast: true},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		log.Fatal(err)
	}
}
