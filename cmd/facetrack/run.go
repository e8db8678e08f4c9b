package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kevin-mills/kinect-face-tracking/internal/config"
	"github.com/kevin-mills/kinect-face-tracking/internal/log"
	"github.com/kevin-mills/kinect-face-tracking/pkg/debug"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor/bridge"
	"github.com/kevin-mills/kinect-face-tracking/pkg/tracking"
	"github.com/kevin-mills/kinect-face-tracking/pkg/viewmodel"
	"github.com/kevin-mills/kinect-face-tracking/pkg/web"
)

const shutdownTimeout = 5 * time.Second

// runFlags mirrors config.Config; values only apply when the flag is set.
var runFlags struct {
	sensor        string
	sensorURL     string
	width         float64
	height        float64
	port          int
	logLevel      string
	dropout       float64
	window        time.Duration
	responsive    bool
	debug         bool
	debugTracking bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track the nearest person's face and serve the smoothed position",
	Long: `Run opens the sensor, follows the body closest to the camera and
publishes a smoothed "x,y" screen position on /ws/position.

Sensor backends:
  sim     built-in simulator with synthetic people
  dial    connect to a forwarder on the SDK host (--sensor-url)
  listen  wait for a forwarder to connect to /ws/sensor`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.sensor, "sensor", config.DefaultSensor, "sensor backend: sim, dial or listen")
	f.StringVar(&runFlags.sensorURL, "sensor-url", config.DefaultSensorURL, "forwarder websocket URL (dial)")
	f.Float64Var(&runFlags.width, "width", config.DefaultWidth, "display container width in pixels")
	f.Float64Var(&runFlags.height, "height", config.DefaultHeight, "display container height in pixels")
	f.IntVar(&runFlags.port, "port", config.DefaultPort, "HTTP server port")
	f.StringVar(&runFlags.logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	f.Float64Var(&runFlags.dropout, "dropout", 0.05, "simulated face tracking failure rate (sim)")
	f.DurationVar(&runFlags.window, "window", 0, "smoothing window (default 400ms, 150ms with --responsive)")
	f.BoolVar(&runFlags.responsive, "responsive", false, "favor latency over stability in smoothing")
	f.BoolVar(&runFlags.debug, "debug", false, "enable debug logging")
	f.BoolVar(&runFlags.debugTracking, "debug-tracking", false, "log every body and face frame (very verbose)")

	rootCmd.AddCommand(runCmd)
}

// loadConfig layers defaults, FACETRACK_* env vars and explicit flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if err := cfg.LoadEnv(); err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("sensor") {
		cfg.Sensor = runFlags.sensor
	}
	if f.Changed("sensor-url") {
		cfg.SensorURL = runFlags.sensorURL
	}
	if f.Changed("width") {
		cfg.Width = runFlags.width
	}
	if f.Changed("height") {
		cfg.Height = runFlags.height
	}
	if f.Changed("port") {
		cfg.Port = runFlags.port
	}
	if f.Changed("log-level") {
		cfg.LogLevel = runFlags.logLevel
	}
	if f.Changed("dropout") {
		cfg.Dropout = runFlags.dropout
	}
	if f.Changed("window") {
		cfg.Window = runFlags.window
	}
	if f.Changed("responsive") {
		cfg.Responsive = runFlags.responsive
	}
	cfg.Debug = runFlags.debug
	cfg.DebugTracking = runFlags.debugTracking

	return cfg, cfg.Validate()
}

// trackingConfig picks the smoothing profile and applies any window override.
func trackingConfig(cfg config.Config) tracking.Config {
	tcfg := tracking.DefaultConfig()
	if cfg.Responsive {
		tcfg = tracking.ResponsiveConfig()
	}
	if cfg.Window > 0 {
		tcfg.Window = cfg.Window
	}
	return tcfg
}

// newDevice builds the configured sensor. The inbound endpoint is also
// returned so its routes can be mounted on the web server.
func newDevice(cfg config.Config) (sensor.Device, *bridge.Endpoint) {
	switch cfg.Sensor {
	case config.SensorDial:
		return bridge.NewClient(bridge.DefaultClientConfig(cfg.SensorURL)), nil
	case config.SensorListen:
		e := bridge.NewEndpoint()
		return e, e
	default:
		sim := sensor.DefaultSimConfig()
		sim.Dropout = cfg.Dropout
		sim.Seed = time.Now().UnixNano()
		return sensor.NewSimulator(sim), nil
	}
}

func run(ctx context.Context, cfg config.Config) error {
	level := cfg.LogLevel
	if cfg.Debug || cfg.DebugTracking {
		level = "debug"
	}
	log.Init(level)
	debug.Enabled = cfg.Debug || cfg.DebugTracking
	debug.Tracking = cfg.DebugTracking
	logger := log.Component("facetrack")

	tcfg := trackingConfig(cfg)
	if err := tcfg.Validate(); err != nil {
		return err
	}

	device, endpoint := newDevice(cfg)
	tracker := tracking.New(tcfg, device, cfg.Width, cfg.Height)

	dispatcher := viewmodel.NewLoopDispatcher(256)
	vm := viewmodel.New(tcfg, dispatcher)
	vm.Bind(tracker)

	var mounts []web.RouteMounter
	if endpoint != nil {
		mounts = append(mounts, endpoint)
	}
	srv := web.NewServer(web.Config{
		Addr:    cfg.Addr(),
		Version: Version,
		Debug:   cfg.Debug,
	}, tracker, vm, mounts...)

	vm.OnPropertyChanged(func(name string) {
		if name == viewmodel.PropertyText {
			srv.PublishDisplay(vm.Snapshot())
		}
	})

	logger.Info("starting",
		"version", Version,
		"sensor", cfg.Sensor,
		"container", fmt.Sprintf("%vx%v", cfg.Width, cfg.Height),
		"window", tcfg.Window)
	if cfg.Sensor == config.SensorListen {
		logger.Info("waiting for sensor host", "url", fmt.Sprintf("ws://localhost:%d/ws/sensor", cfg.Port))
	}

	go dispatcher.Run(ctx)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	trackErr := make(chan error, 1)
	go func() { trackErr <- tracker.Run(ctx) }()

	var runErr error
	trackerDone := false
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-trackErr:
		trackerDone = true
		if err != nil && ctx.Err() == nil {
			runErr = err
		}
	case err := <-serverErr:
		runErr = fmt.Errorf("web server: %w", err)
	}

	tracker.Close()
	if !trackerDone {
		if err := <-trackErr; err != nil && runErr == nil && ctx.Err() == nil {
			runErr = err
		}
	}
	vm.Close()
	dispatcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}

	if runErr != nil {
		if errors.Is(runErr, sensor.ErrDeviceUnavailable) {
			logger.Error("sensor could not be opened", "error", runErr)
		} else {
			logger.Error("tracker stopped", "error", runErr)
		}
		return runErr
	}
	logger.Info("goodbye")
	return nil
}
