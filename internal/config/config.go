// Package config provides configuration helpers for facetrack commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Sensor backends.
const (
	SensorSim    = "sim"    // in-process simulated sensor
	SensorDial   = "dial"   // connect out to a remote SDK host
	SensorListen = "listen" // accept a remote SDK host on /ws/sensor
)

// Default configuration.
const (
	DefaultPort      = 8080
	DefaultSensor    = SensorSim
	DefaultSensorURL = "ws://localhost:8765/sensor"
	DefaultWidth     = 800
	DefaultHeight    = 600
	DefaultLogLevel  = "info"
)

// Config holds all configuration for the facetrack service.
// Flag parsing is done in cmd/facetrack; this struct is data only.
type Config struct {
	// Port is the HTTP/websocket port for the dashboard API.
	Port int

	// Sensor selects the device backend: sim, dial or listen.
	Sensor string

	// SensorURL is the websocket URL of the SDK host (dial mode only).
	SensorURL string

	// Width and Height are the display container size in pixels.
	Width  float64
	Height float64

	// Dropout is the simulated face-tracking failure rate (sim mode only).
	Dropout float64

	// Window overrides the smoothing window; zero keeps the pipeline default.
	Window time.Duration

	// Responsive selects the short-window tracking profile.
	Responsive bool

	// Logging.
	LogLevel      string
	Debug         bool
	DebugTracking bool
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Port:      DefaultPort,
		Sensor:    DefaultSensor,
		SensorURL: DefaultSensorURL,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Dropout:   0.05,
		LogLevel:  DefaultLogLevel,
	}
}

// LoadEnv applies FACETRACK_* environment overrides.
// Call this before flag parsing so flags win.
func (c *Config) LoadEnv() error {
	if v := os.Getenv("FACETRACK_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FACETRACK_PORT: %w", err)
		}
		c.Port = p
	}
	if v := os.Getenv("FACETRACK_SENSOR"); v != "" {
		c.Sensor = v
	}
	if v := os.Getenv("FACETRACK_SENSOR_URL"); v != "" {
		c.SensorURL = v
	}
	if v := os.Getenv("FACETRACK_WIDTH"); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FACETRACK_WIDTH: %w", err)
		}
		c.Width = w
	}
	if v := os.Getenv("FACETRACK_HEIGHT"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FACETRACK_HEIGHT: %w", err)
		}
		c.Height = h
	}
	if v := os.Getenv("FACETRACK_DROPOUT"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FACETRACK_DROPOUT: %w", err)
		}
		c.Dropout = d
	}
	if v := os.Getenv("FACETRACK_WINDOW"); v != "" {
		w, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FACETRACK_WINDOW: %w", err)
		}
		c.Window = w
	}
	if v := os.Getenv("FACETRACK_RESPONSIVE"); v != "" {
		r, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FACETRACK_RESPONSIVE: %w", err)
		}
		c.Responsive = r
	}
	if v := os.Getenv("FACETRACK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Sensor {
	case SensorSim, SensorDial, SensorListen:
	default:
		return fmt.Errorf("unknown sensor backend %q (want sim, dial or listen)", c.Sensor)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("container size must be positive, got %vx%v", c.Width, c.Height)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Dropout < 0 || c.Dropout > 1 {
		return fmt.Errorf("dropout must be in [0,1], got %v", c.Dropout)
	}
	if c.Window < 0 {
		return fmt.Errorf("window must not be negative, got %v", c.Window)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
