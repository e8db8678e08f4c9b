package tracking

import (
	"fmt"
	"time"
)

// Config holds all tunable parameters for the face tracking pipeline
type Config struct {
	// Normalization
	XLimit float64 // clamp bound on raw orientation x (nod)
	YLimit float64 // clamp bound on raw orientation y (shake)

	// Smoothing
	Window   time.Duration // trailing window averaged per output sample
	Interval time.Duration // how often an averaged sample is emitted

	// Display
	DisplayOffsetX float64 // bias applied by the view layer for centering
	DisplayOffsetY float64
}

// DefaultConfig returns the configuration the demo canvas was tuned with
func DefaultConfig() Config {
	return Config{
		// Empirical head-rotation range
		XLimit: 0.1,
		YLimit: 0.2,

		// ~400ms of latency in exchange for killing frame-to-frame jitter
		Window:   400 * time.Millisecond,
		Interval: 10 * time.Millisecond,

		DisplayOffsetX: -30,
		DisplayOffsetY: -30,
	}
}

// ResponsiveConfig trades more jitter for less latency
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Window = 150 * time.Millisecond
	return cfg
}

// Validate reports configuration values the pipeline cannot run with
func (c Config) Validate() error {
	if c.XLimit <= 0 || c.YLimit <= 0 {
		return fmt.Errorf("tracking: limits must be positive (x=%v, y=%v)", c.XLimit, c.YLimit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("tracking: window must be positive, got %v", c.Window)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("tracking: interval must be positive, got %v", c.Interval)
	}
	return nil
}
