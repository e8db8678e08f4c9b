package config

import (
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("default container = %vx%v, want 800x600", cfg.Width, cfg.Height)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FACETRACK_PORT", "9090")
	t.Setenv("FACETRACK_SENSOR", "dial")
	t.Setenv("FACETRACK_SENSOR_URL", "ws://10.0.0.5:8765/sensor")
	t.Setenv("FACETRACK_WIDTH", "1920")
	t.Setenv("FACETRACK_HEIGHT", "1080")
	t.Setenv("FACETRACK_LOG_LEVEL", "debug")

	cfg := Default()
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Sensor != SensorDial {
		t.Errorf("Sensor = %q, want dial", cfg.Sensor)
	}
	if cfg.SensorURL != "ws://10.0.0.5:8765/sensor" {
		t.Errorf("SensorURL = %q", cfg.SensorURL)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("container = %vx%v, want 1920x1080", cfg.Width, cfg.Height)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadEnv_Smoothing(t *testing.T) {
	t.Setenv("FACETRACK_WINDOW", "250ms")
	t.Setenv("FACETRACK_RESPONSIVE", "true")
	t.Setenv("FACETRACK_DROPOUT", "0.2")

	cfg := Default()
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if cfg.Window != 250*time.Millisecond {
		t.Errorf("Window = %v, want 250ms", cfg.Window)
	}
	if !cfg.Responsive {
		t.Error("Responsive = false, want true")
	}
	if cfg.Dropout != 0.2 {
		t.Errorf("Dropout = %v, want 0.2", cfg.Dropout)
	}
}

func TestLoadEnv_BadValues(t *testing.T) {
	for _, key := range []string{"FACETRACK_WINDOW", "FACETRACK_RESPONSIVE", "FACETRACK_DROPOUT"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "soon")
			cfg := Default()
			if err := cfg.LoadEnv(); err == nil {
				t.Errorf("expected error for %s=soon", key)
			}
		})
	}
}

func TestLoadEnv_BadPort(t *testing.T) {
	t.Setenv("FACETRACK_PORT", "eighty")

	cfg := Default()
	if err := cfg.LoadEnv(); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"listen", func(c *Config) { c.Sensor = SensorListen }, false},
		{"unknown sensor", func(c *Config) { c.Sensor = "kinect" }, true},
		{"zero width", func(c *Config) { c.Width = 0 }, true},
		{"negative height", func(c *Config) { c.Height = -1 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"dropout above one", func(c *Config) { c.Dropout = 1.5 }, true},
		{"window override", func(c *Config) { c.Window = 200 * time.Millisecond }, false},
		{"negative window", func(c *Config) { c.Window = -time.Second }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	cfg.Port = 1234
	if got := cfg.Addr(); got != ":1234" {
		t.Errorf("Addr() = %q, want :1234", got)
	}
}
