package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin-mills/kinect-face-tracking/internal/config"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor/bridge"
	"github.com/kevin-mills/kinect-face-tracking/pkg/tracking"
)

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("FACETRACK_PORT", "9000")
	t.Setenv("FACETRACK_WIDTH", "1920")

	require.NoError(t, runCmd.Flags().Set("width", "1280"))
	t.Cleanup(func() {
		runCmd.Flags().Set("width", "800")
		runCmd.Flags().Lookup("width").Changed = false
	})

	cfg, err := loadConfig(runCmd)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port, "env overrides default")
	assert.Equal(t, 1280.0, cfg.Width, "flag overrides env")
	assert.Equal(t, float64(config.DefaultHeight), cfg.Height)
	assert.Equal(t, config.SensorSim, cfg.Sensor)
}

func TestLoadConfigWindowPrecedence(t *testing.T) {
	t.Setenv("FACETRACK_WINDOW", "300ms")
	t.Setenv("FACETRACK_RESPONSIVE", "true")

	cfg, err := loadConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, cfg.Window, "env overrides default")
	assert.True(t, cfg.Responsive)

	require.NoError(t, runCmd.Flags().Set("window", "120ms"))
	require.NoError(t, runCmd.Flags().Set("responsive", "false"))
	t.Cleanup(func() {
		runCmd.Flags().Set("window", "0s")
		runCmd.Flags().Set("responsive", "false")
		runCmd.Flags().Lookup("window").Changed = false
		runCmd.Flags().Lookup("responsive").Changed = false
	})

	cfg, err = loadConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, 120*time.Millisecond, cfg.Window, "flag overrides env")
	assert.False(t, cfg.Responsive)
}

func TestTrackingConfig(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, tracking.DefaultConfig(), trackingConfig(cfg))

	cfg.Responsive = true
	assert.Equal(t, tracking.ResponsiveConfig(), trackingConfig(cfg))
	assert.Equal(t, 150*time.Millisecond, trackingConfig(cfg).Window)

	cfg.Window = 500 * time.Millisecond
	tcfg := trackingConfig(cfg)
	assert.Equal(t, 500*time.Millisecond, tcfg.Window)
	assert.NoError(t, tcfg.Validate())
}

func TestLoadConfigRejectsUnknownSensor(t *testing.T) {
	t.Setenv("FACETRACK_SENSOR", "usb")

	_, err := loadConfig(runCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usb")
}

func TestNewDevice(t *testing.T) {
	cfg := config.Default()

	dev, endpoint := newDevice(cfg)
	assert.IsType(t, &sensor.Simulator{}, dev)
	assert.Nil(t, endpoint)

	cfg.Sensor = config.SensorDial
	dev, endpoint = newDevice(cfg)
	assert.IsType(t, &bridge.Client{}, dev)
	assert.Nil(t, endpoint)

	cfg.Sensor = config.SensorListen
	dev, endpoint = newDevice(cfg)
	require.NotNil(t, endpoint)
	assert.Same(t, endpoint, dev)
	endpoint.Close()
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.True(t, strings.HasPrefix(out.String(), "facetrack "+Version))
}
