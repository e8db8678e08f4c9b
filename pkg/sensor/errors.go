package sensor

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrDeviceUnavailable is returned when the sensor cannot be opened.
	ErrDeviceUnavailable = errors.New("sensor: device unavailable")

	// ErrDeviceClosed is returned when using a device after Close.
	ErrDeviceClosed = errors.New("sensor: device closed")

	// ErrNotOpen is returned when using a device before Open.
	ErrNotOpen = errors.New("sensor: device not open")
)
