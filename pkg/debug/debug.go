// Package debug provides global debug logging flags
package debug

import "github.com/kevin-mills/kinect-face-tracking/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Tracking controls whether per-frame tracking logs are shown (bodies, faces, samples).
// Use --debug-tracking to enable these very verbose logs
var Tracking bool

// Log emits a debug record only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Debug(msg, args...)
	}
}

// TrackLog emits a debug record only if tracking debug mode is enabled
func TrackLog(msg string, args ...any) {
	if Tracking {
		log.Debug(msg, args...)
	}
}
