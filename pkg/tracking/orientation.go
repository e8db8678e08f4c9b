package tracking

import (
	"sync"

	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

// OrientationAdapter turns face frames into orientation samples.
//
// A frame where the face was lost yields the last known sample unchanged,
// so brief dropouts do not snap the output back to the origin.
type OrientationAdapter struct {
	mu        sync.Mutex
	target    uint64
	last      sensor.Orientation
	hasLast   bool
	refreshes uint64
}

// NewOrientationAdapter creates an adapter with no target identity.
func NewOrientationAdapter() *OrientationAdapter {
	return &OrientationAdapter{}
}

// Retarget points the adapter at a new tracking identity.
// It returns true if the target changed.
func (a *OrientationAdapter) Retarget(id uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.target == id {
		return false
	}
	a.target = id
	return true
}

// Target returns the identity the adapter is following.
func (a *OrientationAdapter) Target() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.target
}

// Next consumes one face frame and returns the orientation to use for it.
func (a *OrientationAdapter) Next(frame sensor.FaceFrame) OrientationSample {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Frames still in flight for a previous identity don't refresh the alignment
	stale := frame.TrackingID != NoTrackingID && frame.TrackingID != a.target
	if frame.Tracked && !stale {
		a.last = frame.Orientation
		a.hasLast = true
		a.refreshes++
	}

	return OrientationSample{X: a.last.X, Y: a.last.Y}
}

// HasSample reports whether any tracked frame has been seen.
func (a *OrientationAdapter) HasSample() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasLast
}

// Refreshes returns how many frames refreshed the alignment.
func (a *OrientationAdapter) Refreshes() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshes
}
