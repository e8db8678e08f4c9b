// Package sensor defines the boundary to the depth camera SDK.
//
// Skeletal tracking and face alignment happen inside the vendor SDK. This
// package only describes the frames the SDK hands out and the lifecycle of
// a device that produces them.
package sensor

import (
	"time"

	"github.com/golang/geo/r3"
)

// DefaultBodyCount is the number of body slots a sensor reports per frame.
const DefaultBodyCount = 6

// Body is one skeletal body slot in a body frame.
type Body struct {
	Tracked    bool
	TrackingID uint64
	SpineBase  r3.Vector // camera-space position in meters
}

// BodyFrame is a snapshot of all body slots the sensor currently observes.
type BodyFrame struct {
	Bodies    []Body
	Timestamp time.Time
}

// Orientation is the face orientation quaternion from a face alignment.
type Orientation struct {
	X, Y, Z, W float64
}

// FaceFrame is one high-definition face frame for a tracking identity.
type FaceFrame struct {
	TrackingID  uint64
	Tracked     bool        // false when the SDK lost the face this frame
	Orientation Orientation // only meaningful when Tracked
	Timestamp   time.Time
}

// TrackedCount returns how many bodies in the frame are tracked.
func (f BodyFrame) TrackedCount() int {
	n := 0
	for _, b := range f.Bodies {
		if b.Tracked {
			n++
		}
	}
	return n
}
