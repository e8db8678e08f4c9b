package tracking

import (
	"math"

	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

// NoTrackingID means no body is selected.
const NoTrackingID uint64 = 0

// SelectTrackedBody picks which body to follow for this frame.
//
// The current identity is kept while that body is still tracked, so a
// second person walking closer does not steal focus. Otherwise the tracked
// body nearest the sensor wins. With nothing tracked it returns NoTrackingID.
//
// Equidistant bodies resolve to whichever comes first in the slice; callers
// must not rely on that order.
func SelectTrackedBody(bodies []sensor.Body, currentID uint64) uint64 {
	if _, ok := FindBody(bodies, currentID); ok {
		return currentID
	}
	if closest, ok := ClosestBody(bodies); ok {
		return closest.TrackingID
	}
	return NoTrackingID
}

// FindBody returns the tracked body with the given identity.
func FindBody(bodies []sensor.Body, id uint64) (sensor.Body, bool) {
	if id == NoTrackingID {
		return sensor.Body{}, false
	}
	for _, b := range bodies {
		if b.Tracked && b.TrackingID == id {
			return b, true
		}
	}
	return sensor.Body{}, false
}

// ClosestBody returns the tracked body whose spine base is nearest the sensor origin.
func ClosestBody(bodies []sensor.Body) (sensor.Body, bool) {
	var best sensor.Body
	found := false
	bestDist := math.MaxFloat64

	for _, b := range bodies {
		if !b.Tracked {
			continue
		}
		d := b.SpineBase.Norm()
		if !found || d < bestDist {
			best = b
			bestDist = d
			found = true
		}
	}
	return best, found
}
