package sensor

import "context"

// Device is a depth/skeletal sensor with push-based frame delivery.
//
// Frames arrive on the returned channels from the device's own goroutines.
// Both channels are closed when the device is closed or the underlying
// connection to the SDK is lost.
type Device interface {
	// Open acquires the sensor. Failing to open is fatal for the caller.
	Open(ctx context.Context) error

	// Close releases the sensor. It is safe to call more than once.
	Close() error

	// BodyFrames delivers body frames.
	BodyFrames() <-chan BodyFrame

	// FaceFrames delivers face frames for the identity set with SetFaceTrackingID.
	FaceFrames() <-chan FaceFrame

	// SetFaceTrackingID re-points face alignment at a tracking identity.
	// Zero means no identity; the SDK then reports untracked face frames.
	SetFaceTrackingID(id uint64) error

	// BodyCount is the number of body slots per frame.
	BodyCount() int
}
