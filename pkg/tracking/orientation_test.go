package tracking

import (
	"testing"

	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

func face(id uint64, tracked bool, x, y float64) sensor.FaceFrame {
	return sensor.FaceFrame{
		TrackingID:  id,
		Tracked:     tracked,
		Orientation: sensor.Orientation{X: x, Y: y, W: 1},
	}
}

func TestOrientationAdapter_TrackedFrameRefreshes(t *testing.T) {
	a := NewOrientationAdapter()
	a.Retarget(9)

	got := a.Next(face(9, true, 0.05, -0.1))
	if got != (OrientationSample{X: 0.05, Y: -0.1}) {
		t.Errorf("Next() = %+v", got)
	}
	if !a.HasSample() {
		t.Error("HasSample() should be true after a tracked frame")
	}
}

func TestOrientationAdapter_CarriesForwardOnDropout(t *testing.T) {
	a := NewOrientationAdapter()
	a.Retarget(9)

	a.Next(face(9, true, 0.02, 0.03))

	// Lost frames carry garbage orientation that must be ignored
	for i := 0; i < 5; i++ {
		got := a.Next(face(9, false, 0.9, 0.9))
		if got != (OrientationSample{X: 0.02, Y: 0.03}) {
			t.Fatalf("dropout frame %d: Next() = %+v, want last known", i, got)
		}
	}

	got := a.Next(face(9, true, -0.04, 0.01))
	if got != (OrientationSample{X: -0.04, Y: 0.01}) {
		t.Errorf("after recovery Next() = %+v", got)
	}
	if a.Refreshes() != 2 {
		t.Errorf("Refreshes() = %d, want 2", a.Refreshes())
	}
}

func TestOrientationAdapter_ZeroBeforeFirstTrackedFrame(t *testing.T) {
	a := NewOrientationAdapter()

	got := a.Next(face(0, false, 0.5, 0.5))
	if got != (OrientationSample{}) {
		t.Errorf("Next() before any tracked frame = %+v, want zero", got)
	}
	if a.HasSample() {
		t.Error("HasSample() should be false")
	}
}

func TestOrientationAdapter_IgnoresStaleIdentity(t *testing.T) {
	a := NewOrientationAdapter()
	a.Retarget(1)
	a.Next(face(1, true, 0.01, 0.01))

	a.Retarget(2)
	// A frame still in flight for identity 1
	got := a.Next(face(1, true, 0.08, 0.08))
	if got != (OrientationSample{X: 0.01, Y: 0.01}) {
		t.Errorf("stale frame should not refresh, got %+v", got)
	}

	got = a.Next(face(2, true, 0.07, -0.07))
	if got != (OrientationSample{X: 0.07, Y: -0.07}) {
		t.Errorf("frame for new target should refresh, got %+v", got)
	}
}

func TestOrientationAdapter_Retarget(t *testing.T) {
	a := NewOrientationAdapter()

	if !a.Retarget(5) {
		t.Error("Retarget(5) should report a change")
	}
	if a.Retarget(5) {
		t.Error("Retarget(5) again should report no change")
	}
	if a.Target() != 5 {
		t.Errorf("Target() = %d, want 5", a.Target())
	}
	if !a.Retarget(NoTrackingID) {
		t.Error("Retarget(0) should report a change")
	}
}
