package tracking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

// fakeDevice is a scripted sensor.Device
type fakeDevice struct {
	bodies chan sensor.BodyFrame
	faces  chan sensor.FaceFrame

	openErr error

	mu        sync.Mutex
	targets   []uint64
	closes    atomic.Int32
	closeOnce sync.Once
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		bodies: make(chan sensor.BodyFrame, 16),
		faces:  make(chan sensor.FaceFrame, 16),
	}
}

func (d *fakeDevice) Open(ctx context.Context) error { return d.openErr }

func (d *fakeDevice) Close() error {
	d.closes.Add(1)
	return nil
}

// endStreams simulates the SDK connection dropping
func (d *fakeDevice) endStreams() {
	d.closeOnce.Do(func() {
		close(d.bodies)
		close(d.faces)
	})
}

func (d *fakeDevice) BodyFrames() <-chan sensor.BodyFrame { return d.bodies }
func (d *fakeDevice) FaceFrames() <-chan sensor.FaceFrame { return d.faces }
func (d *fakeDevice) BodyCount() int                      { return sensor.DefaultBodyCount }

func (d *fakeDevice) SetFaceTrackingID(id uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = append(d.targets, id)
	return nil
}

func (d *fakeDevice) Targets() []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint64(nil), d.targets...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTracker_HandleBodyFrame_RetargetsOnChange(t *testing.T) {
	dev := newFakeDevice()
	tr := New(DefaultConfig(), dev, 800, 600)

	tr.HandleBodyFrame(sensor.BodyFrame{Bodies: []sensor.Body{body(1, 0, 0, 3), body(2, 0, 0, 1)}})
	tr.HandleBodyFrame(sensor.BodyFrame{Bodies: []sensor.Body{body(1, 0, 0, 3), body(2, 0, 0, 1)}})
	tr.HandleBodyFrame(sensor.BodyFrame{Bodies: []sensor.Body{body(1, 0, 0, 3)}})
	tr.HandleBodyFrame(sensor.BodyFrame{})

	want := []uint64{2, 1, 0}
	got := dev.Targets()
	if len(got) != len(want) {
		t.Fatalf("SetFaceTrackingID calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %d, want %d", i, got[i], want[i])
		}
	}

	stats := tr.Stats()
	if stats.BodyFrames != 4 {
		t.Errorf("BodyFrames = %d, want 4", stats.BodyFrames)
	}
	if stats.IdentitySwitches != 3 {
		t.Errorf("IdentitySwitches = %d, want 3", stats.IdentitySwitches)
	}
	if tr.CurrentTrackingID() != NoTrackingID {
		t.Errorf("CurrentTrackingID() = %d, want 0", tr.CurrentTrackingID())
	}
}

func TestTracker_RunPublishesAveragedPosition(t *testing.T) {
	dev := newFakeDevice()
	tr := New(DefaultConfig(), dev, 800, 600)

	var received atomic.Int32
	var last atomic.Value
	unsubscribe := tr.Subscribe(func(p Position) {
		if p.Samples > 0 {
			last.Store(p)
			received.Add(1)
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- tr.Run(ctx) }()

	dev.bodies <- sensor.BodyFrame{Bodies: []sensor.Body{body(77, 0, 0, 2)}}
	waitFor(t, "identity selection", func() bool { return tr.CurrentTrackingID() == 77 })

	for i := 0; i < 5; i++ {
		dev.faces <- face(77, true, 0, 0)
	}
	waitFor(t, "averaged position", func() bool { return received.Load() > 0 })

	p := last.Load().(Position)
	if p.X != 400 || p.Y != 300 {
		t.Errorf("position = (%v,%v), want (400,300)", p.X, p.Y)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if dev.closes.Load() != 1 {
		t.Errorf("device closed %d times, want 1", dev.closes.Load())
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if dev.closes.Load() != 1 {
		t.Errorf("device closed %d times after extra Close, want 1", dev.closes.Load())
	}
}

func TestTracker_EmitsZeroWithoutFaces(t *testing.T) {
	dev := newFakeDevice()
	tr := New(DefaultConfig(), dev, 800, 600)

	zeros := make(chan Position, 1)
	tr.Subscribe(func(p Position) {
		select {
		case zeros <- p:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	select {
	case p := <-zeros:
		if p.X != 0 || p.Y != 0 || p.Samples != 0 {
			t.Errorf("position = %+v, want zero default", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no position emitted while idle")
	}
}

func TestTracker_OpenFailureIsFatal(t *testing.T) {
	dev := newFakeDevice()
	dev.openErr = errors.New("usb controller not found")
	tr := New(DefaultConfig(), dev, 800, 600)

	err := tr.Run(context.Background())
	if !errors.Is(err, sensor.ErrDeviceUnavailable) {
		t.Errorf("Run() error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestTracker_StreamLoss(t *testing.T) {
	dev := newFakeDevice()
	tr := New(DefaultConfig(), dev, 800, 600)

	errc := make(chan error, 1)
	go func() { errc <- tr.Run(context.Background()) }()

	waitFor(t, "tracker start", tr.IsRunning)
	dev.endStreams()

	select {
	case err := <-errc:
		if !errors.Is(err, sensor.ErrDeviceClosed) {
			t.Errorf("Run() error = %v, want ErrDeviceClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stream loss")
	}
}

func TestTracker_RunTwice(t *testing.T) {
	dev := newFakeDevice()
	tr := New(DefaultConfig(), dev, 800, 600)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)
	waitFor(t, "tracker start", tr.IsRunning)

	if err := tr.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestTracker_Unsubscribe(t *testing.T) {
	dev := newFakeDevice()
	tr := New(DefaultConfig(), dev, 800, 600)

	var calls atomic.Int32
	unsubscribe := tr.Subscribe(func(Position) { calls.Add(1) })
	tr.publish(Position{})
	unsubscribe()
	tr.publish(Position{})

	if calls.Load() != 1 {
		t.Errorf("observer called %d times, want 1", calls.Load())
	}
}

func TestTracker_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Window = 0
	tr := New(cfg, newFakeDevice(), 800, 600)

	if err := tr.Run(context.Background()); err == nil {
		t.Error("Run() should reject a zero window")
	}
}
