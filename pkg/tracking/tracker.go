// Package tracking turns sensor body and face frames into smoothed screen coordinates.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kevin-mills/kinect-face-tracking/internal/log"
	"github.com/kevin-mills/kinect-face-tracking/pkg/debug"
	"github.com/kevin-mills/kinect-face-tracking/pkg/sensor"
)

// Stats contains pipeline counters
type Stats struct {
	BodyFrames        uint64 `json:"body_frames"`
	FaceFrames        uint64 `json:"face_frames"`
	TrackedFaceFrames uint64 `json:"tracked_face_frames"`
	IdentitySwitches  uint64 `json:"identity_switches"`
	PositionsEmitted  uint64 `json:"positions_emitted"`
	TrackingID        uint64 `json:"tracking_id"`
	BufferedSamples   int    `json:"buffered_samples"`
}

// Tracker runs the face tracking pipeline for one sensor
type Tracker struct {
	config Config
	device sensor.Device
	logger *slog.Logger

	// Pipeline stages
	adapter    *OrientationAdapter
	normalizer *Normalizer
	smoother   *Smoother

	// Selected body; written only by the body-frame goroutine
	currentID atomic.Uint64

	// Observers
	mu        sync.RWMutex
	observers map[int]func(Position)
	nextObs   int
	last      Position

	// Stats
	bodyFrames   atomic.Uint64
	faceFrames   atomic.Uint64
	trackedFaces atomic.Uint64
	switches     atomic.Uint64

	running   atomic.Bool
	cancelMu  sync.Mutex
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// New creates a tracker for a device and a fixed container size
func New(config Config, device sensor.Device, width, height float64) *Tracker {
	return &Tracker{
		config:     config,
		device:     device,
		logger:     log.Component("tracker"),
		adapter:    NewOrientationAdapter(),
		normalizer: NewNormalizer(width, height, config),
		smoother:   NewSmoother(config, nil),
		observers:  make(map[int]func(Position)),
	}
}

// SetClock replaces the smoother clock. Call before Run.
func (t *Tracker) SetClock(clock Clock) {
	t.smoother = NewSmoother(t.config, clock)
}

// Subscribe registers an observer for averaged positions.
// Observers are called from the smoother goroutine and must not block.
func (t *Tracker) Subscribe(fn func(Position)) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

// Run opens the device and processes frames until ctx is cancelled or the
// device stops delivering. A device that cannot be opened is returned as
// an error wrapping sensor.ErrDeviceUnavailable.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.config.Validate(); err != nil {
		return err
	}
	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer t.running.Store(false)
	defer t.Close()

	if err := t.device.Open(ctx); err != nil {
		if errors.Is(err, sensor.ErrDeviceUnavailable) {
			return fmt.Errorf("open sensor: %w", err)
		}
		return fmt.Errorf("open sensor: %w: %v", sensor.ErrDeviceUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancelMu.Lock()
	t.cancel = cancel
	t.cancelMu.Unlock()
	defer cancel()

	t.logger.Info("face tracker started",
		"body_slots", t.device.BodyCount(),
		"window", t.config.Window,
		"interval", t.config.Interval)

	var lost atomic.Bool
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		if !t.consumeBodies(runCtx) {
			lost.Store(true)
		}
		cancel()
	}()
	go func() {
		defer wg.Done()
		if !t.consumeFaces(runCtx) {
			lost.Store(true)
		}
		cancel()
	}()
	go func() {
		defer wg.Done()
		t.smoother.Run(runCtx, t.publish)
	}()

	wg.Wait()

	if lost.Load() && ctx.Err() == nil {
		t.logger.Warn("sensor stream ended")
		return sensor.ErrDeviceClosed
	}
	t.logger.Info("face tracker stopped")
	return nil
}

// consumeBodies returns false if the device closed the stream.
func (t *Tracker) consumeBodies(ctx context.Context) bool {
	frames := t.device.BodyFrames()
	for {
		select {
		case <-ctx.Done():
			return true
		case frame, ok := <-frames:
			if !ok {
				return false
			}
			t.HandleBodyFrame(frame)
		}
	}
}

// consumeFaces returns false if the device closed the stream.
func (t *Tracker) consumeFaces(ctx context.Context) bool {
	frames := t.device.FaceFrames()
	for {
		select {
		case <-ctx.Done():
			return true
		case frame, ok := <-frames:
			if !ok {
				return false
			}
			t.HandleFaceFrame(frame)
		}
	}
}

// HandleBodyFrame reselects the tracked body and re-points face tracking if it changed
func (t *Tracker) HandleBodyFrame(frame sensor.BodyFrame) {
	t.bodyFrames.Add(1)

	prev := t.currentID.Load()
	next := SelectTrackedBody(frame.Bodies, prev)
	if next != prev {
		t.currentID.Store(next)
		t.switches.Add(1)
		if next == NoTrackingID {
			t.logger.Info("lost tracked body", "previous", prev)
		} else {
			t.logger.Info("tracking body", "tracking_id", next, "previous", prev)
		}
	}

	if t.adapter.Retarget(next) {
		if err := t.device.SetFaceTrackingID(next); err != nil {
			t.logger.Warn("failed to re-point face tracking", "tracking_id", next, "error", err)
		}
	}

	debug.TrackLog("body frame", "tracked", frame.TrackedCount(), "tracking_id", next)
}

// HandleFaceFrame pushes one face frame through orientation, normalization and the window buffer
func (t *Tracker) HandleFaceFrame(frame sensor.FaceFrame) {
	t.faceFrames.Add(1)
	if frame.Tracked {
		t.trackedFaces.Add(1)
	}

	sample := t.adapter.Next(frame)
	px := t.normalizer.Normalize(sample)
	t.smoother.Add(px)

	if debug.Tracking {
		_, pitch, yaw := frame.Orientation.Degrees()
		debug.TrackLog("face frame",
			"tracked", frame.Tracked,
			"pitch_deg", pitch, "yaw_deg", yaw,
			"orientation_x", sample.X, "orientation_y", sample.Y,
			"px", px.X, "py", px.Y)
	}
}

func (t *Tracker) publish(pos Position) {
	t.mu.Lock()
	t.last = pos
	observers := make([]func(Position), 0, len(t.observers))
	for _, fn := range t.observers {
		observers = append(observers, fn)
	}
	t.mu.Unlock()

	for _, fn := range observers {
		fn(pos)
	}
}

// CurrentTrackingID returns the selected body identity, 0 when none
func (t *Tracker) CurrentTrackingID() uint64 {
	return t.currentID.Load()
}

// Last returns the most recently emitted position
func (t *Tracker) Last() Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// IsRunning returns whether Run is active
func (t *Tracker) IsRunning() bool {
	return t.running.Load()
}

// Stats returns pipeline counters
func (t *Tracker) Stats() Stats {
	return Stats{
		BodyFrames:        t.bodyFrames.Load(),
		FaceFrames:        t.faceFrames.Load(),
		TrackedFaceFrames: t.trackedFaces.Load(),
		IdentitySwitches:  t.switches.Load(),
		PositionsEmitted:  t.smoother.Emitted(),
		TrackingID:        t.currentID.Load(),
		BufferedSamples:   t.smoother.Len(),
	}
}

// Close stops the pipeline and releases the device. Safe to call more than once.
func (t *Tracker) Close() error {
	t.closeOnce.Do(func() {
		t.cancelMu.Lock()
		if t.cancel != nil {
			t.cancel()
		}
		t.cancelMu.Unlock()
		t.closeErr = t.device.Close()
	})
	return t.closeErr
}
