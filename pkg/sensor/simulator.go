package sensor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"
)

// SimConfig holds the tunables for the simulated sensor.
type SimConfig struct {
	People        int           // people wandering in front of the sensor
	BodyCount     int           // body slots per frame
	FrameInterval time.Duration // ~30fps on real hardware
	Dropout       float64       // probability a face frame is untracked
	Churn         float64       // probability per frame that a person leaves or enters
	Seed          int64
	Unavailable   bool // Open fails, as with an unplugged sensor
}

// DefaultSimConfig returns a two-person scene at 30 frames per second.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		People:        2,
		BodyCount:     DefaultBodyCount,
		FrameInterval: 33 * time.Millisecond,
		Dropout:       0.05,
		Churn:         0.002,
		Seed:          1,
	}
}

type simPerson struct {
	id      uint64
	visible bool
	home    r3.Vector
	phase   float64
}

// Simulator is an in-process Device producing synthetic frames.
type Simulator struct {
	cfg SimConfig

	bodies chan BodyFrame
	faces  chan FaceFrame

	faceID atomic.Uint64
	drops  atomic.Uint64

	mu      sync.Mutex
	rng     *rand.Rand
	people  []*simPerson
	nextID  uint64
	opened  bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time

	closeOnce sync.Once
}

// NewSimulator creates a simulated sensor.
func NewSimulator(cfg SimConfig) *Simulator {
	if cfg.BodyCount <= 0 {
		cfg.BodyCount = DefaultBodyCount
	}
	if cfg.People > cfg.BodyCount {
		cfg.People = cfg.BodyCount
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 33 * time.Millisecond
	}

	s := &Simulator{
		cfg:    cfg,
		bodies: make(chan BodyFrame, 8),
		faces:  make(chan FaceFrame, 8),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		nextID: 72057594037927936, // SDK identities are large opaque handles
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.People; i++ {
		s.people = append(s.people, s.newPerson())
	}
	return s
}

func (s *Simulator) newPerson() *simPerson {
	s.nextID++
	return &simPerson{
		id:      s.nextID,
		visible: true,
		home: r3.Vector{
			X: s.rng.Float64()*2 - 1,
			Y: -0.3 + s.rng.Float64()*0.2,
			Z: 1 + s.rng.Float64()*3,
		},
		phase: s.rng.Float64() * 2 * math.Pi,
	}
}

// Open starts frame generation.
func (s *Simulator) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrDeviceClosed
	}
	if s.cfg.Unavailable {
		return ErrDeviceUnavailable
	}
	if s.opened {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.opened = true
	s.started = time.Now()
	go s.run(runCtx)
	return nil
}

// Close stops frame generation and closes both channels.
func (s *Simulator) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		cancel := s.cancel
		opened := s.opened
		s.mu.Unlock()

		if opened {
			cancel()
			<-s.done
		}
		close(s.bodies)
		close(s.faces)
	})
	return nil
}

// BodyFrames delivers synthetic body frames.
func (s *Simulator) BodyFrames() <-chan BodyFrame { return s.bodies }

// FaceFrames delivers synthetic face frames.
func (s *Simulator) FaceFrames() <-chan FaceFrame { return s.faces }

// BodyCount returns the number of body slots per frame.
func (s *Simulator) BodyCount() int { return s.cfg.BodyCount }

// SetFaceTrackingID selects which person the face frames describe.
func (s *Simulator) SetFaceTrackingID(id uint64) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrDeviceClosed
	}
	s.faceID.Store(id)
	return nil
}

// Dropped returns how many frames were discarded because the consumer lagged.
func (s *Simulator) Dropped() uint64 {
	return s.drops.Load()
}

func (s *Simulator) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			body, face := s.step(now)
			s.send(ctx, body, face)
		}
	}
}

func (s *Simulator) send(ctx context.Context, body BodyFrame, face FaceFrame) {
	select {
	case <-ctx.Done():
		return
	case s.bodies <- body:
	default:
		s.drops.Add(1)
	}
	select {
	case <-ctx.Done():
	case s.faces <- face:
	default:
		s.drops.Add(1)
	}
}

// step advances the scene to now and renders one body and one face frame.
func (s *Simulator) step(now time.Time) (BodyFrame, FaceFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := now.Sub(s.started).Seconds()

	for i, p := range s.people {
		if s.rng.Float64() < s.cfg.Churn {
			if p.visible {
				p.visible = false
			} else {
				s.people[i] = s.newPerson()
			}
		}
	}

	bodies := make([]Body, s.cfg.BodyCount)
	for i, p := range s.people {
		if !p.visible {
			continue
		}
		bodies[i] = Body{
			Tracked:    true,
			TrackingID: p.id,
			SpineBase: r3.Vector{
				X: p.home.X + 0.2*math.Sin(0.3*t+p.phase),
				Y: p.home.Y,
				Z: p.home.Z + 0.1*math.Cos(0.2*t+p.phase),
			},
		}
	}

	face := FaceFrame{
		TrackingID: s.faceID.Load(),
		Timestamp:  now,
	}
	if p := s.find(face.TrackingID); p != nil && s.rng.Float64() >= s.cfg.Dropout {
		face.Tracked = true
		face.Orientation = headPose(t, p.phase)
	}

	return BodyFrame{Bodies: bodies, Timestamp: now}, face
}

func (s *Simulator) find(id uint64) *simPerson {
	if id == 0 {
		return nil
	}
	for _, p := range s.people {
		if p.visible && p.id == id {
			return p
		}
	}
	return nil
}

// headPose is a slow nod (x) and shake (y).
func headPose(t, phase float64) Orientation {
	x := 0.12 * math.Sin(0.7*t+phase)
	y := 0.25 * math.Sin(0.4*t+phase/2)
	return Orientation{
		X: x,
		Y: y,
		Z: 0,
		W: math.Sqrt(math.Max(0, 1-x*x-y*y)),
	}
}
