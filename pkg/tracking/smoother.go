package tracking

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

type timedSample struct {
	at time.Time
	PixelSample
}

// Smoother averages the pixel samples of a trailing time window.
//
// Frame callbacks append with Add while a ticker goroutine (Run) drains an
// average every Interval. The buffer is shared under a mutex.
type Smoother struct {
	window   time.Duration
	interval time.Duration
	clock    Clock

	mu     sync.Mutex
	buf    []timedSample
	xs, ys []float64

	added   atomic.Uint64
	emitted atomic.Uint64
}

// NewSmoother creates a smoother. A nil clock means wall time.
func NewSmoother(cfg Config, clock Clock) *Smoother {
	if clock == nil {
		clock = RealClock{}
	}
	return &Smoother{
		window:   cfg.Window,
		interval: cfg.Interval,
		clock:    clock,
	}
}

// Add records a pixel sample at the current time.
func (s *Smoother) Add(p PixelSample) {
	now := s.clock.Now()

	s.mu.Lock()
	s.buf = append(s.buf, timedSample{at: now, PixelSample: p})
	s.prune(now)
	s.mu.Unlock()

	s.added.Add(1)
}

// Average returns the mean of the samples in (now-window, now].
// An empty window yields a zero Position with Samples == 0.
func (s *Smoother) Average() Position {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(now)

	s.xs = s.xs[:0]
	s.ys = s.ys[:0]
	for _, ts := range s.buf {
		if ts.at.After(now) {
			continue
		}
		s.xs = append(s.xs, ts.X)
		s.ys = append(s.ys, ts.Y)
	}

	pos := Position{Timestamp: now, Samples: len(s.xs)}
	if len(s.xs) > 0 {
		pos.X = stat.Mean(s.xs, nil)
		pos.Y = stat.Mean(s.ys, nil)
	}
	return pos
}

// prune drops samples at or before now-window. Caller holds mu.
func (s *Smoother) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.buf) && !s.buf[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		s.buf = append(s.buf[:0], s.buf[i:]...)
	}
}

// Run emits an average every interval until ctx is cancelled.
func (s *Smoother) Run(ctx context.Context, emit func(Position)) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			pos := s.Average()
			s.emitted.Add(1)
			emit(pos)
		}
	}
}

// Len returns the number of buffered samples.
func (s *Smoother) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Added returns the total number of samples added.
func (s *Smoother) Added() uint64 { return s.added.Load() }

// Emitted returns the total number of averages emitted by Run.
func (s *Smoother) Emitted() uint64 { return s.emitted.Load() }
