package viewmodel

import (
	"context"
	"sync"
	"sync/atomic"
)

// Dispatcher runs callbacks on the goroutine that owns the display.
type Dispatcher interface {
	Dispatch(fn func())
}

// ImmediateDispatcher runs callbacks inline on the caller's goroutine.
type ImmediateDispatcher struct{}

// Dispatch runs fn now.
func (ImmediateDispatcher) Dispatch(fn func()) { fn() }

// LoopDispatcher queues callbacks for a single owning goroutine, started with Run.
// Callbacks run in the order they were dispatched.
type LoopDispatcher struct {
	queue   chan func()
	done    chan struct{}
	stop    sync.Once
	dropped atomic.Uint64
}

// NewLoopDispatcher creates a dispatcher holding up to size pending callbacks.
func NewLoopDispatcher(size int) *LoopDispatcher {
	if size <= 0 {
		size = 256
	}
	return &LoopDispatcher{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Dispatch queues fn without blocking. When the queue is full, or the loop
// has stopped, fn is discarded.
func (d *LoopDispatcher) Dispatch(fn func()) {
	select {
	case <-d.done:
		d.dropped.Add(1)
		return
	default:
	}
	select {
	case d.queue <- fn:
	default:
		d.dropped.Add(1)
	}
}

// Run executes queued callbacks until ctx is cancelled or Stop is called.
func (d *LoopDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.Stop()
			return
		case <-d.done:
			return
		case fn := <-d.queue:
			fn()
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (d *LoopDispatcher) Stop() {
	d.stop.Do(func() { close(d.done) })
}

// Dropped returns how many callbacks were discarded.
func (d *LoopDispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
