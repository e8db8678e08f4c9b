// Package viewmodel exposes the smoothed face position as display properties.
//
// The tracker publishes positions from its own goroutine. A ViewModel holds the
// offset display copy and notifies listeners through a Dispatcher, so the
// goroutine that owns the screen is the only one that sees property changes.
package viewmodel

import (
	"fmt"
	"sync"

	"github.com/kevin-mills/kinect-face-tracking/pkg/tracking"
)

// Property names reported to listeners, in notification order.
const (
	PropertyX    = "X"
	PropertyY    = "Y"
	PropertyText = "Text"
)

// DisplayPosition is a tracked position placed on screen.
type DisplayPosition struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Text    string  `json:"text"`
	Samples int     `json:"samples"`
}

// Source publishes tracker positions.
type Source interface {
	Subscribe(fn func(tracking.Position)) (unsubscribe func())
}

// Label formats a display position as "x,y", truncating toward zero.
func Label(x, y float64) string {
	return fmt.Sprintf("%d,%d", int(x), int(y))
}

// ViewModel binds tracker positions to display properties.
type ViewModel struct {
	offsetX, offsetY float64
	dispatcher       Dispatcher

	mu          sync.RWMutex
	current     DisplayPosition
	listeners   []func(name string)
	unsubscribe func()
	closed      bool
}

// New creates a view model that shifts every position by the display offset.
// A nil dispatcher runs notifications inline.
func New(cfg tracking.Config, dispatcher Dispatcher) *ViewModel {
	if dispatcher == nil {
		dispatcher = ImmediateDispatcher{}
	}
	return &ViewModel{
		offsetX:    cfg.DisplayOffsetX,
		offsetY:    cfg.DisplayOffsetY,
		dispatcher: dispatcher,
		current:    DisplayPosition{Text: Label(0, 0)},
	}
}

// Bind subscribes to src. Only one source may be bound; binding again
// replaces the previous subscription.
func (vm *ViewModel) Bind(src Source) {
	unsubscribe := src.Subscribe(vm.Update)

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		unsubscribe()
		return
	}
	prev := vm.unsubscribe
	vm.unsubscribe = unsubscribe
	vm.mu.Unlock()

	if prev != nil {
		prev()
	}
}

// OnPropertyChanged registers a listener. It is called with "X", "Y" and
// then "Text" for every update, on the dispatcher's goroutine.
func (vm *ViewModel) OnPropertyChanged(fn func(name string)) {
	vm.mu.Lock()
	vm.listeners = append(vm.listeners, fn)
	vm.mu.Unlock()
}

// Update applies one tracker position.
func (vm *ViewModel) Update(pos tracking.Position) {
	x := pos.X + vm.offsetX
	y := pos.Y + vm.offsetY
	next := DisplayPosition{
		X:       x,
		Y:       y,
		Text:    Label(x, y),
		Samples: pos.Samples,
	}

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	vm.current = next
	listeners := make([]func(string), len(vm.listeners))
	copy(listeners, vm.listeners)
	vm.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	vm.dispatcher.Dispatch(func() {
		for _, name := range [...]string{PropertyX, PropertyY, PropertyText} {
			for _, fn := range listeners {
				fn(name)
			}
		}
	})
}

// Snapshot returns the current display position.
func (vm *ViewModel) Snapshot() DisplayPosition {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.current
}

// X returns the display X coordinate.
func (vm *ViewModel) X() float64 { return vm.Snapshot().X }

// Y returns the display Y coordinate.
func (vm *ViewModel) Y() float64 { return vm.Snapshot().Y }

// Text returns the "x,y" label.
func (vm *ViewModel) Text() string { return vm.Snapshot().Text }

// Close drops the source subscription and stops notifications.
// Safe to call more than once.
func (vm *ViewModel) Close() error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return nil
	}
	vm.closed = true
	unsubscribe := vm.unsubscribe
	vm.unsubscribe = nil
	vm.listeners = nil
	vm.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}
