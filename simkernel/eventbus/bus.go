// Package eventbus implements the kernel's synchronous publish path to
// local listeners. Unlike a typical fan-out bus, delivery here is
// deliberately synchronous and ordered: Emit must return only after every
// listener has observed the event, in registration order, because
// downstream callers (SimulatorApi.Send) rely on "the event is visible to
// local listeners before Send returns".
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/eugenway/perpsim/simkernel"
)

// Bus is a list of listeners invoked synchronously, in registration
// order, on whatever goroutine calls Emit. There is no buffering and no
// filtering. Safe to call on a nil receiver (Emit and Len become no-ops),
// mirroring the nil-safety the teacher's channel-based bus offered.
type Bus struct {
	mu        sync.Mutex
	listeners []simkernel.EventListener
	logger    *slog.Logger
}

// New creates an empty Bus. A nil logger is replaced with a discard
// logger so callers never need a guard check.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return &Bus{logger: logger}
}

// Subscribe registers a listener. Listeners are invoked in the order they
// were subscribed.
func (b *Bus) Subscribe(l simkernel.EventListener) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Emit publishes e to every listener, synchronously, in registration
// order. A listener that panics is isolated: the panic is recovered and
// logged, and fan-out continues with the remaining listeners so one bad
// listener cannot halt the run.
func (b *Bus) Emit(e simkernel.Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	listeners := make([]simkernel.EventListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		b.dispatch(l, e)
	}
}

func (b *Bus) dispatch(l simkernel.EventListener, e simkernel.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked", "recovered", r, "event_type", e.Kind)
		}
	}()
	l.OnEvent(e)
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
