package events

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultSinkBuffer is the per-subscriber channel capacity used when the
// caller passes a non-positive buffer size.
const DefaultSinkBuffer = 256

// Sink is one subscriber's view of the stream. Drain Events until it is
// closed; call Close to unsubscribe.
type Sink struct {
	name    string
	ch      chan Event
	done    chan struct{}
	emitter *Emitter
	once    sync.Once
}

// Events returns the subscriber's buffered event channel.
func (s *Sink) Events() <-chan Event { return s.ch }

// Name returns the subscriber name given at Subscribe time.
func (s *Sink) Name() string { return s.name }

// Close unsubscribes the sink. Pending buffered events are discarded; the
// event channel is closed so range loops terminate.
func (s *Sink) Close() {
	s.once.Do(func() {
		close(s.done)
		s.emitter.remove(s)
	})
}

// Emitter fans events out to registered sinks. Delivery is synchronous
// relative to the caller: a full sink buffer blocks Emit until the sink
// drains or closes. Events are never dropped for a live sink.
type Emitter struct {
	mu     sync.Mutex
	sinks  []*Sink
	closed bool
	logger *slog.Logger
}

// NewEmitter creates an emitter. logger may be nil.
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger}
}

// Subscribe registers a named sink with its own buffer.
func (e *Emitter) Subscribe(name string, buffer int) *Sink {
	if buffer <= 0 {
		buffer = DefaultSinkBuffer
	}
	s := &Sink{
		name:    name,
		ch:      make(chan Event, buffer),
		done:    make(chan struct{}),
		emitter: e,
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(s.ch)
		return s
	}
	e.sinks = append(e.sinks, s)
	return s
}

// Emit delivers the event to every sink in subscription order, blocking on
// full buffers. A sink that closed mid-delivery is skipped.
func (e *Emitter) Emit(eventType string, data any) {
	ev := Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()}

	e.mu.Lock()
	sinks := make([]*Sink, len(e.sinks))
	copy(sinks, e.sinks)
	e.mu.Unlock()

	for _, s := range sinks {
		select {
		case <-s.done:
		case s.ch <- ev:
		}
	}
}

// SubscriberCount returns the number of live sinks.
func (e *Emitter) SubscriberCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sinks)
}

// Close unsubscribes all sinks and closes their channels. Further Emit
// calls are no-ops; further Subscribe calls return closed sinks.
func (e *Emitter) Close() {
	e.mu.Lock()
	sinks := e.sinks
	e.sinks = nil
	e.closed = true
	e.mu.Unlock()

	for _, s := range sinks {
		s.once.Do(func() { close(s.done) })
		close(s.ch)
	}
}

func (e *Emitter) remove(s *Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.sinks {
		if existing == s {
			e.sinks = append(e.sinks[:i], e.sinks[i+1:]...)
			close(s.ch)
			return
		}
	}
}
