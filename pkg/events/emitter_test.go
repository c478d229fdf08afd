package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDeliversToAllSinks(t *testing.T) {
	e := NewEmitter(nil)
	a := e.Subscribe("a", 4)
	b := e.Subscribe("b", 4)

	e.Emit(EventStepStarted, StepStartedPayload{RunID: "r1", StepIndex: 1})

	for _, sink := range []*Sink{a, b} {
		select {
		case ev := <-sink.Events():
			assert.Equal(t, EventStepStarted, ev.Type)
			assert.False(t, ev.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatalf("sink %s did not receive event", sink.Name())
		}
	}
}

func TestEmitPreservesOrder(t *testing.T) {
	e := NewEmitter(nil)
	s := e.Subscribe("ordered", 16)

	types := []string{EventStepStarted, EventStreamToken, EventMessage, EventStepCompleted}
	for _, tp := range types {
		e.Emit(tp, nil)
	}

	for _, want := range types {
		ev := <-s.Events()
		assert.Equal(t, want, ev.Type)
	}
}

func TestEmitBlocksOnFullBufferUntilDrain(t *testing.T) {
	e := NewEmitter(nil)
	s := e.Subscribe("slow", 1)

	e.Emit(EventStepStarted, nil) // fills the buffer

	emitted := make(chan struct{})
	go func() {
		e.Emit(EventStepCompleted, nil)
		close(emitted)
	}()

	select {
	case <-emitted:
		t.Fatal("emit should block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	<-s.Events() // drain one
	select {
	case <-emitted:
	case <-time.After(time.Second):
		t.Fatal("emit did not unblock after drain")
	}
}

func TestClosedSinkDoesNotBlockEmit(t *testing.T) {
	e := NewEmitter(nil)
	s := e.Subscribe("gone", 1)
	live := e.Subscribe("live", 4)

	e.Emit(EventStepStarted, nil) // fills the small buffer
	s.Close()

	done := make(chan struct{})
	go func() {
		e.Emit(EventStepCompleted, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a closed sink")
	}

	assert.Equal(t, 1, e.SubscriberCount())
	<-live.Events()
	<-live.Events()
}

func TestSinkCloseIsIdempotentAndEndsRange(t *testing.T) {
	e := NewEmitter(nil)
	s := e.Subscribe("x", 1)
	s.Close()
	s.Close()

	_, ok := <-s.Events()
	assert.False(t, ok)
}

func TestEmitterClose(t *testing.T) {
	e := NewEmitter(nil)
	s := e.Subscribe("x", 1)
	e.Close()

	_, ok := <-s.Events()
	require.False(t, ok)

	// Post-close operations are safe no-ops.
	e.Emit(EventStepStarted, nil)
	late := e.Subscribe("late", 1)
	_, ok = <-late.Events()
	assert.False(t, ok)
}
