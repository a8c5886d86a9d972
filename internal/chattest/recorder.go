package chattest

import (
	"sync"
	"testing"
	"time"
)

// Event is one recorded sink emission.
type Event struct {
	Name    string
	Payload any
}

// Recorder is a chat.Sink that records every event.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
	err    error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan Event, 64)}
}

// Fail makes later Emit calls record the event and then return err.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Emit implements chat.Sink.
func (r *Recorder) Emit(name string, payload any) error {
	e := Event{Name: name, Payload: payload}
	r.mu.Lock()
	r.events = append(r.events, e)
	err := r.err
	r.mu.Unlock()

	select {
	case r.ch <- e:
	default:
	}
	return err
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Next waits for the next event.
func (r *Recorder) Next(t testing.TB) Event {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

// NoEvent fails the test if an event arrives within d.
func (r *Recorder) NoEvent(t testing.TB, d time.Duration) {
	t.Helper()
	select {
	case e := <-r.ch:
		t.Fatalf("unexpected event %q: %v", e.Name, e.Payload)
	case <-time.After(d):
	}
}
