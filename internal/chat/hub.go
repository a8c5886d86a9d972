package chat

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
)

// Event names emitted to the sink.
const (
	EventSession         = "session"
	EventConnectedUsers  = "connected_users"
	EventMessage         = "message"
	EventOpenLoginURL    = "open_login_url"
	EventDisconnected    = "disconnected"
	EventLoginDisconnect = "login_disconnect"
)

// ErrNoListener is returned by Hub.Emit when nobody listens to the event.
var ErrNoListener = errors.New("no listener for event")

// Sink receives named events with their payload.
type Sink interface {
	Emit(event string, payload any) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event string, payload any) error

// Emit implements Sink.
func (f SinkFunc) Emit(event string, payload any) error {
	return f(event, payload)
}

// Listener handles one event payload.
type Listener func(payload any)

type listener struct {
	id int
	fn Listener
}

// Hub fans events out to registered listeners, in registration order.
type Hub struct {
	listeners map[string][]listener
	nextID    int
	mu        sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[string][]listener),
	}
}

// Listen registers fn for event and returns a function that unregisters it.
func (h *Hub) Listen(event string, fn Listener) (unlisten func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.listeners[event] = append(h.listeners[event], listener{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.listeners[event] = lo.Reject(h.listeners[event], func(l listener, _ int) bool {
			return l.id == id
		})
		if len(h.listeners[event]) == 0 {
			delete(h.listeners, event)
		}
	}
}

// Emit implements Sink. Listeners run synchronously on the caller's goroutine
// and outside the hub lock, so they may call Listen.
func (h *Hub) Emit(event string, payload any) error {
	h.mu.RLock()
	snapshot := lo.Map(h.listeners[event], func(l listener, _ int) Listener { return l.fn })
	h.mu.RUnlock()

	if len(snapshot) == 0 {
		return fmt.Errorf("%w: %s", ErrNoListener, event)
	}
	for _, fn := range snapshot {
		fn(payload)
	}
	return nil
}

// ListenerCount returns the number of listeners registered for event.
func (h *Hub) ListenerCount(event string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[event])
}
