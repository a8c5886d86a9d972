// Package session manages the single chat connection: connect with a bearer
// token, send chat lines, relay inbound envelopes to the event sink, and
// disconnect. It also drives the separate login socket.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/omochice/chat-session/internal/chat"
)

// State is the lifecycle state of the chat connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Dialer opens a WebSocket connection. header carries extra handshake headers.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (chat.Conn, error)
}

// Config holds the endpoints and timeouts used by the Manager.
type Config struct {
	ChatURL      string
	LoginURL     string
	WriteTimeout time.Duration
}

// run is one live socket: its handle plus the read loop draining it.
type run struct {
	handle *Handle
	done   chan struct{}
}

// Manager owns the connection slot. All methods are safe for concurrent use.
//
// The slot lock (mu) is held only to read or swap the current run; network
// writes happen outside it and are serialised by the transport writer.
// Connect and Disconnect are additionally serialised by lifecycle.
type Manager struct {
	cfg    Config
	dialer Dialer
	sink   chat.Sink
	log    *slog.Logger

	lifecycle sync.Mutex

	mu      sync.Mutex
	state   State
	current *run
}

// New creates a Manager in the idle state.
func New(cfg Config, dialer Dialer, sink chat.Sink, log *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		dialer: dialer,
		sink:   sink,
		log:    log,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected returns whether a connection handle is installed.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Connect opens the chat socket authenticated with token. The token must
// already be validated. An existing connection is closed, and its read loop
// awaited, before the new one is dialed.
func (m *Manager) Connect(ctx context.Context, token string) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	old := m.current
	m.current = nil
	m.state = StateConnecting
	m.mu.Unlock()

	if old != nil {
		m.log.Info("Replacing existing connection")
		old.handle.close()
		<-old.done
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, err := m.dialer.Dial(ctx, m.cfg.ChatURL, header)
	if err != nil {
		m.setState(StateIdle)
		m.log.Error("Failed to connect", "url", m.cfg.ChatURL, "error", err)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	r := &run{
		handle: newHandle(conn, m.cfg.WriteTimeout, m.log),
		done:   make(chan struct{}),
	}
	loop := newReadLoop(conn, m.sink, m.log)

	m.mu.Lock()
	m.current = r
	m.state = StateConnected
	m.mu.Unlock()

	go func() {
		defer close(r.done)
		m.finish(r, loop.run())
	}()

	m.log.Info("Connected", "url", m.cfg.ChatURL, "remote", conn.RemoteAddr())
	return nil
}

// Send writes message to the chat socket as raw text.
func (m *Manager) Send(ctx context.Context, message string) error {
	m.mu.Lock()
	r := m.current
	m.mu.Unlock()

	if r == nil {
		return ErrNotConnected
	}
	return r.handle.SendText(ctx, message)
}

// Disconnect sends the disconnect notice and closes the socket. The slot is
// empty afterwards even when the notice fails; that failure is returned.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	r := m.current
	if r == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	m.current = nil
	m.state = StateDisconnecting
	m.mu.Unlock()

	err := r.handle.Disconnect(ctx)

	select {
	case <-r.done:
	case <-ctx.Done():
		m.log.Warn("Read loop still running after disconnect", "error", ctx.Err())
	}

	m.setState(StateIdle)
	m.log.Info("Disconnected")
	return err
}

// finish runs when a read loop returns. If r is still the installed run the
// server ended the connection: the slot is cleared and the sink told why.
func (m *Manager) finish(r *run, res loopResult) {
	m.mu.Lock()
	current := m.current == r
	if current {
		m.current = nil
		m.state = StateIdle
	}
	m.mu.Unlock()

	r.handle.close()
	if !current {
		return
	}

	reason := res.Reason
	if res.Err != nil {
		reason = res.Err.Error()
		m.log.Warn("Connection lost", "error", res.Err)
	} else {
		m.log.Info("Connection closed by server", "reason", reason)
	}
	m.emit(chat.EventDisconnected, reason)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
