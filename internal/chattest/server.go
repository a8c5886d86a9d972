// Package chattest provides an in-process WebSocket peer that plays the chat
// server in tests.
package chattest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omochice/chat-session/pkg/protocol"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server accepts WebSocket upgrades and hands each connection to the test as
// a Peer. The handler goroutine stays alive until the peer hangs up or the
// server is closed.
type Server struct {
	srv   *httptest.Server
	peers chan *Peer
	quit  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	reject int
}

// NewServer starts a Server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		peers: make(chan *Peer, 8),
		quit:  make(chan struct{}),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// URL returns the ws:// URL of path on this server.
func (s *Server) URL(path string) string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + path
}

// SetReject makes subsequent upgrades fail with status (0 accepts again).
func (s *Server) SetReject(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = status
}

// Accept waits for the next client connection.
func (s *Server) Accept(t testing.TB) *Peer {
	t.Helper()
	select {
	case p := <-s.peers:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for client connection")
		return nil
	}
}

// Close stops the server and releases every handler.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.quit)
		s.srv.Close()
	})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.reject
	s.mu.Unlock()
	if reject != 0 {
		http.Error(w, http.StatusText(reject), reject)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	p := &Peer{
		conn:   conn,
		Header: r.Header.Clone(),
		Path:   r.URL.Path,
		done:   make(chan struct{}),
	}
	select {
	case s.peers <- p:
	case <-s.quit:
		return
	}

	select {
	case <-p.done:
	case <-s.quit:
	}
}

// Peer is the server side of one client connection.
type Peer struct {
	conn *websocket.Conn
	once sync.Once
	done chan struct{}

	// Header is the handshake request header sent by the client.
	Header http.Header
	// Path is the request path the client dialed.
	Path string
}

// SendEnvelope writes e as a JSON text frame.
func (p *Peer) SendEnvelope(e protocol.Envelope) error {
	data, err := protocol.Encode(e)
	if err != nil {
		return err
	}
	return p.SendText(string(data))
}

// SendText writes a raw text frame.
func (p *Peer) SendText(text string) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Ping writes a ping control frame.
func (p *Peer) Ping() error {
	return p.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
}

// SendClose writes a close control frame without dropping the TCP connection.
func (p *Peer) SendClose() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// Read waits for the next data frame from the client. A close frame from the
// client is returned as a *websocket.CloseError.
func (p *Peer) Read() (string, error) {
	_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := p.conn.ReadMessage()
	return string(data), err
}

// Hangup drops the connection without a close handshake.
func (p *Peer) Hangup() {
	p.once.Do(func() {
		_ = p.conn.UnderlyingConn().Close()
		close(p.done)
	})
}
