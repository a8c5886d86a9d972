package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gobwas/ws"

	"github.com/omochice/chat-session/internal/chat"
)

// Dialer opens client WebSocket connections.
type Dialer struct {
	// Timeout bounds the TCP connect and the upgrade handshake. Zero means no limit.
	Timeout time.Duration
}

// NewDialer creates a Dialer with the given handshake timeout.
func NewDialer(timeout time.Duration) *Dialer {
	return &Dialer{Timeout: timeout}
}

// Dial performs the upgrade request against url. header is sent in addition
// to the standard upgrade headers (Host, Connection, Upgrade,
// Sec-WebSocket-Key, Sec-WebSocket-Version: 13).
func (d *Dialer) Dial(ctx context.Context, url string, header http.Header) (chat.Conn, error) {
	dialer := ws.Dialer{
		Timeout: d.Timeout,
	}
	if len(header) > 0 {
		dialer.Header = ws.HandshakeHeaderHTTP(header)
	}

	conn, br, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	if br == nil {
		return NewConn(conn, nil), nil
	}
	return NewConn(conn, br), nil
}
