package session

import (
	"context"
	"fmt"

	"github.com/omochice/chat-session/internal/chat"
)

// Login runs the browser login handshake on its own unauthenticated socket.
// The server sends exactly two text frames: the login URL, emitted as
// open_login_url, and then the session payload, emitted as session. Both are
// forwarded verbatim. Login returns once the session arrives; on failure it
// emits login_disconnect with the reason and returns the error.
//
// Login never touches the chat connection and may run alongside it.
func (m *Manager) Login(ctx context.Context) error {
	err := m.login(ctx)
	if err != nil {
		m.log.Error("Login failed", "url", m.cfg.LoginURL, "error", err)
		m.emit(chat.EventLoginDisconnect, err.Error())
	}
	return err
}

func (m *Manager) login(ctx context.Context) error {
	conn, err := m.dialer.Dial(ctx, m.cfg.LoginURL, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	loginURL, err := readLoginFrame(ctx, conn)
	if err != nil {
		return fmt.Errorf("waiting for login url: %w", err)
	}
	m.log.Info("Received login url")
	m.emit(chat.EventOpenLoginURL, string(loginURL))

	session, err := readLoginFrame(ctx, conn)
	if err != nil {
		return fmt.Errorf("waiting for session: %w", err)
	}
	m.log.Info("Login complete")
	m.emit(chat.EventSession, string(session))
	return nil
}

// readLoginFrame returns the payload of the next text frame, skipping pings.
func readLoginFrame(ctx context.Context, r chat.FrameReader) ([]byte, error) {
	for {
		frame, err := r.ReadFrame()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		switch frame.Kind {
		case chat.FrameText:
			return frame.Payload, nil
		case chat.FrameClose:
			return nil, fmt.Errorf("%w: socket closed by server", ErrLoginIncomplete)
		}
	}
}

func (m *Manager) emit(event string, payload any) {
	if err := m.sink.Emit(event, payload); err != nil {
		m.log.Error("Failed to deliver event", "event", event, "error", err)
	}
}
