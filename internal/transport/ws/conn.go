// Package ws provides the WebSocket client transport built on gobwas/ws.
package ws

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/chat-session/internal/chat"
)

const closeWait = time.Second

// Conn adapts a client-side gobwas connection to chat.Conn.
// ReadFrame must be called from a single goroutine; WriteText and Close are
// safe for concurrent use.
type Conn struct {
	conn   net.Conn
	reader *wsutil.Reader

	writeMu   sync.Mutex
	closed    bool
	closeSent bool

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an upgraded connection. r is the reader returned by the
// handshake (it may hold buffered frames); when nil, conn is read directly.
func NewConn(conn net.Conn, r io.Reader) *Conn {
	if r == nil {
		r = conn
	}
	c := &Conn{conn: conn}
	c.reader = &wsutil.Reader{
		Source: r,
		State:  ws.StateClientSide,
		// Invalid UTF-8 is left to the decoder.
		CheckUTF8: false,
		// Control frames interleaved with a fragmented message.
		OnIntermediate: func(hdr ws.Header, rd io.Reader) error {
			payload, err := io.ReadAll(rd)
			if err != nil {
				return err
			}
			return c.handleControl(hdr.OpCode, payload)
		},
	}
	return c
}

// ReadFrame implements chat.FrameReader.
func (c *Conn) ReadFrame() (chat.Frame, error) {
	for {
		hdr, err := c.reader.NextFrame()
		if err != nil {
			return chat.Frame{}, err
		}

		switch hdr.OpCode {
		case ws.OpText, ws.OpBinary:
			data, err := io.ReadAll(c.reader)
			if err != nil {
				return chat.Frame{}, err
			}
			return chat.Frame{Kind: chat.FrameText, Payload: data}, nil

		case ws.OpPing:
			payload, err := io.ReadAll(c.reader)
			if err != nil {
				return chat.Frame{}, err
			}
			if err := c.handleControl(ws.OpPing, payload); err != nil {
				return chat.Frame{}, err
			}
			return chat.Frame{Kind: chat.FramePing}, nil

		case ws.OpClose:
			payload, err := io.ReadAll(c.reader)
			if err != nil {
				return chat.Frame{}, err
			}
			_ = c.handleControl(ws.OpClose, payload)
			return chat.Frame{Kind: chat.FrameClose}, nil

		default:
			// Pongs and stray continuation frames.
			if err := c.reader.Discard(); err != nil {
				return chat.Frame{}, err
			}
		}
	}
}

func (c *Conn) handleControl(op ws.OpCode, payload []byte) error {
	switch op {
	case ws.OpPing:
		return c.writeFrame(context.Background(), ws.OpPong, payload)
	case ws.OpClose:
		code, _ := ws.ParseCloseFrameData(payload)
		if code == 0 {
			code = ws.StatusNormalClosure
		}
		return c.writeFrame(context.Background(), ws.OpClose, ws.NewCloseFrameBody(code, ""))
	default:
		return nil
	}
}

// WriteText implements chat.FrameWriter.
func (c *Conn) WriteText(ctx context.Context, data []byte) error {
	return c.writeFrame(ctx, ws.OpText, data)
}

func (c *Conn) writeFrame(ctx context.Context, op ws.OpCode, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return net.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	if op == ws.OpClose {
		c.closeSent = true
	}
	if err := wsutil.WriteClientMessage(c.conn, op, data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
	return nil
}

// Close implements chat.FrameWriter. It sends a close frame on a best-effort
// basis, unless one was already written in reply to the peer, and closes the
// socket; later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		sent := c.closeSent
		c.writeMu.Unlock()

		if !sent {
			ctx, cancel := context.WithTimeout(context.Background(), closeWait)
			defer cancel()
			_ = c.writeFrame(ctx, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
		}

		c.writeMu.Lock()
		c.closed = true
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
