package ws_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gobwas/ws"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/chat-session/internal/chat"
	"github.com/omochice/chat-session/internal/transport/ws"
)

var upgrader = websocket.Upgrader{}

func newServer(t *testing.T, handler func(c *websocket.Conn, r *http.Request)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		handler(c, r)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string, header http.Header) chat.Conn {
	t.Helper()
	conn, err := ws.NewDialer(time.Second).Dial(context.Background(), url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestDialer_SendsHeaders(t *testing.T) {
	got := make(chan http.Header, 1)
	url := newServer(t, func(c *websocket.Conn, r *http.Request) {
		got <- r.Header.Clone()
		_, _, _ = c.ReadMessage()
	})

	dial(t, url, http.Header{"Authorization": {"Bearer secret"}})

	select {
	case h := <-got:
		assert.Equal(t, "Bearer secret", h.Get("Authorization"))
		assert.Equal(t, "13", h.Get("Sec-WebSocket-Version"))
		assert.NotEmpty(t, h.Get("Sec-WebSocket-Key"))
		assert.Equal(t, "websocket", strings.ToLower(h.Get("Upgrade")))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for handshake")
	}
}

func TestDialer_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := ws.NewDialer(time.Second).Dial(context.Background(), "ws"+strings.TrimPrefix(server.URL, "http"), nil)
	assert.Error(t, err)
}

func TestDialer_Unreachable(t *testing.T) {
	_, err := ws.NewDialer(time.Second).Dial(context.Background(), "ws://127.0.0.1:1/ws", nil)
	assert.Error(t, err)
}

func TestConn_ReadText(t *testing.T) {
	url := newServer(t, func(c *websocket.Conn, _ *http.Request) {
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"type":"Disconnect","data":"x"}`))
		_, _, _ = c.ReadMessage()
	})
	conn := dial(t, url, nil)

	frame, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, chat.FrameText, frame.Kind)
	assert.Equal(t, `{"type":"Disconnect","data":"x"}`, string(frame.Payload))
}

func TestConn_PingThenText(t *testing.T) {
	url := newServer(t, func(c *websocket.Conn, _ *http.Request) {
		_ = c.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
		_ = c.WriteMessage(websocket.TextMessage, []byte("after ping"))
		_, _, _ = c.ReadMessage()
	})
	conn := dial(t, url, nil)

	frame, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, chat.FramePing, frame.Kind)

	frame, err = conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, chat.FrameText, frame.Kind)
	assert.Equal(t, "after ping", string(frame.Payload))
}

func TestConn_PingIsAnswered(t *testing.T) {
	pong := make(chan string, 1)
	url := newServer(t, func(c *websocket.Conn, _ *http.Request) {
		c.SetPongHandler(func(data string) error {
			pong <- data
			return nil
		})
		_ = c.WriteControl(websocket.PingMessage, []byte("are you there"), time.Now().Add(time.Second))
		_, _, _ = c.ReadMessage()
	})
	conn := dial(t, url, nil)

	frame, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, chat.FramePing, frame.Kind)

	select {
	case data := <-pong:
		assert.Equal(t, "are you there", data)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pong")
	}
}

func TestConn_ReadClose(t *testing.T) {
	url := newServer(t, func(c *websocket.Conn, _ *http.Request) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_, _, _ = c.ReadMessage()
	})
	conn := dial(t, url, nil)

	frame, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, chat.FrameClose, frame.Kind)
}

func TestConn_ReadInvalidUTF8(t *testing.T) {
	url := newServer(t, func(c *websocket.Conn, _ *http.Request) {
		_ = c.WriteMessage(websocket.TextMessage, []byte("bad \xff\xfe"))
		_ = c.WriteMessage(websocket.TextMessage, []byte("good"))
		_, _, _ = c.ReadMessage()
	})
	conn := dial(t, url, nil)

	frame, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, chat.Frame{Kind: chat.FrameText, Payload: []byte("bad \xff\xfe")}, frame)

	frame, err = conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "good", string(frame.Payload))
}

func TestConn_CloseAfterPeerClose(t *testing.T) {
	client, server := net.Pipe()
	conn := ws.NewConn(client, nil)

	ops := make(chan gws.OpCode, 4)
	go func() {
		defer close(ops)
		body := gws.NewCloseFrameBody(gws.StatusGoingAway, "bye")
		if err := gws.WriteFrame(server, gws.NewCloseFrame(body)); err != nil {
			return
		}
		for {
			f, err := gws.ReadFrame(server)
			if err != nil {
				return
			}
			ops <- f.Header.OpCode
		}
	}()

	frame, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, chat.FrameClose, frame.Kind)
	require.NoError(t, conn.Close())

	var got []gws.OpCode
	for op := range ops {
		got = append(got, op)
	}
	assert.Equal(t, []gws.OpCode{gws.OpClose}, got, "close frame is sent once")
}

func TestConn_WriteText(t *testing.T) {
	received := make(chan []byte, 1)
	url := newServer(t, func(c *websocket.Conn, _ *http.Request) {
		mt, data, err := c.ReadMessage()
		if err != nil || mt != websocket.TextMessage {
			return
		}
		received <- data
	})
	conn := dial(t, url, nil)

	require.NoError(t, conn.WriteText(context.Background(), []byte("hello")))

	select {
	case data := <-received:
		assert.Equal(t, "hello", string(data))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestConn_WriteText_CanceledContext(t *testing.T) {
	url := newServer(t, func(c *websocket.Conn, _ *http.Request) {
		_, _, _ = c.ReadMessage()
	})
	conn := dial(t, url, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, conn.WriteText(ctx, []byte("hello")), context.Canceled)
}

func TestConn_Close(t *testing.T) {
	closed := make(chan int, 1)
	url := newServer(t, func(c *websocket.Conn, _ *http.Request) {
		_, _, err := c.ReadMessage()
		var ce *websocket.CloseError
		if assert.ErrorAs(t, err, &ce) {
			closed <- ce.Code
		}
	})
	conn := dial(t, url, nil)

	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close(), "second Close returns the first result")
	assert.Error(t, conn.WriteText(context.Background(), []byte("late")))

	_, err := conn.ReadFrame()
	assert.Error(t, err)

	select {
	case code := <-closed:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close frame")
	}
}

func TestConn_RemoteAddr(t *testing.T) {
	url := newServer(t, func(c *websocket.Conn, _ *http.Request) {
		_, _, _ = c.ReadMessage()
	})
	conn := dial(t, url, nil)

	assert.NotEmpty(t, conn.RemoteAddr())
}
