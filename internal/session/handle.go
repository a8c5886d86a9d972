package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omochice/chat-session/internal/chat"
	"github.com/omochice/chat-session/pkg/protocol"
)

var (
	// ErrNotConnected is returned by operations that need a live connection.
	ErrNotConnected = errors.New("not connected")
	// ErrTransport wraps socket-level connect, read and write failures.
	ErrTransport = errors.New("transport error")
	// ErrLoginIncomplete is returned when the login socket ends before the session arrives.
	ErrLoginIncomplete = errors.New("login incomplete")
)

// Handle owns the writable half of one established socket.
type Handle struct {
	writer       chat.FrameWriter
	writeTimeout time.Duration
	log          *slog.Logger
}

func newHandle(writer chat.FrameWriter, writeTimeout time.Duration, log *slog.Logger) *Handle {
	return &Handle{
		writer:       writer,
		writeTimeout: writeTimeout,
		log:          log,
	}
}

// SendText writes message as a single text frame. The writer serialises
// frames, so concurrent sends never interleave.
func (h *Handle) SendText(ctx context.Context, message string) error {
	return h.write(ctx, protocol.EncodeText(message))
}

// Disconnect sends the disconnect notice and then closes the socket. The
// socket is closed even when the notice could not be written; that write
// error is still returned.
func (h *Handle) Disconnect(ctx context.Context) error {
	sendErr := h.write(ctx, protocol.EncodeDisconnectNotice())
	if sendErr != nil {
		h.log.Warn("Failed to send disconnect notice", "error", sendErr)
	}
	h.close()
	return sendErr
}

func (h *Handle) write(ctx context.Context, data []byte) error {
	if h.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.writeTimeout)
		defer cancel()
	}
	if err := h.writer.WriteText(ctx, data); err != nil {
		return fmt.Errorf("%w: failed to send message: %w", ErrTransport, err)
	}
	return nil
}

func (h *Handle) close() {
	if err := h.writer.Close(); err != nil {
		h.log.Debug("Error closing socket", "error", err)
	}
}
