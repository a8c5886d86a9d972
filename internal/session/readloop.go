package session

import (
	"fmt"
	"log/slog"

	"github.com/omochice/chat-session/internal/chat"
	"github.com/omochice/chat-session/pkg/protocol"
)

const reasonPeerClosed = "connection closed by server"

// loopResult describes why a read loop stopped.
type loopResult struct {
	// Reason is set when the server ended the session (close frame or
	// Disconnect envelope).
	Reason string
	// Err is set when reading from the socket failed.
	Err error
}

// readLoop owns the readable half of one socket and relays decoded
// envelopes to the sink in arrival order.
type readLoop struct {
	reader chat.FrameReader
	sink   chat.Sink
	log    *slog.Logger
}

func newReadLoop(reader chat.FrameReader, sink chat.Sink, log *slog.Logger) *readLoop {
	return &readLoop{
		reader: reader,
		sink:   sink,
		log:    log,
	}
}

// run reads frames until the socket closes or the server says goodbye.
// It never touches the connection slot.
func (l *readLoop) run() loopResult {
	for {
		frame, err := l.reader.ReadFrame()
		if err != nil {
			return loopResult{Err: fmt.Errorf("%w: %w", ErrTransport, err)}
		}

		switch frame.Kind {
		case chat.FramePing:
			continue
		case chat.FrameClose:
			return loopResult{Reason: reasonPeerClosed}
		case chat.FrameText:
			env, err := protocol.Decode(frame.Payload)
			if err != nil {
				l.log.Warn("Dropping undecodable frame", "error", err, "size", len(frame.Payload))
				continue
			}
			if reason, stop := l.dispatch(env); stop {
				return loopResult{Reason: reason}
			}
		default:
			l.log.Debug("Ignoring frame", "kind", frame.Kind)
		}
	}
}

// dispatch forwards env to the sink. It reports stop when the server asked
// to end the session.
func (l *readLoop) dispatch(env protocol.Envelope) (reason string, stop bool) {
	switch e := env.(type) {
	case protocol.SessionEnvelope:
		l.emit(chat.EventSession, e.User)
	case protocol.ConnectedUsersEnvelope:
		l.emit(chat.EventConnectedUsers, e.Users)
	case protocol.MessageEnvelope:
		l.emit(chat.EventMessage, e.Message)
	case protocol.DisconnectEnvelope:
		l.log.Info("Server requested disconnect", "reason", e.Reason)
		return e.Reason, true
	default:
		l.log.Warn("Unhandled envelope", "kind", env.Kind())
	}
	return "", false
}

func (l *readLoop) emit(event string, payload any) {
	if err := l.sink.Emit(event, payload); err != nil {
		l.log.Error("Failed to deliver event", "event", event, "error", err)
	}
}
