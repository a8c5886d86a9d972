// Package chat provides the transport-neutral pieces shared by the session
// layer: frames, connection halves and the event sink.
package chat

import "context"

// FrameKind tells the read side what arrived on the socket.
type FrameKind int

const (
	FrameText FrameKind = iota
	FramePing
	FrameClose
)

// String returns the string representation of FrameKind.
func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "TEXT"
	case FramePing:
		return "PING"
	case FrameClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Frame is a single application-visible frame. Payload is set for text frames.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}

// FrameReader is the readable half of a socket.
type FrameReader interface {
	// ReadFrame blocks until the next frame arrives.
	// Pongs are answered by the transport before the ping is reported.
	ReadFrame() (Frame, error)
}

// FrameWriter is the writable half of a socket.
type FrameWriter interface {
	// WriteText sends one text frame. Concurrent calls never interleave.
	WriteText(ctx context.Context, data []byte) error

	// Close closes the underlying socket; pending reads fail.
	Close() error
}

// Conn abstracts an established socket that can be split into halves.
type Conn interface {
	FrameReader
	FrameWriter

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
