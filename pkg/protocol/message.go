// Package protocol implements the chat wire format.
//
// Inbound frames are JSON envelopes of the form {"type": ..., "data": ...}.
// Outbound chat sends are raw text; only the disconnect notice is enveloped.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformed is returned for invalid JSON or a payload missing required fields.
	ErrMalformed = errors.New("malformed envelope")
	// ErrUnknownVariant is returned for well-formed envelopes carrying an unknown type tag.
	ErrUnknownVariant = errors.New("unknown envelope variant")
)

// DisconnectReason is the reason sent with the local disconnect notice.
const DisconnectReason = "User disconnection"

var validate = validator.New()

// Kind is the discriminant of an Envelope.
type Kind string

const (
	KindSession        Kind = "Session"
	KindConnectedUsers Kind = "ConnectedUsers"
	KindMessage        Kind = "Message"
	KindDisconnect     Kind = "Disconnect"
)

// String returns the wire tag.
func (k Kind) String() string {
	return string(k)
}

// Envelope is one decoded inbound message. The set of implementations is
// closed: SessionEnvelope, ConnectedUsersEnvelope, MessageEnvelope and
// DisconnectEnvelope.
type Envelope interface {
	Kind() Kind
	payload() any
}

// SessionEnvelope carries the identity of the authenticated user.
type SessionEnvelope struct {
	User Participant
}

// ConnectedUsersEnvelope carries the full roster of connected users.
type ConnectedUsersEnvelope struct {
	Users Roster
}

// MessageEnvelope carries one chat message.
type MessageEnvelope struct {
	Message ChatMessage
}

// DisconnectEnvelope is sent by either side before tearing the socket down.
type DisconnectEnvelope struct {
	Reason string
}

func (SessionEnvelope) Kind() Kind        { return KindSession }
func (ConnectedUsersEnvelope) Kind() Kind { return KindConnectedUsers }
func (MessageEnvelope) Kind() Kind        { return KindMessage }
func (DisconnectEnvelope) Kind() Kind     { return KindDisconnect }

func (e SessionEnvelope) payload() any        { return e.User }
func (e ConnectedUsersEnvelope) payload() any { return e.Users }
func (e MessageEnvelope) payload() any        { return e.Message }
func (e DisconnectEnvelope) payload() any     { return e.Reason }

// ChatMessage is a chat line as relayed by the server.
type ChatMessage struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Roster maps participant ids to participants. Each ConnectedUsers frame
// replaces the previous roster entirely.
type Roster map[string]Participant

type wireEnvelope struct {
	Type *string         `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireChatMessage struct {
	Author  *string `json:"author" validate:"required"`
	Content *string `json:"content" validate:"required"`
}

// Encode serialises an envelope to its JSON wire form.
func Encode(e Envelope) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("failed to encode envelope: nil envelope")
	}
	data, err := json.Marshal(struct {
		Type Kind `json:"type"`
		Data any  `json:"data"`
	}{Type: e.Kind(), Data: e.payload()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// EncodeText returns the frame payload for an outgoing chat message. Chat
// sends are not enveloped; the server attaches the author.
func EncodeText(message string) []byte {
	return []byte(message)
}

// EncodeDisconnectNotice returns the last frame sent before local teardown.
func EncodeDisconnectNotice() []byte {
	// A string payload always marshals.
	data, _ := Encode(DisconnectEnvelope{Reason: DisconnectReason})
	return data
}

// Decode parses one inbound text frame. It never panics; the returned error
// wraps ErrMalformed or ErrUnknownVariant.
func Decode(data []byte) (Envelope, error) {
	var raw wireEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if raw.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	kind := Kind(*raw.Type)
	switch kind {
	case KindSession, KindConnectedUsers, KindMessage, KindDisconnect:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, kind)
	}
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return nil, fmt.Errorf("%w: %s without data", ErrMalformed, kind)
	}

	switch kind {
	case KindSession:
		user, err := decodeParticipant(raw.Data)
		if err != nil {
			return nil, err
		}
		return SessionEnvelope{User: user}, nil

	case KindConnectedUsers:
		var users map[string]json.RawMessage
		if err := json.Unmarshal(raw.Data, &users); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		roster := make(Roster, len(users))
		for id, rawUser := range users {
			user, err := decodeParticipant(rawUser)
			if err != nil {
				return nil, fmt.Errorf("user %q: %w", id, err)
			}
			roster[id] = user
		}
		return ConnectedUsersEnvelope{Users: roster}, nil

	case KindMessage:
		var msg wireChatMessage
		if err := json.Unmarshal(raw.Data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if err := validate.Struct(msg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return MessageEnvelope{Message: ChatMessage{Author: *msg.Author, Content: *msg.Content}}, nil

	default:
		var reason string
		if err := json.Unmarshal(raw.Data, &reason); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return DisconnectEnvelope{Reason: reason}, nil
	}
}

func decodeParticipant(data json.RawMessage) (Participant, error) {
	var p Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return Participant{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := validate.Struct(p); err != nil {
		return Participant{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return p, nil
}
