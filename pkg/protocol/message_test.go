package protocol_test

import (
	"testing"

	"github.com/omochice/chat-session/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data string
		want protocol.Envelope
	}{
		{
			name: "message",
			data: `{"type":"Message","data":{"author":"alice","content":"hi"}}`,
			want: protocol.MessageEnvelope{Message: protocol.ChatMessage{Author: "alice", Content: "hi"}},
		},
		{
			name: "message with empty content",
			data: `{"type":"Message","data":{"author":"alice","content":""}}`,
			want: protocol.MessageEnvelope{Message: protocol.ChatMessage{Author: "alice", Content: ""}},
		},
		{
			name: "session ignores unknown fields",
			data: `{"type":"Session","data":{"id":"42","username":"bob","global_name":"Bobby","clan":{"tag":"x"}}}`,
			want: protocol.SessionEnvelope{User: protocol.Participant{ID: "42", Username: "bob", GlobalName: strPtr("Bobby")}},
		},
		{
			name: "connected users",
			data: `{"type":"ConnectedUsers","data":{"1":{"id":"1","username":"a"},"2":{"id":"2","username":"b"}}}`,
			want: protocol.ConnectedUsersEnvelope{Users: protocol.Roster{
				"1": {ID: "1", Username: "a"},
				"2": {ID: "2", Username: "b"},
			}},
		},
		{
			name: "empty roster",
			data: `{"type":"ConnectedUsers","data":{}}`,
			want: protocol.ConnectedUsersEnvelope{Users: protocol.Roster{}},
		},
		{
			name: "disconnect",
			data: `{"type":"Disconnect","data":"server restart"}`,
			want: protocol.DisconnectEnvelope{Reason: "server restart"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.Decode([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ``},
		{"not json", `hello`},
		{"truncated", `{"type":"Message","data":{"author":"a"`},
		{"json string", `"Message"`},
		{"json null", `null`},
		{"array", `[1,2]`},
		{"missing type", `{"data":"x"}`},
		{"type not a string", `{"type":3,"data":"x"}`},
		{"missing data", `{"type":"Message"}`},
		{"null data", `{"type":"Disconnect","data":null}`},
		{"message missing content", `{"type":"Message","data":{"author":"alice"}}`},
		{"message missing author", `{"type":"Message","data":{"content":"hi"}}`},
		{"message wrong field type", `{"type":"Message","data":{"author":1,"content":"hi"}}`},
		{"session missing id", `{"type":"Session","data":{"username":"bob"}}`},
		{"session data is string", `{"type":"Session","data":"bob"}`},
		{"roster entry missing username", `{"type":"ConnectedUsers","data":{"1":{"id":"1"}}}`},
		{"roster is list", `{"type":"ConnectedUsers","data":[{"id":"1","username":"a"}]}`},
		{"disconnect reason not string", `{"type":"Disconnect","data":{"reason":"x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.Decode([]byte(tt.data))
			assert.ErrorIs(t, err, protocol.ErrMalformed)
			assert.NotErrorIs(t, err, protocol.ErrUnknownVariant)
			assert.Nil(t, got)
		})
	}
}

func TestDecode_UnknownVariant(t *testing.T) {
	for _, data := range []string{
		`{"type":"Typing","data":{"author":"alice"}}`,
		`{"type":"message","data":{"author":"alice","content":"hi"}}`,
		`{"type":"","data":"x"}`,
		`{"type":"Reaction"}`,
	} {
		t.Run(data, func(t *testing.T) {
			got, err := protocol.Decode([]byte(data))
			assert.ErrorIs(t, err, protocol.ErrUnknownVariant)
			assert.Nil(t, got)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	accent := 0xff00ff
	verified := true
	envelopes := []protocol.Envelope{
		protocol.SessionEnvelope{User: protocol.Participant{
			ID:            "80351110224678912",
			Username:      "nelly",
			Discriminator: "1337",
			Avatar:        strPtr("8342729096ea3675442027381ff50dfe"),
			AccentColor:   &accent,
			Verified:      &verified,
		}},
		protocol.ConnectedUsersEnvelope{Users: protocol.Roster{"7": {ID: "7", Username: "seven"}}},
		protocol.MessageEnvelope{Message: protocol.ChatMessage{Author: "alice", Content: "hello {\"json\"}"}},
		protocol.DisconnectEnvelope{Reason: "bye"},
	}

	for _, e := range envelopes {
		t.Run(e.Kind().String(), func(t *testing.T) {
			data, err := protocol.Encode(e)
			require.NoError(t, err)

			got, err := protocol.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, e, got)
		})
	}
}

func TestEncodeText(t *testing.T) {
	assert.Equal(t, []byte(`plain {"type":"Message"}`), protocol.EncodeText(`plain {"type":"Message"}`))
}

func TestEncodeDisconnectNotice(t *testing.T) {
	data := protocol.EncodeDisconnectNotice()
	assert.JSONEq(t, `{"type":"Disconnect","data":"User disconnection"}`, string(data))

	got, err := protocol.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.DisconnectEnvelope{Reason: protocol.DisconnectReason}, got)
}

func TestEncode_Nil(t *testing.T) {
	_, err := protocol.Encode(nil)
	assert.Error(t, err)
}

func TestParticipant_AvatarURL(t *testing.T) {
	p := protocol.Participant{ID: "42", Username: "bob"}
	assert.Empty(t, p.AvatarURL())

	p.Avatar = strPtr("abc")
	assert.Equal(t, "https://cdn.discordapp.com/avatars/42/abc", p.AvatarURL())
}

func TestParticipant_DisplayName(t *testing.T) {
	p := protocol.Participant{ID: "42", Username: "bob"}
	assert.Equal(t, "bob", p.DisplayName())

	p.GlobalName = strPtr("Bobby")
	assert.Equal(t, "Bobby", p.DisplayName())
}

func TestParseLoginSession(t *testing.T) {
	doc := `{"access_token":"at","refresh_token":"rt","session":{"id":"1","username":"alice","avatar":"av"}}`

	got, err := protocol.ParseLoginSession(doc)
	require.NoError(t, err)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)
	assert.Equal(t, "https://cdn.discordapp.com/avatars/1/av", got.User.AvatarURL())

	for _, bad := range []string{
		`nope`,
		`{"refresh_token":"rt","session":{"id":"1","username":"alice"}}`,
		`{"access_token":"at","session":{"id":"1"}}`,
	} {
		_, err := protocol.ParseLoginSession(bad)
		assert.ErrorIs(t, err, protocol.ErrMalformed, bad)
	}
}
