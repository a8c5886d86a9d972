package protocol

import (
	"encoding/json"
	"fmt"
)

// LoginSession is the document delivered as the second frame of the login
// socket. The session layer forwards it verbatim; front ends parse it to
// store the token.
type LoginSession struct {
	AccessToken  string      `json:"access_token" validate:"required"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         Participant `json:"session"`
}

// ParseLoginSession decodes a login session document.
func ParseLoginSession(doc string) (LoginSession, error) {
	var s LoginSession
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return LoginSession{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := validate.Struct(s); err != nil {
		return LoginSession{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return s, nil
}
