// Package app exposes the session layer as the command set used by the UI.
// Commands report success as a boolean and log the diagnostic on failure.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omochice/chat-session/internal/session"
)

// Sessions is the chat connection side of the session layer.
type Sessions interface {
	Connect(ctx context.Context, token string) error
	Send(ctx context.Context, message string) error
	Disconnect(ctx context.Context) error
	Login(ctx context.Context) error
	IsConnected() bool
}

// Identity is the HTTP side of the session layer.
type Identity interface {
	LoginURL(ctx context.Context) (string, error)
	Session(ctx context.Context, token string) (string, error)
	ValidateToken(ctx context.Context, token string) (bool, error)
}

// Commands is the command surface consumed by the front end.
type Commands struct {
	sessions Sessions
	identity Identity
	log      *slog.Logger
}

// New creates the command surface.
func New(sessions Sessions, identity Identity, log *slog.Logger) *Commands {
	return &Commands{
		sessions: sessions,
		identity: identity,
		log:      log,
	}
}

// Connect opens the chat connection with an already validated token.
func (c *Commands) Connect(ctx context.Context, token string) bool {
	if err := c.sessions.Connect(ctx, token); err != nil {
		c.log.Error("Connect failed", "error", err)
		return false
	}
	return true
}

// Send sends one chat line.
func (c *Commands) Send(ctx context.Context, message string) bool {
	if err := c.sessions.Send(ctx, message); err != nil {
		c.log.Error("Send failed", "error", err)
		return false
	}
	return true
}

// Disconnect closes the chat connection. It reports false when there was
// nothing to disconnect or the notice could not be sent; the connection is
// gone either way.
func (c *Commands) Disconnect(ctx context.Context) bool {
	if err := c.sessions.Disconnect(ctx); err != nil {
		c.log.Error("Disconnect failed", "error", err)
		return false
	}
	return true
}

// Login drives the login socket until the session arrives.
func (c *Commands) Login(ctx context.Context) bool {
	if err := c.sessions.Login(ctx); err != nil {
		c.log.Error("Login failed", "error", err)
		return false
	}
	return true
}

// CheckTokenValid asks the identity provider whether token is still valid.
func (c *Commands) CheckTokenValid(ctx context.Context, token string) bool {
	ok, err := c.identity.ValidateToken(ctx, token)
	if err != nil {
		c.log.Error("Token check failed", "error", err)
		return false
	}
	return ok
}

// GetLoginURL returns the URL to open for a browser login.
func (c *Commands) GetLoginURL(ctx context.Context) (string, error) {
	return c.identity.LoginURL(ctx)
}

// FetchSession returns the session document for token.
func (c *Commands) FetchSession(ctx context.Context, token string) (string, error) {
	return c.identity.Session(ctx, token)
}

// Shutdown disconnects if a connection is open.
func (c *Commands) Shutdown(ctx context.Context) {
	if !c.sessions.IsConnected() {
		return
	}
	if err := c.sessions.Disconnect(ctx); err != nil && !errors.Is(err, session.ErrNotConnected) {
		c.log.Warn("Disconnect on shutdown failed", "error", err)
	}
}
