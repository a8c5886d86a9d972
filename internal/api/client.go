// Package api is the HTTP side of the chat service: login URL, session
// lookup and bearer-token validation against the identity provider.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnexpectedStatus is returned when an endpoint answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected status")

const maxBody = 1 << 20

// Client calls the chat service and the identity provider.
type Client struct {
	baseURL     string
	identityURL string
	http        *http.Client
}

// New creates a Client. baseURL is the chat service root, identityURL the
// identity provider API root (e.g. https://discord.com/api).
func New(baseURL, identityURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		identityURL: strings.TrimRight(identityURL, "/"),
		http:        &http.Client{Timeout: timeout},
	}
}

// LoginURL fetches the URL the user must open to log in.
func (c *Client) LoginURL(ctx context.Context) (string, error) {
	body, err := c.get(ctx, c.baseURL+"/login-url", "")
	if err != nil {
		return "", fmt.Errorf("failed to get login url: %w", err)
	}
	return strings.TrimSpace(body), nil
}

// Session fetches the opaque session document for token. The token is sent
// as-is in the Authorization header.
func (c *Client) Session(ctx context.Context, token string) (string, error) {
	body, err := c.get(ctx, c.baseURL+"/session", token)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	return body, nil
}

// ValidateToken reports whether the identity provider accepts token. A
// non-200 answer is a plain false; transport failures are returned as errors.
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	_, err := c.get(ctx, c.identityURL+"/users/@me", "Bearer "+token)
	if errors.Is(err, ErrUnexpectedStatus) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to validate token: %w", err)
	}
	return true, nil
}

func (c *Client) get(ctx context.Context, url, authorization string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return string(body), nil
}
