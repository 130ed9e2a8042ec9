// Package api is a thin typed wrapper over the remote task/AI backend. Every
// response uses the {status, data, message} envelope; anything else raises a
// typed error from the taxonomy in errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tableflip.dev/perch/pkg/task"
)

// TokenSource supplies a bearer token for authenticated calls. The auth
// controller implements it; readers must never reach into storage directly
// because fetching a token may trigger a refresh as a side effect.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client issues calls against the backend. Auth endpoints take explicit
// tokens so the client has no dependency cycle with the auth controller;
// task and sync endpoints pull bearer tokens from the TokenSource.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource wires the bearer-token provider for authenticated calls.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New returns a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource wires the bearer-token provider after construction. The
// auth controller and the client reference each other, so one of the two has
// to be attached late.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// TokenPair is the access/refresh pair issued by the backend.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Status verifies an access token and returns the profile it belongs to.
func (c *Client) Status(ctx context.Context, accessToken string) (*task.User, error) {
	var out struct {
		Status string     `json:"status"`
		User   *task.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/status", nil, &out, accessToken); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &ValidationError{StatusCode: http.StatusOK, Body: "status response missing user"}
	}
	return out.User, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var out struct {
		Tokens TokenPair `json:"tokens"`
	}
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", body, &out, ""); err != nil {
		return TokenPair{}, err
	}
	if out.Tokens.AccessToken == "" {
		return TokenPair{}, &ValidationError{StatusCode: http.StatusOK, Body: "refresh response missing tokens"}
	}
	return out.Tokens, nil
}

// Logout invalidates the session server-side. Callers treat failures as
// best-effort; local state is cleared regardless.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, accessToken)
}

// bearer resolves the token for an authenticated call.
func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", &AuthError{Message: "no token source configured"}
	}
	tok, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", &AuthError{Message: "no valid access token"}
	}
	return tok, nil
}

// doAuthed runs an envelope call with a bearer token from the TokenSource.
func (c *Client) doAuthed(ctx context.Context, method, path string, body, out any) error {
	tok, err := c.bearer(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, body, out, tok)
}

// do issues one HTTP call and decodes the response envelope's data into out.
// Non-2xx and non-JSON responses are mapped onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any, bearer string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read " + path, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Message: responseMessage(raw)}
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{StatusCode: resp.StatusCode, Message: responseMessage(raw)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &ValidationError{StatusCode: resp.StatusCode, Body: excerpt(raw)}
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &ValidationError{StatusCode: resp.StatusCode, Body: excerpt(raw)}
	}
	data := env.Data
	if data == nil {
		// Some endpoints reply with the payload at the top level.
		data = raw
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ValidationError{StatusCode: resp.StatusCode, Body: excerpt(raw)}
	}
	return nil
}

// responseMessage pulls the envelope message out of an error body, falling
// back to the raw excerpt when the body is not an envelope.
func responseMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return excerpt(raw)
}
