package api

import "fmt"

// bodyExcerptLimit caps how much of an unexpected response body is carried
// in an error for diagnostics.
const bodyExcerptLimit = 200

// TransportError wraps a network-level failure (DNS, connect, read). The
// auth controller retries these for token refresh only; everything else
// surfaces them to the caller.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError reports a rejected credential (401, expired token, invalid
// refresh). It triggers a session clear upstream and is never silently
// retried beyond the one refresh attempt.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: unauthorized (%d)", e.StatusCode)
	}
	return fmt.Sprintf("api: unauthorized (%d): %s", e.StatusCode, e.Message)
}

// RateLimitError reports HTTP 429 with the server-provided message. It is
// never retried automatically.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return "api: rate limited"
	}
	return "api: rate limited: " + e.Message
}

// ValidationError reports a malformed or unexpected response: non-JSON
// where JSON was expected, or a status code outside the taxonomy. It
// carries a truncated body excerpt for diagnostics.
type ValidationError struct {
	StatusCode int
	Body       string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("api: unexpected response (%d): %s", e.StatusCode, e.Body)
}

func excerpt(body []byte) string {
	if len(body) > bodyExcerptLimit {
		return string(body[:bodyExcerptLimit]) + "..."
	}
	return string(body)
}
