// Package deeplink parses the custom URL scheme invocations that deliver
// login completion to the running app. The OS launches a second short-lived
// process with the URL; that process hands the payload off through the
// session store, and the running instance replays it into the auth
// controller.
package deeplink

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"tableflip.dev/perch/pkg/task"
)

// Scheme is the custom URL scheme registered for the app.
const Scheme = "perch"

const (
	routeSuccess = "auth-success"
	routeError   = "auth-error"
)

// Completion is the payload carried by an auth deep link. Either the token
// pair is set (success) or Err is non-empty (failure). User is optional on
// success; the controller fetches the profile when it is absent.
type Completion struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         *task.User `json:"user,omitempty"`
	Err          string     `json:"error,omitempty"`
}

// Failed reports whether this completion is an error callback.
func (c Completion) Failed() bool { return c.Err != "" }

// Parse decodes a deep-link URL into a Completion.
func Parse(raw string) (Completion, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Completion{}, fmt.Errorf("deeplink: parse %q: %w", raw, err)
	}
	if u.Scheme != Scheme {
		return Completion{}, fmt.Errorf("deeplink: unexpected scheme %q", u.Scheme)
	}

	route := u.Host
	if route == "" {
		route = strings.Trim(u.Path, "/")
	}
	q := u.Query()

	switch route {
	case routeSuccess:
		c := Completion{
			AccessToken:  q.Get("access_token"),
			RefreshToken: q.Get("refresh_token"),
		}
		if c.AccessToken == "" || c.RefreshToken == "" {
			return Completion{}, fmt.Errorf("deeplink: auth-success missing tokens")
		}
		if data := q.Get("user_data"); data != "" {
			var u task.User
			if err := json.Unmarshal([]byte(data), &u); err != nil {
				return Completion{}, fmt.Errorf("deeplink: decode user_data: %w", err)
			}
			c.User = &u
		}
		return c, nil
	case routeError:
		msg := q.Get("error")
		if msg == "" {
			msg = "login failed"
		}
		return Completion{Err: msg}, nil
	default:
		return Completion{}, fmt.Errorf("deeplink: unknown route %q", route)
	}
}

// Encode serializes a completion for the session-store handoff entry.
func Encode(c Completion) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("deeplink: encode completion: %w", err)
	}
	return string(data), nil
}

// Decode reverses Encode.
func Decode(s string) (Completion, error) {
	var c Completion
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Completion{}, fmt.Errorf("deeplink: decode completion: %w", err)
	}
	return c, nil
}
