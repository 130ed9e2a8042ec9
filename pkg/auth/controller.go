// Package auth owns the authentication state machine and the token
// lifecycle. The controller is an explicitly constructed service injected
// into consumers; it is the only writer of session state, and every token
// read goes through it because fetching a token can refresh it as a side
// effect.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tableflip.dev/perch/pkg/api"
	"tableflip.dev/perch/pkg/deeplink"
	"tableflip.dev/perch/pkg/session"
	"tableflip.dev/perch/pkg/task"
)

// State is the controller's phase.
type State string

const (
	// StateUnauthenticated means no usable session exists.
	StateUnauthenticated State = "unauthenticated"
	// StateAuthenticating means a browser login is pending completion.
	StateAuthenticating State = "authenticating"
	// StateAuthenticated means both tokens and the user profile are held.
	StateAuthenticated State = "authenticated"
)

// DefaultLoginTimeout bounds how long a pending browser login may dangle.
const DefaultLoginTimeout = 5 * time.Minute

// refreshRetries is how many extra attempts a transport failure earns
// during the refresh chain. No other call is retried.
const refreshRetries = 2

// ErrLoginInProgress rejects a second Login while one is pending.
var ErrLoginInProgress = errors.New("auth: login already in progress")

// ErrNotAuthenticated is returned when no valid token can be produced.
var ErrNotAuthenticated = errors.New("auth: not authenticated")

// API is the slice of the remote client the controller needs. Auth
// endpoints take explicit tokens so the client never calls back into the
// controller.
type API interface {
	Status(ctx context.Context, accessToken string) (*task.User, error)
	Refresh(ctx context.Context, refreshToken string) (api.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

// Listener observes state transitions. Delivery is synchronous and in
// subscription order within one transition; a panicking listener is logged
// and skipped so it cannot block the others.
type Listener func(State, *task.User)

type subscriber struct {
	id int
	fn Listener
}

// Controller is the authentication state machine.
type Controller struct {
	store       session.Store
	remote      API
	loginURL    string
	timeout     time.Duration
	openBrowser func(string) error
	now         func() time.Time
	instanceID  string

	mu         sync.Mutex
	state      State
	user       *task.User
	access     string
	refresh    string
	subs       []subscriber
	nextSub    int
	loginTimer *time.Timer
}

// Option configures a Controller.
type Option func(*Controller)

// WithLoginTimeout overrides the pending-login timeout.
func WithLoginTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithBrowserOpener overrides how the login URL is opened.
func WithBrowserOpener(open func(string) error) Option {
	return func(c *Controller) { c.openBrowser = open }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New constructs a controller in the unauthenticated state. Call Init to
// resume a persisted session.
func New(store session.Store, remote API, loginURL string, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		remote:      remote,
		loginURL:    loginURL,
		timeout:     DefaultLoginTimeout,
		openBrowser: openInBrowser,
		now:         time.Now,
		instanceID:  uuid.NewString(),
		state:       StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// User returns the cached profile, nil unless authenticated.
func (c *Controller) User() *task.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Subscribe registers a listener and returns its unsubscribe function.
func (c *Controller) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Init loads the persisted session and re-verifies it. A valid or
// refreshable token resumes the authenticated state; anything else clears
// the session. Inconsistent storage (token without user, or a stored
// authenticated state without tokens) is treated as corrupt.
func (c *Controller) Init(ctx context.Context) error {
	access := c.storedValue(session.KeyAccessToken)
	refresh := c.storedValue(session.KeyRefreshToken)
	userJSON := c.storedValue(session.KeyUser)
	storedState := c.storedValue(session.KeyAuthState)

	c.mu.Lock()
	defer c.mu.Unlock()

	if access == "" || userJSON == "" {
		if access != "" || refresh != "" || userJSON != "" || storedState == string(StateAuthenticated) {
			c.clearSessionLocked()
		}
		c.transitionLocked(StateUnauthenticated)
		return nil
	}

	var user task.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		c.clearSessionLocked()
		c.transitionLocked(StateUnauthenticated)
		return nil
	}

	c.access = access
	c.refresh = refresh
	c.user = &user

	if !c.tokenExpired(access) {
		if _, err := c.remote.Status(ctx, access); err == nil {
			c.transitionLocked(StateAuthenticated)
			return nil
		}
	}

	if err := c.refreshChainLocked(ctx); err != nil {
		c.clearSessionLocked()
		c.transitionLocked(StateUnauthenticated)
		return nil
	}
	c.transitionLocked(StateAuthenticated)
	return nil
}

// Login opens the browser at a login URL bound to this app instance and
// arms the timeout that reverts a dangling attempt. It returns the URL so
// CLIs can print it as well.
func (c *Controller) Login(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == StateAuthenticating {
		c.mu.Unlock()
		return "", ErrLoginInProgress
	}
	c.transitionLocked(StateAuthenticating)
	url := fmt.Sprintf("%s?instance=%s", c.loginURL, c.instanceID)
	c.armLoginTimeoutLocked()
	c.mu.Unlock()

	if err := c.openBrowser(url); err != nil {
		c.mu.Lock()
		c.cancelLoginTimeoutLocked()
		c.transitionLocked(StateUnauthenticated)
		c.mu.Unlock()
		return "", fmt.Errorf("auth: open browser: %w", err)
	}
	return url, nil
}

// Complete processes an out-of-band login completion or error callback.
// The login timeout is cancelled the moment either arrives.
func (c *Controller) Complete(ctx context.Context, comp deeplink.Completion) error {
	if comp.Failed() {
		c.mu.Lock()
		c.cancelLoginTimeoutLocked()
		c.transitionLocked(StateUnauthenticated)
		c.mu.Unlock()
		return fmt.Errorf("auth: login failed: %s", comp.Err)
	}

	user := comp.User
	if user == nil {
		fetched, err := c.remote.Status(ctx, comp.AccessToken)
		if err != nil {
			c.mu.Lock()
			c.cancelLoginTimeoutLocked()
			c.transitionLocked(StateUnauthenticated)
			c.mu.Unlock()
			return fmt.Errorf("auth: fetch profile: %w", err)
		}
		user = fetched
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLoginTimeoutLocked()
	c.access = comp.AccessToken
	c.refresh = comp.RefreshToken
	c.user = user
	c.persistSessionLocked()
	c.transitionLocked(StateAuthenticated)
	return nil
}

// AccessToken returns a token that just verified, refreshing it once when
// verification fails. Terminal refresh failure clears the session and
// leaves the controller unauthenticated. Transport failures outside the
// refresh chain are surfaced without touching state.
func (c *Controller) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.access == "" {
		return "", ErrNotAuthenticated
	}

	if !c.tokenExpired(c.access) {
		_, err := c.remote.Status(ctx, c.access)
		if err == nil {
			return c.access, nil
		}
		var te *api.TransportError
		if errors.As(err, &te) {
			return "", err
		}
	}

	if err := c.refreshChainLocked(ctx); err != nil {
		c.clearSessionLocked()
		c.transitionLocked(StateUnauthenticated)
		return "", err
	}
	return c.access, nil
}

// Logout best-effort revokes the session remotely, then unconditionally
// clears local state.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	access := c.access
	c.mu.Unlock()

	if access != "" {
		if err := c.remote.Logout(ctx, access); err != nil {
			fmt.Fprintf(os.Stderr, "auth: remote logout: %v\n", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLoginTimeoutLocked()
	c.clearSessionLocked()
	c.transitionLocked(StateUnauthenticated)
}

// refreshChainLocked runs the single refresh chain: one logical attempt
// with up to two retries on transport failure only.
func (c *Controller) refreshChainLocked(ctx context.Context) error {
	if c.refresh == "" {
		return ErrNotAuthenticated
	}
	var lastErr error
	for attempt := 0; attempt <= refreshRetries; attempt++ {
		pair, err := c.remote.Refresh(ctx, c.refresh)
		if err == nil {
			c.access = pair.AccessToken
			c.refresh = pair.RefreshToken
			c.persistSessionLocked()
			return nil
		}
		lastErr = err
		var te *api.TransportError
		if !errors.As(err, &te) {
			break
		}
	}
	return lastErr
}

func (c *Controller) armLoginTimeoutLocked() {
	c.cancelLoginTimeoutLocked()
	c.loginTimer = time.AfterFunc(c.timeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state != StateAuthenticating {
			return
		}
		c.loginTimer = nil
		c.transitionLocked(StateUnauthenticated)
	})
}

func (c *Controller) cancelLoginTimeoutLocked() {
	if c.loginTimer != nil {
		c.loginTimer.Stop()
		c.loginTimer = nil
	}
}

// transitionLocked moves to the new state, persists it, and notifies
// listeners in order. Listeners run while the transition lock is held so a
// second transition's notifications can never interleave with this one's.
func (c *Controller) transitionLocked(state State) {
	c.state = state
	if state != StateAuthenticated {
		c.user = nil
	}
	if state == StateUnauthenticated {
		c.access = ""
		c.refresh = ""
	}
	if err := c.store.Set(session.KeyAuthState, string(state)); err != nil {
		fmt.Fprintf(os.Stderr, "auth: persist state: %v\n", err)
	}
	for _, s := range c.subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "auth: listener panic: %v\n", r)
				}
			}()
			s.fn(state, c.user)
		}()
	}
}

// persistSessionLocked writes tokens and profile. State is written by the
// transition that follows.
func (c *Controller) persistSessionLocked() {
	if err := c.store.Set(session.KeyAccessToken, c.access); err != nil {
		fmt.Fprintf(os.Stderr, "auth: persist access token: %v\n", err)
	}
	if err := c.store.Set(session.KeyRefreshToken, c.refresh); err != nil {
		fmt.Fprintf(os.Stderr, "auth: persist refresh token: %v\n", err)
	}
	if c.user != nil {
		data, err := json.Marshal(c.user)
		if err == nil {
			err = c.store.Set(session.KeyUser, string(data))
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "auth: persist user: %v\n", err)
		}
	}
}

func (c *Controller) clearSessionLocked() {
	c.access = ""
	c.refresh = ""
	c.user = nil
	if err := c.store.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "auth: clear session: %v\n", err)
	}
}

func (c *Controller) storedValue(key string) string {
	val, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "auth: read %s: %v\n", key, err)
		}
		return ""
	}
	return val
}

// tokenExpired inspects the access token's exp claim without verifying the
// signature, so a visibly stale token skips a doomed status call. Opaque
// tokens report false and go through the remote check.
func (c *Controller) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(c.now())
}

// openInBrowser launches the platform handler for the URL.
func openInBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
