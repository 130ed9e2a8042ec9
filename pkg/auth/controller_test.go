package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"tableflip.dev/perch/pkg/api"
	"tableflip.dev/perch/pkg/deeplink"
	"tableflip.dev/perch/pkg/session"
	"tableflip.dev/perch/pkg/task"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", session.ErrNotFound
	}
	return val, nil
}

func (m *memStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) Clear() error {
	for _, key := range []string{session.KeyAccessToken, session.KeyRefreshToken, session.KeyUser, session.KeyAuthState} {
		_ = m.Delete(key)
	}
	return nil
}

func (m *memStore) Watch(context.Context) (<-chan session.Event, error) {
	return nil, errors.New("not supported")
}

type fakeAPI struct {
	mu sync.Mutex

	statusUser *task.User
	statusErr  error

	refreshPair api.TokenPair
	refreshErrs []error // consumed per call; nil entry means success
	refreshHits int

	logoutErr  error
	logoutHits int
}

func (f *fakeAPI) Status(_ context.Context, _ string) (*task.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusUser, nil
}

func (f *fakeAPI) Refresh(_ context.Context, _ string) (api.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.refreshHits
	f.refreshHits++
	if i < len(f.refreshErrs) && f.refreshErrs[i] != nil {
		return api.TokenPair{}, f.refreshErrs[i]
	}
	return f.refreshPair, nil
}

func (f *fakeAPI) Logout(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutHits++
	return f.logoutErr
}

func seedSession(t *testing.T, store session.Store, access, refresh string, user *task.User, state State) {
	t.Helper()
	if access != "" {
		if err := store.Set(session.KeyAccessToken, access); err != nil {
			t.Fatal(err)
		}
	}
	if refresh != "" {
		if err := store.Set(session.KeyRefreshToken, refresh); err != nil {
			t.Fatal(err)
		}
	}
	if user != nil {
		data, err := json.Marshal(user)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Set(session.KeyUser, string(data)); err != nil {
			t.Fatal(err)
		}
	}
	if state != "" {
		if err := store.Set(session.KeyAuthState, string(state)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestInitValidTokenResumesAuthenticated(t *testing.T) {
	store := newMemStore()
	user := &task.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}
	seedSession(t, store, "tok-a", "tok-r", user, StateAuthenticated)

	remote := &fakeAPI{statusUser: user}
	c := New(store, remote, "http://login")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if c.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", c.State())
	}
	got := c.User()
	if got == nil || *got != *user {
		t.Fatalf("user did not round-trip through storage: %+v", got)
	}
}

func TestInitExpiredTokenRefreshes(t *testing.T) {
	store := newMemStore()
	user := &task.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}
	seedSession(t, store, "tok-stale", "tok-r", user, StateAuthenticated)

	remote := &fakeAPI{
		statusErr:   &api.AuthError{StatusCode: 401},
		refreshPair: api.TokenPair{AccessToken: "tok-new", RefreshToken: "tok-r2"},
	}
	c := New(store, remote, "http://login")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if c.State() != StateAuthenticated {
		t.Fatalf("expected authenticated after refresh, got %s", c.State())
	}
	if v, _ := store.Get(session.KeyAccessToken); v != "tok-new" {
		t.Fatalf("new access token not persisted: %q", v)
	}
	if v, _ := store.Get(session.KeyRefreshToken); v != "tok-r2" {
		t.Fatalf("new refresh token not persisted: %q", v)
	}
}

func TestInitExpiredTokenNoRefreshClearsSession(t *testing.T) {
	store := newMemStore()
	user := &task.User{ID: "u1"}
	seedSession(t, store, "tok-stale", "", user, StateAuthenticated)

	remote := &fakeAPI{statusErr: &api.AuthError{StatusCode: 401}}
	c := New(store, remote, "http://login")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if c.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", c.State())
	}
	for _, key := range []string{session.KeyAccessToken, session.KeyRefreshToken, session.KeyUser} {
		if _, err := store.Get(key); !errors.Is(err, session.ErrNotFound) {
			t.Fatalf("%s not cleared: %v", key, err)
		}
	}
	if v, _ := store.Get(session.KeyAuthState); v != string(StateUnauthenticated) {
		t.Fatalf("state not persisted as unauthenticated: %q", v)
	}
}

func TestInitTokenWithoutUserIsCorrupt(t *testing.T) {
	store := newMemStore()
	seedSession(t, store, "tok-a", "tok-r", nil, StateAuthenticated)

	c := New(store, &fakeAPI{statusUser: &task.User{ID: "u"}}, "http://login")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if c.State() != StateUnauthenticated {
		t.Fatalf("corrupt session should clear, got %s", c.State())
	}
	if _, err := store.Get(session.KeyAccessToken); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("access token survived corrupt init")
	}
}

func TestInitStoredAuthenticatedWithoutTokensIsCorrupt(t *testing.T) {
	store := newMemStore()
	seedSession(t, store, "", "", nil, StateAuthenticated)

	c := New(store, &fakeAPI{}, "http://login")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if c.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", c.State())
	}
}

func TestLoginTimesOutBackToUnauthenticated(t *testing.T) {
	store := newMemStore()
	c := New(store, &fakeAPI{}, "http://login",
		WithLoginTimeout(20*time.Millisecond),
		WithBrowserOpener(func(string) error { return nil }),
	)

	url, err := c.Login(context.Background())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if url == "" {
		t.Fatalf("expected instance-bound login URL")
	}
	if c.State() != StateAuthenticating {
		t.Fatalf("expected authenticating, got %s", c.State())
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.State() == StateAuthenticating {
		if time.Now().After(deadline) {
			t.Fatalf("login never timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if c.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated after timeout, got %s", c.State())
	}
}

func TestCompleteStoresSessionAndCancelsTimeout(t *testing.T) {
	store := newMemStore()
	user := &task.User{ID: "u1", Name: "Ada"}
	remote := &fakeAPI{statusUser: user}
	c := New(store, remote, "http://login",
		WithLoginTimeout(40*time.Millisecond),
		WithBrowserOpener(func(string) error { return nil }),
	)

	if _, err := c.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	comp := deeplink.Completion{AccessToken: "tok-a", RefreshToken: "tok-r"}
	if err := c.Complete(context.Background(), comp); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if c.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", c.State())
	}
	if got := c.User(); got == nil || got.ID != "u1" {
		t.Fatalf("profile not fetched on completion: %+v", got)
	}

	// The timeout must have been cancelled.
	time.Sleep(80 * time.Millisecond)
	if c.State() != StateAuthenticated {
		t.Fatalf("timeout fired after completion")
	}
}

func TestCompleteWithUserDataSkipsProfileFetch(t *testing.T) {
	store := newMemStore()
	remote := &fakeAPI{statusErr: &api.TransportError{Op: "status", Err: errors.New("down")}}
	c := New(store, remote, "http://login")

	comp := deeplink.Completion{
		AccessToken:  "tok-a",
		RefreshToken: "tok-r",
		User:         &task.User{ID: "u2", Name: "Grace"},
	}
	if err := c.Complete(context.Background(), comp); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := c.User(); got == nil || got.ID != "u2" {
		t.Fatalf("supplied user data ignored: %+v", got)
	}
}

func TestCompleteErrorRevertsToUnauthenticated(t *testing.T) {
	store := newMemStore()
	c := New(store, &fakeAPI{}, "http://login",
		WithBrowserOpener(func(string) error { return nil }),
	)
	if _, err := c.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	err := c.Complete(context.Background(), deeplink.Completion{Err: "access denied"})
	if err == nil {
		t.Fatalf("expected completion error surfaced")
	}
	if c.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", c.State())
	}
}

func TestAccessTokenRefreshesOnInvalidToken(t *testing.T) {
	store := newMemStore()
	user := &task.User{ID: "u1"}
	seedSession(t, store, "tok-stale", "tok-r", user, StateAuthenticated)

	remote := &fakeAPI{
		statusUser:  user,
		refreshPair: api.TokenPair{AccessToken: "tok-new", RefreshToken: "tok-r2"},
	}
	c := New(store, remote, "http://login")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	remote.mu.Lock()
	remote.statusErr = &api.AuthError{StatusCode: 401}
	remote.mu.Unlock()

	tok, err := c.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if tok != "tok-new" {
		t.Fatalf("expected refreshed token, got %q", tok)
	}
}

func TestAccessTokenRetriesTransportFailuresDuringRefresh(t *testing.T) {
	store := newMemStore()
	user := &task.User{ID: "u1"}
	seedSession(t, store, "tok-stale", "tok-r", user, StateAuthenticated)

	transport := &api.TransportError{Op: "refresh", Err: errors.New("dns")}
	remote := &fakeAPI{
		statusErr:   &api.AuthError{StatusCode: 401},
		refreshErrs: []error{transport, transport, nil},
		refreshPair: api.TokenPair{AccessToken: "tok-new", RefreshToken: "tok-r2"},
	}
	c := New(store, remote, "http://login")
	_ = c.Init(context.Background()) // init consumes the first chain

	remote.mu.Lock()
	remote.refreshHits = 0
	remote.mu.Unlock()

	tok, err := c.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if tok != "tok-new" {
		t.Fatalf("expected token after retries, got %q", tok)
	}
	if remote.refreshHits != 3 {
		t.Fatalf("expected 3 refresh attempts, got %d", remote.refreshHits)
	}
}

func TestAccessTokenTerminalFailureClearsSession(t *testing.T) {
	store := newMemStore()
	user := &task.User{ID: "u1"}
	seedSession(t, store, "tok-stale", "tok-r", user, StateAuthenticated)

	remote := &fakeAPI{
		statusUser:  user,
		refreshPair: api.TokenPair{AccessToken: "x", RefreshToken: "y"},
	}
	c := New(store, remote, "http://login")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	remote.mu.Lock()
	remote.statusErr = &api.AuthError{StatusCode: 401}
	remote.refreshErrs = []error{&api.AuthError{StatusCode: 401, Message: "invalid refresh"}}
	remote.refreshHits = 0
	remote.mu.Unlock()

	if _, err := c.AccessToken(context.Background()); err == nil {
		t.Fatalf("expected terminal failure")
	}
	if c.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated after terminal failure, got %s", c.State())
	}
	if remote.refreshHits != 1 {
		t.Fatalf("auth errors must not be retried, got %d attempts", remote.refreshHits)
	}
}

func TestLogoutClearsEvenWhenRemoteFails(t *testing.T) {
	store := newMemStore()
	user := &task.User{ID: "u1"}
	seedSession(t, store, "tok-a", "tok-r", user, StateAuthenticated)

	remote := &fakeAPI{statusUser: user, logoutErr: errors.New("503")}
	c := New(store, remote, "http://login")
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	c.Logout(context.Background())
	if c.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", c.State())
	}
	if remote.logoutHits != 1 {
		t.Fatalf("remote logout not attempted")
	}
	if _, err := store.Get(session.KeyAccessToken); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("session survived logout")
	}
}

func TestListenersRunInOrderAndIsolatePanics(t *testing.T) {
	store := newMemStore()
	c := New(store, &fakeAPI{}, "http://login",
		WithBrowserOpener(func(string) error { return nil }),
	)

	var order []string
	c.Subscribe(func(s State, _ *task.User) { order = append(order, "first:"+string(s)) })
	c.Subscribe(func(State, *task.User) { panic("boom") })
	c.Subscribe(func(s State, _ *task.User) { order = append(order, "third:"+string(s)) })

	if _, err := c.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("expected 2 deliveries, got %v", order)
	}
	if order[0] != "first:authenticating" || order[1] != "third:authenticating" {
		t.Fatalf("delivery order wrong: %v", order)
	}
}

func TestUnsubscribeStopsAuthDelivery(t *testing.T) {
	store := newMemStore()
	c := New(store, &fakeAPI{}, "http://login",
		WithBrowserOpener(func(string) error { return nil }),
	)
	var hits int
	unsub := c.Subscribe(func(State, *task.User) { hits++ })
	if _, err := c.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	unsub()
	c.Logout(context.Background())
	if hits != 1 {
		t.Fatalf("expected 1 delivery, got %d", hits)
	}
}
