package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tableflip.dev/perch/pkg/task"
)

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) AccessToken(context.Context) (string, error) {
	return s.token, s.err
}

func TestStatusReturnsUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/status" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","data":{"status":"valid","user":{"id":"u1","name":"Ada","email":"ada@example.com"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	user, err := c.Status(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if user.ID != "u1" || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestRefreshParsesTokenPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/refresh" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","data":{"tokens":{"access_token":"a2","refresh_token":"r2"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	pair, err := c.Refresh(context.Background(), "r1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.AccessToken != "a2" || pair.RefreshToken != "r2" {
		t.Fatalf("unexpected pair %+v", pair)
	}
}

func TestRateLimitErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := New(srv.URL, WithTokenSource(&staticTokens{token: "t"}))
	_, err := c.ListTasks(context.Background(), ListOptions{})
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if !strings.Contains(rle.Message, "slow down") {
		t.Fatalf("message lost: %q", rle.Message)
	}
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","message":"token expired"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Status(context.Background(), "stale")
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if ae.Message != "token expired" {
		t.Fatalf("unexpected message %q", ae.Message)
	}
}

func TestNonJSONBodyMapsToValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>nope</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Status(context.Background(), "t")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if !strings.Contains(ve.Body, "<html>") {
		t.Fatalf("body excerpt missing: %q", ve.Body)
	}
}

func TestValidationErrorTruncatesBody(t *testing.T) {
	long := strings.Repeat("x", 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Status(context.Background(), "t")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(ve.Body) > bodyExcerptLimit+3 {
		t.Fatalf("excerpt not truncated: %d bytes", len(ve.Body))
	}
}

func TestTransportErrorOnConnectFailure(t *testing.T) {
	// A closed server guarantees a connection failure.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := New(srv.URL)
	_, err := c.Status(context.Background(), "t")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
}

func TestListTasksSendsQueryAndBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "10" || q.Get("status") != "pending" || q.Get("priority") != "high" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok-9" {
			t.Fatalf("missing bearer")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","data":[{"id":"t1","title":"Ship it","status":"pending","ricu":10}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithTokenSource(&staticTokens{token: "tok-9"}))
	tasks, err := c.ListTasks(context.Background(), ListOptions{Limit: 10, Status: task.StatusPending, Priority: "high"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" || tasks[0].RICU != 10 {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
}

func TestAuthedCallWithoutTokenFails(t *testing.T) {
	c := New("http://127.0.0.1:0", WithTokenSource(&staticTokens{token: ""}))
	_, err := c.ListTasks(context.Background(), ListOptions{})
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
}
