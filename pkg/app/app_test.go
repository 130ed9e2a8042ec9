package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tableflip.dev/perch/pkg/api"
	"tableflip.dev/perch/pkg/auth"
	"tableflip.dev/perch/pkg/deeplink"
	"tableflip.dev/perch/pkg/session"
	"tableflip.dev/perch/pkg/task"
)

type fakeRemote struct {
	updates   []map[string]any
	updateIDs []string
	updateErr error
	updated   *task.Task
	tasks     []task.Task
	user      *task.User
}

func (f *fakeRemote) ListTasks(context.Context, api.ListOptions) ([]task.Task, error) {
	return f.tasks, nil
}

func (f *fakeRemote) GetTask(_ context.Context, id string) (*task.Task, error) {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			return &f.tasks[i], nil
		}
	}
	return nil, &api.ValidationError{StatusCode: 404, Body: "not found"}
}

func (f *fakeRemote) UpdateTask(_ context.Context, id string, fields map[string]any) (*task.Task, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updateIDs = append(f.updateIDs, id)
	f.updates = append(f.updates, fields)
	return f.updated, nil
}

func (f *fakeRemote) DeleteTask(context.Context, string) error { return nil }
func (f *fakeRemote) TrashTask(context.Context, string) error  { return nil }

func (f *fakeRemote) CreateManualTask(context.Context, api.CreateManualRequest) (*task.Task, error) {
	return f.updated, nil
}

func (f *fakeRemote) EnhanceTask(context.Context, string) (*task.Task, error) {
	return f.updated, nil
}

func (f *fakeRemote) RateSuggestion(context.Context, string, int, task.Rating) error {
	return nil
}

// Status/Refresh/Logout satisfy auth.API for the deep-link replay tests.
func (f *fakeRemote) Status(context.Context, string) (*task.User, error) { return f.user, nil }
func (f *fakeRemote) Refresh(context.Context, string) (api.TokenPair, error) {
	return api.TokenPair{}, errors.New("no refresh")
}
func (f *fakeRemote) Logout(context.Context, string) error { return nil }

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: make(map[string]string)} }

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

func sampleTasks() []task.Task {
	return []task.Task{
		{ID: "t1", Title: "alpha", RICU: 2, Reach: 2, Impact: 5, Confidence: 1, Urgency: 2},
		{ID: "t2", Title: "beta", RICU: 10, Reach: 1, Impact: 10, Confidence: 1, Urgency: 1},
		{ID: "t3", Title: "gamma", RICU: 6, Reach: 2, Impact: 6, Confidence: 1, Urgency: 1},
	}
}

func TestReorderMoveToTopScoresAboveNewNeighbor(t *testing.T) {
	remote := &fakeRemote{}
	s := &Service{Remote: remote}

	tasks := sampleTasks()
	out, err := s.Reorder(context.Background(), tasks, 2, 0)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if out[0].ID != "t3" || out[1].ID != "t1" || out[2].ID != "t2" {
		t.Fatalf("order wrong: %s %s %s", out[0].ID, out[1].ID, out[2].ID)
	}
	if len(remote.updates) != 1 {
		t.Fatalf("expected one patch, got %d", len(remote.updates))
	}
	if remote.updateIDs[0] != "t3" {
		t.Fatalf("patched wrong task: %s", remote.updateIDs[0])
	}
	fields := remote.updates[0]
	// New top neighbor below is t1 (ricu 2), so the moved task lands at 2.5.
	if fields["ricu"] != 2.5 {
		t.Fatalf("ricu = %v, want 2.5", fields["ricu"])
	}
	if _, ok := fields["impact"]; !ok {
		t.Fatalf("impact must be patched together with ricu")
	}
	if out[0].RICU != 2.5 {
		t.Fatalf("moved task not updated locally: %v", out[0].RICU)
	}
}

func TestReorderAppliesServerRecordWhenReturned(t *testing.T) {
	remote := &fakeRemote{updated: &task.Task{ID: "t3", Title: "gamma", RICU: 2.5, Impact: 1.25}}
	s := &Service{Remote: remote}

	out, err := s.Reorder(context.Background(), sampleTasks(), 2, 0)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if out[0].Impact != 1.25 {
		t.Fatalf("server record ignored: %+v", out[0])
	}
}

func TestReorderFailureReturnsOriginalOrder(t *testing.T) {
	remote := &fakeRemote{updateErr: &api.TransportError{Op: "patch", Err: errors.New("down")}}
	s := &Service{Remote: remote}

	tasks := sampleTasks()
	out, err := s.Reorder(context.Background(), tasks, 2, 0)
	if err == nil {
		t.Fatalf("expected persistence failure to surface")
	}
	if out[0].ID != "t1" || out[1].ID != "t2" || out[2].ID != "t3" {
		t.Fatalf("failed reorder must revert to the original order")
	}
	var te *api.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestReorderRejectsBadIndices(t *testing.T) {
	s := &Service{Remote: &fakeRemote{}}
	if _, err := s.Reorder(context.Background(), sampleTasks(), 0, 7); err == nil {
		t.Fatalf("expected index validation")
	}
	if _, err := s.Reorder(context.Background(), sampleTasks(), -1, 0); err == nil {
		t.Fatalf("expected index validation")
	}
}

func TestReorderSamePositionIsNoOp(t *testing.T) {
	remote := &fakeRemote{}
	s := &Service{Remote: remote}
	if _, err := s.Reorder(context.Background(), sampleTasks(), 1, 1); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if len(remote.updates) != 0 {
		t.Fatalf("no-op reorder must not patch")
	}
}

func TestCompletePatchesStatus(t *testing.T) {
	remote := &fakeRemote{}
	s := &Service{Remote: remote}
	if _, err := s.Complete(context.Background(), "t1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if remote.updates[0]["status"] != task.StatusCompleted {
		t.Fatalf("status patch wrong: %v", remote.updates[0])
	}
}

func TestReplayDeepLinkConsumesHandoff(t *testing.T) {
	store := newMemStore()
	remote := &fakeRemote{user: &task.User{ID: "u1", Name: "Ada"}}
	ctrl := auth.New(store, remote, "http://login")
	s := &Service{Auth: ctrl, Store: store}

	raw, err := deeplink.Encode(deeplink.Completion{AccessToken: "a", RefreshToken: "r"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(session.KeyDeepLink, raw); err != nil {
		t.Fatal(err)
	}

	done, err := s.ReplayDeepLink(context.Background())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !done {
		t.Fatalf("handoff not processed")
	}
	if ctrl.State() != auth.StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", ctrl.State())
	}
	if _, err := store.Get(session.KeyDeepLink); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("handoff entry not consumed")
	}
}

func TestReplayDeepLinkEmptyQueue(t *testing.T) {
	store := newMemStore()
	s := &Service{Auth: auth.New(store, &fakeRemote{}, "http://login"), Store: store}
	done, err := s.ReplayDeepLink(context.Background())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if done {
		t.Fatalf("nothing to process")
	}
}

func TestReplayDeepLinkCorruptHandoffIsDropped(t *testing.T) {
	store := newMemStore()
	s := &Service{Auth: auth.New(store, &fakeRemote{}, "http://login"), Store: store}
	if err := store.Set(session.KeyDeepLink, "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReplayDeepLink(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := store.Get(session.KeyDeepLink); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("corrupt handoff must be dropped")
	}
}
