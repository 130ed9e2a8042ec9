package app

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/perch/pkg/api"
	"tableflip.dev/perch/pkg/auth"
	"tableflip.dev/perch/pkg/deeplink"
	"tableflip.dev/perch/pkg/reorder"
	"tableflip.dev/perch/pkg/session"
	"tableflip.dev/perch/pkg/sleep"
	"tableflip.dev/perch/pkg/task"
)

// TaskAPI is the slice of the remote client the service needs for task
// operations.
type TaskAPI interface {
	ListTasks(ctx context.Context, opts api.ListOptions) ([]task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	UpdateTask(ctx context.Context, id string, fields map[string]any) (*task.Task, error)
	DeleteTask(ctx context.Context, id string) error
	TrashTask(ctx context.Context, id string) error
	CreateManualTask(ctx context.Context, req api.CreateManualRequest) (*task.Task, error)
	EnhanceTask(ctx context.Context, id string) (*task.Task, error)
	RateSuggestion(ctx context.Context, id string, index int, rating task.Rating) error
}

// Service provides high-level operations over the remote task API.
// It wraps the auth controller, the remote client, and the sync trigger so
// UIs and CLIs can share logic.
type Service struct {
	Auth   *auth.Controller
	Remote TaskAPI
	Sync   *api.SyncTrigger
	Store  session.Store
	Sleep  *sleep.Timer
}

// Tasks lists tasks matching the options.
func (s *Service) Tasks(ctx context.Context, opts api.ListOptions) ([]task.Task, error) {
	if s.Remote == nil {
		return nil, errors.New("app: no remote configured")
	}
	return s.Remote.ListTasks(ctx, opts)
}

// Task fetches one task by id.
func (s *Service) Task(ctx context.Context, id string) (*task.Task, error) {
	if s.Remote == nil {
		return nil, errors.New("app: no remote configured")
	}
	return s.Remote.GetTask(ctx, id)
}

// Complete marks a task completed.
func (s *Service) Complete(ctx context.Context, id string) (*task.Task, error) {
	if s.Remote == nil {
		return nil, errors.New("app: no remote configured")
	}
	return s.Remote.UpdateTask(ctx, id, map[string]any{"status": task.StatusCompleted})
}

// Reopen puts a completed task back in the pending list.
func (s *Service) Reopen(ctx context.Context, id string) (*task.Task, error) {
	if s.Remote == nil {
		return nil, errors.New("app: no remote configured")
	}
	return s.Remote.UpdateTask(ctx, id, map[string]any{"status": task.StatusPending})
}

// Trash moves a task to the trash.
func (s *Service) Trash(ctx context.Context, id string) error {
	if s.Remote == nil {
		return errors.New("app: no remote configured")
	}
	return s.Remote.TrashTask(ctx, id)
}

// Delete removes a task permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.Remote == nil {
		return errors.New("app: no remote configured")
	}
	return s.Remote.DeleteTask(ctx, id)
}

// Create submits a manually entered task for AI enrichment.
func (s *Service) Create(ctx context.Context, req api.CreateManualRequest) (*task.Task, error) {
	if s.Remote == nil {
		return nil, errors.New("app: no remote configured")
	}
	return s.Remote.CreateManualTask(ctx, req)
}

// Enhance regenerates AI suggestions for a task.
func (s *Service) Enhance(ctx context.Context, id string) (*task.Task, error) {
	if s.Remote == nil {
		return nil, errors.New("app: no remote configured")
	}
	return s.Remote.EnhanceTask(ctx, id)
}

// RateSuggestion records a good/bad verdict on one AI suggestion.
func (s *Service) RateSuggestion(ctx context.Context, id string, index int, rating task.Rating) error {
	if s.Remote == nil {
		return errors.New("app: no remote configured")
	}
	return s.Remote.RateSuggestion(ctx, id, index, rating)
}

// Reorder moves the task at index from to index to, recomputes its priority
// score against its new neighbors, and persists score and back-solved impact
// in a single patch. On success it returns the reordered list with the moved
// task's new numbers applied; on failure it returns the original list so the
// caller can revert, along with the error.
func (s *Service) Reorder(ctx context.Context, tasks []task.Task, from, to int) ([]task.Task, error) {
	if s.Remote == nil {
		return tasks, errors.New("app: no remote configured")
	}
	if from < 0 || from >= len(tasks) || to < 0 || to >= len(tasks) {
		return tasks, fmt.Errorf("app: reorder index out of range (%d -> %d of %d)", from, to, len(tasks))
	}
	if from == to {
		return tasks, nil
	}

	moved := make([]task.Task, len(tasks))
	copy(moved, tasks)
	t := moved[from]
	moved = append(moved[:from], moved[from+1:]...)
	moved = append(moved[:to], append([]task.Task{t}, moved[to:]...)...)

	scores := make([]float64, len(moved))
	for i := range moved {
		scores[i] = moved[i].RICU
	}
	newScore := reorder.Score(scores, to)
	res := reorder.Apply(&moved[to], newScore)

	fields := map[string]any{"ricu": res.RICU, "impact": res.Impact}
	updated, err := s.Remote.UpdateTask(ctx, moved[to].ID, fields)
	if err != nil {
		return tasks, fmt.Errorf("app: persist reorder: %w", err)
	}
	if updated != nil {
		moved[to] = *updated
	}
	return moved, nil
}

// TriggerSync requests one backend sync cycle. It reports whether a request
// was actually sent; cooldown and in-flight coalescing make it a no-op.
func (s *Service) TriggerSync(ctx context.Context, kind api.SyncKind, force bool) (bool, error) {
	if s.Sync == nil {
		return false, errors.New("app: no sync trigger configured")
	}
	return s.Sync.Trigger(ctx, kind, force)
}

// ReplayDeepLink consumes a queued deep-link handoff entry, if any, and
// feeds it to the auth controller. It reports whether a completion was
// processed. The handoff key is deleted before the completion is applied so
// a crash cannot replay it twice.
func (s *Service) ReplayDeepLink(ctx context.Context) (bool, error) {
	if s.Store == nil || s.Auth == nil {
		return false, errors.New("app: no store or auth configured")
	}
	raw, err := s.Store.Get(session.KeyDeepLink)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("app: read deep link handoff: %w", err)
	}
	comp, err := deeplink.Decode(raw)
	if err != nil {
		_ = s.Store.Delete(session.KeyDeepLink)
		return false, fmt.Errorf("app: decode deep link handoff: %w", err)
	}
	if err := s.Store.Delete(session.KeyDeepLink); err != nil {
		return false, fmt.Errorf("app: consume deep link handoff: %w", err)
	}
	if err := s.Auth.Complete(ctx, comp); err != nil {
		return true, err
	}
	return true, nil
}

// Watch subscribes to session store change events.
func (s *Service) Watch(ctx context.Context) (<-chan session.Event, error) {
	if s.Store == nil {
		return nil, errors.New("app: no store configured")
	}
	return s.Store.Watch(ctx)
}
