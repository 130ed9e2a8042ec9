package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"tableflip.dev/perch/pkg/task"
)

// ListOptions filters the task list query.
type ListOptions struct {
	Limit    int
	Status   task.Status
	Priority string
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if o.Priority != "" {
		q.Set("priority", o.Priority)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListTasks fetches tasks matching the options.
func (c *Client) ListTasks(ctx context.Context, opts ListOptions) ([]task.Task, error) {
	var out []task.Task
	if err := c.doAuthed(ctx, http.MethodGet, "/api/tasks"+opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask fetches one task by id.
func (c *Client) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var out task.Task
	if err := c.doAuthed(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask patches the given fields on a task and returns the updated
// record. Reorders send ricu and impact together in one call.
func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]any) (*task.Task, error) {
	var out task.Task
	if err := c.doAuthed(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask permanently removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doAuthed(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// TrashTask moves a task to the trash.
func (c *Client) TrashTask(ctx context.Context, id string) error {
	return c.doAuthed(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/trash", nil, nil)
}

// CreateManualRequest is the payload for creating a task by hand, routed
// through the AI pipeline for enrichment.
type CreateManualRequest struct {
	Task          string             `json:"task"`
	ContextString string             `json:"context_string,omitempty"`
	Participants  []task.Participant `json:"participants,omitempty"`
	DueDate       string             `json:"due_date,omitempty"`
	Reach         float64            `json:"reach,omitempty"`
	Impact        float64            `json:"impact,omitempty"`
	Confidence    float64            `json:"confidence,omitempty"`
}

// CreateManualTask creates a task from user input.
func (c *Client) CreateManualTask(ctx context.Context, req CreateManualRequest) (*task.Task, error) {
	var out task.Task
	if err := c.doAuthed(ctx, http.MethodPost, "/api/ai/tasks/create-manual", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnhanceTask asks the backend to regenerate AI suggestions for a task.
func (c *Client) EnhanceTask(ctx context.Context, id string) (*task.Task, error) {
	var out task.Task
	if err := c.doAuthed(ctx, http.MethodPost, "/api/ai/tasks/"+url.PathEscape(id)+"/enhance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RateSuggestion records a good/bad verdict on one AI suggestion.
func (c *Client) RateSuggestion(ctx context.Context, id string, index int, rating task.Rating) error {
	if rating != task.RatingGood && rating != task.RatingBad {
		return fmt.Errorf("api: invalid suggestion rating %q", rating)
	}
	body := map[string]any{
		"suggestionIndex": index,
		"rating":          rating,
	}
	return c.doAuthed(ctx, http.MethodPost, "/api/ai/tasks/"+url.PathEscape(id)+"/suggestions/feedback", body, nil)
}
