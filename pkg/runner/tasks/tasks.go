// Package tasks provides the runner logic for the task subcommands.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/perch/pkg/api"
	"tableflip.dev/perch/pkg/app"
	"tableflip.dev/perch/pkg/printers"
	"tableflip.dev/perch/pkg/task"
)

// Get lists tasks in priority order.
type Get struct {
	ShowID   bool
	Limit    int
	Status   task.Status
	Priority string
	Service  *app.Service
}

// Do fetches and prints the matching tasks.
func (n *Get) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not get, no service")
	}
	pp := printers.PrettyPrint{ShowID: n.ShowID}

	all, err := n.Service.Tasks(ctx, api.ListOptions{
		Limit:    n.Limit,
		Status:   n.Status,
		Priority: n.Priority,
	})
	if err != nil {
		return err
	}

	fmt.Println("")
	pp.TitleWithCount("Tasks", len(all))
	pp.Tasks(all...)
	return nil
}

// Show prints one task with its AI suggestions.
type Show struct {
	ID      string
	Service *app.Service
}

// Do fetches and prints the configured task.
func (n *Show) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not show, no service")
	}
	t, err := n.Service.Task(ctx, n.ID)
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{ShowID: true}
	pp.NewLine()
	pp.Tasks(*t)
	pp.Title("Suggestions")
	pp.Suggestions(t)
	return nil
}

// Add creates a task from user input; the backend enriches it with AI
// scoring and suggestions before it lands in the list.
type Add struct {
	Text       string
	Context    string
	DueDate    string
	Reach      float64
	Impact     float64
	Confidence float64
	Service    *app.Service
}

// Do submits the new task and prints the enriched record.
func (n *Add) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not add, no service")
	}
	t, err := n.Service.Create(ctx, api.CreateManualRequest{
		Task:          n.Text,
		ContextString: n.Context,
		DueDate:       n.DueDate,
		Reach:         n.Reach,
		Impact:        n.Impact,
		Confidence:    n.Confidence,
	})
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{}
	fmt.Println("")
	pp.Title("Added")
	pp.Tasks(*t)
	return nil
}

// Complete marks a task as completed.
type Complete struct {
	ID      string
	Service *app.Service
}

// Do executes the completion for the configured task ID.
func (n *Complete) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not complete, no service")
	}
	t, err := n.Service.Complete(ctx, n.ID)
	if err != nil {
		return err
	}
	if t != nil {
		fmt.Printf("completed %q\n", t.Title)
	} else {
		fmt.Printf("completed %s\n", n.ID)
	}
	return nil
}

// Reopen puts a completed task back in the pending list.
type Reopen struct {
	ID      string
	Service *app.Service
}

// Do executes the reopen for the configured task ID.
func (n *Reopen) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not reopen, no service")
	}
	t, err := n.Service.Reopen(ctx, n.ID)
	if err != nil {
		return err
	}
	if t != nil {
		fmt.Printf("reopened %q\n", t.Title)
	} else {
		fmt.Printf("reopened %s\n", n.ID)
	}
	return nil
}

// Trash moves a task to the trash.
type Trash struct {
	ID      string
	Service *app.Service
}

// Do executes the trash operation for the configured task ID.
func (n *Trash) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not trash, no service")
	}
	if err := n.Service.Trash(ctx, n.ID); err != nil {
		return err
	}
	fmt.Printf("trashed %s\n", n.ID)
	return nil
}

// Delete removes a task permanently.
type Delete struct {
	ID      string
	Service *app.Service
}

// Do executes the delete operation for the configured task ID.
func (n *Delete) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not delete, no service")
	}
	if err := n.Service.Delete(ctx, n.ID); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", n.ID)
	return nil
}
