package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/perch/pkg/app"
	"tableflip.dev/perch/pkg/commands/options"
	"tableflip.dev/perch/pkg/runner/tasks"
	"tableflip.dev/perch/pkg/task"
)

func addTasks(topLevel *cobra.Command) {
	to := &options.TaskOptions{}

	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "ls"},
		Short:   "list tasks in priority order",
		Example: `
perch tasks
perch tasks --status=completed --limit=10
`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			svc, err := app.Setup(ctx)
			if err != nil {
				return err
			}
			g := tasks.Get{
				ShowID:   to.ShowID,
				Limit:    to.Limit,
				Status:   task.Status(to.Status),
				Priority: to.Priority,
				Service:  svc,
			}
			return output.HandleError(g.Do(ctx))
		},
	}
	options.AddTaskArgs(cmd, to)
	options.AddOutputArg(cmd, output)

	cmd.AddCommand(newTaskAddCommand())
	cmd.AddCommand(newTaskIDCommand("show", []string{"get"},
		"show one task with its suggestions",
		func(svc *app.Service, id string) runnerOp {
			return &tasks.Show{ID: id, Service: svc}
		}))
	cmd.AddCommand(newTaskIDCommand("complete", []string{"completed", "done"},
		"complete a task",
		func(svc *app.Service, id string) runnerOp {
			return &tasks.Complete{ID: id, Service: svc}
		}))
	cmd.AddCommand(newTaskIDCommand("reopen", nil,
		"put a completed task back in the pending list",
		func(svc *app.Service, id string) runnerOp {
			return &tasks.Reopen{ID: id, Service: svc}
		}))
	cmd.AddCommand(newTaskIDCommand("trash", nil,
		"move a task to the trash",
		func(svc *app.Service, id string) runnerOp {
			return &tasks.Trash{ID: id, Service: svc}
		}))
	cmd.AddCommand(newTaskIDCommand("delete", []string{"rm"},
		"delete a task permanently",
		func(svc *app.Service, id string) runnerOp {
			return &tasks.Delete{ID: id, Service: svc}
		}))

	topLevel.AddCommand(cmd)
}

type runnerOp interface {
	Do(ctx context.Context) error
}

func newTaskAddCommand() *cobra.Command {
	ao := &options.AddOptions{}
	text := ""

	cmd := &cobra.Command{
		Use:   "add",
		Short: "create a task from text",
		Example: `
perch tasks add follow up with dana about the launch --due=2026-09-01
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires the task text")
			}
			text = strings.Join(args, " ")

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			svc, err := app.Setup(ctx)
			if err != nil {
				return err
			}
			a := tasks.Add{
				Text:       text,
				Context:    ao.Context,
				DueDate:    ao.DueDate,
				Reach:      ao.Reach,
				Impact:     ao.Impact,
				Confidence: ao.Confidence,
				Service:    svc,
			}
			return output.HandleError(a.Do(ctx))
		},
	}
	options.AddAddArgs(cmd, ao)

	return cmd
}

func newTaskIDCommand(use string, aliases []string, short string, build func(*app.Service, string) runnerOp) *cobra.Command {
	io := &options.IDOptions{}

	return &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Example: `
perch tasks ` + use + ` <task id>
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a task id")
			}
			io.ID = strings.Join(args, " ")

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			svc, err := app.Setup(ctx)
			if err != nil {
				return err
			}
			return output.HandleError(build(svc, io.ID).Do(ctx))
		},
	}
}
