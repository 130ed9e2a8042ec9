package options

import (
	"github.com/spf13/cobra"

	"tableflip.dev/perch/pkg/task"
)

// TaskOptions captures the task list filters.
type TaskOptions struct {
	ShowID   bool
	Limit    int
	Status   string
	Priority string
}

func AddTaskArgs(cmd *cobra.Command, o *TaskOptions) {
	cmd.Flags().BoolVar(&o.ShowID, "id", false,
		"Show task ids.")
	cmd.Flags().IntVar(&o.Limit, "limit", 0,
		"Maximum number of tasks to list; 0 means the server default.")
	cmd.Flags().StringVar(&o.Status, "status", string(task.StatusPending),
		Wrap80(`Filter by status, one of "pending" or "completed"; empty for all.`))
	cmd.Flags().StringVar(&o.Priority, "priority", "",
		"Filter by priority bucket.")
}

// IDOptions captures a task id argument.
type IDOptions struct {
	ID string
}

// AddOptions captures the flags for creating a task by hand.
type AddOptions struct {
	Context    string
	DueDate    string
	Reach      float64
	Impact     float64
	Confidence float64
}

func AddAddArgs(cmd *cobra.Command, o *AddOptions) {
	cmd.Flags().StringVar(&o.Context, "context", "",
		"Extra context passed to the AI enrichment.")
	cmd.Flags().StringVar(&o.DueDate, "due", "",
		"Due date, YYYY-MM-DD.")
	cmd.Flags().Float64Var(&o.Reach, "reach", 0,
		"Reach scoring input; 0 lets the backend decide.")
	cmd.Flags().Float64Var(&o.Impact, "impact", 0,
		"Impact scoring input; 0 lets the backend decide.")
	cmd.Flags().Float64Var(&o.Confidence, "confidence", 0,
		"Confidence scoring input; 0 lets the backend decide.")
}
