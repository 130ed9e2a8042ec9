package events

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/perch/pkg/auth"
	"tableflip.dev/perch/pkg/task"
)

// ComponentID uniquely identifies a component instance emitting events.
type ComponentID string

// AuthChangedMsg announces an auth state transition observed from the
// controller's listener.
type AuthChangedMsg struct {
	State auth.State
	User  *task.User
}

// Describe renders the transition in a human-friendly format for logs.
func (m AuthChangedMsg) Describe() string {
	name := ""
	if m.User != nil {
		name = m.User.Name
	}
	return fmt.Sprintf(`state:%q user:%q`, m.State, name)
}

// TasksLoadedMsg carries a fresh task list from the remote.
type TasksLoadedMsg struct {
	Tasks []task.Task
}

// Describe implements the logging helper.
func (m TasksLoadedMsg) Describe() string {
	return fmt.Sprintf(`tasks:%d`, len(m.Tasks))
}

// TaskUpdatedMsg announces that one task changed (complete, rate, enhance).
type TaskUpdatedMsg struct {
	Task *task.Task
}

// Describe implements the logging helper.
func (m TaskUpdatedMsg) Describe() string {
	if m.Task == nil {
		return `task:""`
	}
	return fmt.Sprintf(`task:%q`, m.Task.ID)
}

// ReorderedMsg carries the task list after a persisted reorder, or the
// reverted server order when persistence failed.
type ReorderedMsg struct {
	Tasks    []task.Task
	Reverted bool
	Err      error
}

// Describe implements the logging helper.
func (m ReorderedMsg) Describe() string {
	return fmt.Sprintf(`tasks:%d reverted:%t`, len(m.Tasks), m.Reverted)
}

// ErrMsg surfaces an operation failure in the status line.
type ErrMsg struct {
	Err error
}

// Describe implements the logging helper.
func (m ErrMsg) Describe() string {
	return fmt.Sprintf(`err:%q`, m.Err)
}

// SleepTickMsg is the per-minute countdown heartbeat.
type SleepTickMsg struct {
	Remaining time.Duration
}

// Describe implements the logging helper.
func (m SleepTickMsg) Describe() string {
	return fmt.Sprintf(`remaining:%q`, m.Remaining)
}

// SleepEndedMsg fires exactly once when the sleep timer finishes. Woken is
// true for an explicit wake, which re-shows the panel; natural expiry does
// not.
type SleepEndedMsg struct {
	Woken bool
}

// Describe implements the logging helper.
func (m SleepEndedMsg) Describe() string {
	return fmt.Sprintf(`woken:%t`, m.Woken)
}

// SessionChangedMsg announces a session store key change seen by the
// watcher. A deep-link handoff arrives this way.
type SessionChangedMsg struct {
	Key string
}

// Describe implements the logging helper.
func (m SessionChangedMsg) Describe() string {
	return fmt.Sprintf(`key:%q`, m.Key)
}

// DetailRequestMsg asks the root model to open the detail pane for a task.
type DetailRequestMsg struct {
	Component ComponentID
	Task      task.Task
}

// Describe implements the logging helper.
func (m DetailRequestMsg) Describe() string {
	return fmt.Sprintf(`component:%q task:%q`, m.Component, m.Task.ID)
}

// DetailRequestCmd wraps DetailRequestMsg in a tea.Cmd.
func DetailRequestCmd(component ComponentID, t task.Task) tea.Cmd {
	return func() tea.Msg {
		return DetailRequestMsg{Component: component, Task: t}
	}
}

// ReorderRequestMsg asks the root model to persist a drop: the task moved
// from index From to index To in the visible list.
type ReorderRequestMsg struct {
	Component ComponentID
	From      int
	To        int
}

// Describe implements the logging helper.
func (m ReorderRequestMsg) Describe() string {
	return fmt.Sprintf(`component:%q from:%d to:%d`, m.Component, m.From, m.To)
}

// ReorderRequestCmd wraps ReorderRequestMsg in a tea.Cmd.
func ReorderRequestCmd(component ComponentID, from, to int) tea.Cmd {
	return func() tea.Msg {
		return ReorderRequestMsg{Component: component, From: from, To: to}
	}
}

// RateRequestMsg asks the root model to record a suggestion verdict.
type RateRequestMsg struct {
	Component ComponentID
	TaskID    string
	Index     int
	Rating    task.Rating
}

// Describe implements the logging helper.
func (m RateRequestMsg) Describe() string {
	return fmt.Sprintf(`component:%q task:%q index:%d rating:%q`, m.Component, m.TaskID, m.Index, m.Rating)
}

// RateRequestCmd wraps RateRequestMsg in a tea.Cmd.
func RateRequestCmd(component ComponentID, taskID string, index int, rating task.Rating) tea.Cmd {
	return func() tea.Msg {
		return RateRequestMsg{Component: component, TaskID: taskID, Index: index, Rating: rating}
	}
}

// CompleteRequestMsg asks the root model to mark a task completed.
type CompleteRequestMsg struct {
	Component ComponentID
	TaskID    string
}

// Describe implements the logging helper.
func (m CompleteRequestMsg) Describe() string {
	return fmt.Sprintf(`component:%q task:%q`, m.Component, m.TaskID)
}

// CompleteRequestCmd wraps CompleteRequestMsg in a tea.Cmd.
func CompleteRequestCmd(component ComponentID, taskID string) tea.Cmd {
	return func() tea.Msg {
		return CompleteRequestMsg{Component: component, TaskID: taskID}
	}
}
