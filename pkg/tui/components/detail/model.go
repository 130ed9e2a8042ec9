// Package detail renders a single task with its AI suggestions and lets the
// user rate them.
package detail

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/perch/pkg/task"
	"tableflip.dev/perch/pkg/tui/events"
	"tableflip.dev/perch/pkg/tui/theme"
)

// ID identifies the detail pane in cross-component events.
const ID events.ComponentID = "detail"

// Model holds the detail display state.
type Model struct {
	th theme.DetailTheme

	width  int
	height int

	t      *task.Task
	cursor int
	status string
}

// New returns an empty detail pane.
func New(th theme.DetailTheme) Model {
	return Model{th: th, width: 44, height: 16}
}

// SetSize updates the pane bounds.
func (m *Model) SetSize(width, height int) {
	if width < 24 {
		width = 24
	}
	if height < 6 {
		height = 6
	}
	m.width = width
	m.height = height
}

// SetTask assigns the task to display.
func (m *Model) SetTask(t *task.Task) {
	m.t = t
	m.cursor = 0
	m.status = ""
}

// SetStatus sets a transient status line ("rated", "enhancing…").
func (m *Model) SetStatus(status string) {
	m.status = status
}

// Task returns the displayed task, nil when the pane is empty.
func (m Model) Task() *task.Task { return m.t }

// Update handles suggestion navigation and rating keys.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok || m.t == nil {
		return nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.t.Suggestions)-1 {
			m.cursor++
		}
	case "g":
		return m.rate(task.RatingGood)
	case "b":
		return m.rate(task.RatingBad)
	}
	return nil
}

func (m *Model) rate(r task.Rating) tea.Cmd {
	if len(m.t.Suggestions) == 0 {
		return nil
	}
	return events.RateRequestCmd(ID, m.t.ID, m.cursor, r)
}

// View renders the framed detail pane.
func (m Model) View() string {
	if m.t == nil {
		return m.th.Frame.Render(m.th.Body.Render("no task selected"))
	}

	inner := m.width - 4
	if inner < 10 {
		inner = 10
	}

	var b strings.Builder
	b.WriteString(m.th.Title.Render(truncate(m.t.Title, inner)))
	b.WriteString("\n")
	b.WriteString(m.th.Body.Render(fmt.Sprintf("score %.2f", m.t.RICU)))
	if m.t.DueDate != "" {
		b.WriteString(m.th.Body.Render("  due " + m.t.DueDate))
	}
	b.WriteString("\n")
	if desc := strings.TrimSpace(m.t.Description); desc != "" {
		b.WriteString(m.th.Body.Render(truncate(desc, inner)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.th.Title.Render("Suggestions"))
	b.WriteString("\n")
	if len(m.t.Suggestions) == 0 {
		b.WriteString(m.th.Verdict.Render("none yet"))
	}
	for i, s := range m.t.Suggestions {
		line := truncate(s.Text, inner-8)
		switch s.Rating {
		case task.RatingGood:
			line += m.th.Verdict.Render(" ✓")
		case task.RatingBad:
			line += m.th.Verdict.Render(" ✗")
		}
		if i == m.cursor {
			line = m.th.Selected.Render(line)
		} else {
			line = m.th.Suggestion.Render(line)
		}
		b.WriteString(line)
		if i < len(m.t.Suggestions)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	foot := "g good · b bad · e enhance · esc back"
	if m.status != "" {
		foot = m.status
	}
	b.WriteString(m.th.Verdict.Render(truncate(foot, inner)))
	return m.th.Frame.Render(b.String())
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width == 1 {
		return string(runes[:1])
	}
	return string(runes[:width-1]) + "…"
}
