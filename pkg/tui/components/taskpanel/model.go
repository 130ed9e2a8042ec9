// Package taskpanel renders the priority-ordered task list with a cursor and
// a grab-to-reorder mode.
package taskpanel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/spinner"
	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/perch/pkg/task"
	"tableflip.dev/perch/pkg/tui/events"
	"tableflip.dev/perch/pkg/tui/theme"
)

// ID identifies the panel in cross-component events.
const ID events.ComponentID = "taskpanel"

// Model holds the task list state.
type Model struct {
	th     theme.PanelTheme
	footer theme.FooterTheme

	width  int
	height int

	tasks  []task.Task
	cursor int

	grabbed  bool
	grabFrom int
	ungrab   []task.Task

	loading bool
	spin    spinner.Model

	status  string
	errText string
}

// New returns an empty panel in the loading state.
func New(th theme.PanelTheme, footer theme.FooterTheme) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return Model{
		th:      th,
		footer:  footer,
		width:   44,
		height:  16,
		loading: true,
		spin:    sp,
	}
}

// Init starts the loading spinner.
func (m Model) Init() tea.Cmd {
	if m.loading {
		return m.spin.Tick
	}
	return nil
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

// SetTasks replaces the list and drops any in-progress grab.
func (m *Model) SetTasks(tasks []task.Task) {
	m.tasks = tasks
	m.loading = false
	m.errText = ""
	m.grabbed = false
	m.ungrab = nil
	if m.cursor >= len(tasks) {
		m.cursor = len(tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// SetLoading toggles the spinner state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
	if loading {
		m.errText = ""
	}
}

// SetStatus sets the footer status line.
func (m *Model) SetStatus(status string) {
	m.status = status
}

// SetError surfaces an operation failure in the footer.
func (m *Model) SetError(err error) {
	m.loading = false
	if err == nil {
		m.errText = ""
		return
	}
	m.errText = err.Error()
}

// Tasks returns the currently displayed list.
func (m Model) Tasks() []task.Task { return m.tasks }

// Cursor returns the selected row index.
func (m Model) Cursor() int { return m.cursor }

// Grabbed reports whether a row is being dragged.
func (m Model) Grabbed() bool { return m.grabbed }

// Update handles panel keys and spinner ticks.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return cmd
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if len(m.tasks) == 0 {
		return nil
	}
	switch msg.String() {
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "g", "space":
		return m.toggleGrab()
	case "esc":
		m.cancelGrab()
	case "enter":
		if !m.grabbed {
			return events.DetailRequestCmd(ID, m.tasks[m.cursor])
		}
	case "c":
		if !m.grabbed {
			return events.CompleteRequestCmd(ID, m.tasks[m.cursor].ID)
		}
	}
	return nil
}

// move shifts the cursor; while grabbing it drags the held row with it.
func (m *Model) move(delta int) {
	next := m.cursor + delta
	if next < 0 || next >= len(m.tasks) {
		return
	}
	if m.grabbed {
		m.tasks[m.cursor], m.tasks[next] = m.tasks[next], m.tasks[m.cursor]
	}
	m.cursor = next
}

func (m *Model) toggleGrab() tea.Cmd {
	if !m.grabbed {
		m.grabbed = true
		m.grabFrom = m.cursor
		m.ungrab = make([]task.Task, len(m.tasks))
		copy(m.ungrab, m.tasks)
		return nil
	}
	m.grabbed = false
	m.ungrab = nil
	if m.grabFrom == m.cursor {
		return nil
	}
	return events.ReorderRequestCmd(ID, m.grabFrom, m.cursor)
}

// cancelGrab restores the pre-grab order.
func (m *Model) cancelGrab() {
	if !m.grabbed {
		return
	}
	m.grabbed = false
	m.tasks = m.ungrab
	m.ungrab = nil
	m.cursor = m.grabFrom
}

// View renders the framed task list.
func (m Model) View() string {
	inner := m.width - 4 // frame border and padding
	if inner < 10 {
		inner = 10
	}
	rows := m.height - 4 // title and footer
	if rows < 1 {
		rows = 1
	}

	var b strings.Builder
	b.WriteString(m.th.Title.Render("Tasks"))
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(m.spin.View() + " loading…")
	case len(m.tasks) == 0:
		b.WriteString(m.th.Empty.Render("nothing to do"))
	default:
		top := m.scrollTop(rows)
		for i := top; i < len(m.tasks) && i < top+rows; i++ {
			b.WriteString(m.renderRow(i, inner))
			if i < len(m.tasks)-1 && i < top+rows-1 {
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter(inner))
	return m.th.Frame.Render(b.String())
}

func (m Model) scrollTop(rows int) int {
	if m.cursor < rows {
		return 0
	}
	return m.cursor - rows + 1
}

func (m Model) renderRow(i, width int) string {
	t := m.tasks[i]
	score := m.th.Score.Render(fmt.Sprintf("%5.2f", t.RICU))
	title := t.Title
	if t.Completed() {
		title = m.th.Done.Render(title)
	}
	line := fmt.Sprintf("%s %s", score, title)
	line = truncate(line, width)

	switch {
	case i == m.cursor && m.grabbed:
		return m.th.Grabbed.Render(line)
	case i == m.cursor:
		return m.th.Selected.Render(line)
	default:
		return m.th.Row.Render(line)
	}
}

func (m Model) renderFooter(width int) string {
	if m.errText != "" {
		return m.footer.Error.Render(truncate("ERR: "+m.errText, width))
	}
	if m.status != "" {
		return m.footer.Status.Render(truncate(m.status, width))
	}
	help := "g grab · enter detail · c done · s sleep"
	if m.grabbed {
		help = "↑/↓ move · g drop · esc cancel"
	}
	return m.footer.Help.Render(truncate(help, width))
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
