// Package anchor renders the small always-visible pane the widget collapses
// to. It shows the auth state and, while sleeping, the remaining countdown.
package anchor

import (
	"fmt"
	"time"

	"tableflip.dev/perch/pkg/auth"
	"tableflip.dev/perch/pkg/tui/theme"
)

// Model holds the anchor display state.
type Model struct {
	th theme.AnchorTheme

	authState auth.State
	userName  string
	sleeping  bool
	remaining time.Duration
	expanded  bool
}

// New returns an anchor styled by the theme.
func New(th theme.AnchorTheme) Model {
	return Model{th: th, authState: auth.StateUnauthenticated}
}

// SetAuth records the auth state shown in the status line.
func (m *Model) SetAuth(state auth.State, userName string) {
	m.authState = state
	m.userName = userName
}

// SetSleeping toggles the dimmed countdown rendering.
func (m *Model) SetSleeping(sleeping bool, remaining time.Duration) {
	m.sleeping = sleeping
	m.remaining = remaining
}

// SetExpanded records whether the panel is currently shown.
func (m *Model) SetExpanded(expanded bool) {
	m.expanded = expanded
}

// View renders the anchor pane.
func (m Model) View() string {
	frame, title, status := m.th.Frame, m.th.Title, m.th.Status
	if m.sleeping {
		frame, title, status = m.th.DimFrame, m.th.DimTitle, m.th.DimStatus
	}

	header := "perch"
	if m.expanded {
		header = "perch ◂"
	}

	line := m.statusLine()
	return frame.Render(title.Render(header) + "\n" + status.Render(line))
}

func (m Model) statusLine() string {
	if m.sleeping {
		return "zzz " + formatCountdown(m.remaining)
	}
	switch m.authState {
	case auth.StateAuthenticated:
		if m.userName != "" {
			return m.userName
		}
		return "signed in"
	case auth.StateAuthenticating:
		return "signing in…"
	default:
		return "press i to sign in"
	}
}

func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	min := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, min)
	}
	return fmt.Sprintf("%dm", min)
}
