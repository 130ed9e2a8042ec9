package theme

import "github.com/charmbracelet/lipgloss/v2"

// Theme centralizes Lip Gloss styles for the Bubble Tea UI.
type Theme struct {
	Anchor AnchorTheme
	Panel  PanelTheme
	Detail DetailTheme
	Footer FooterTheme
}

// AnchorTheme styles the small always-visible anchor pane.
type AnchorTheme struct {
	Frame  lipgloss.Style
	Title  lipgloss.Style
	Status lipgloss.Style
	// Dim variants render the anchor while the widget sleeps.
	DimFrame  lipgloss.Style
	DimTitle  lipgloss.Style
	DimStatus lipgloss.Style
}

// PanelTheme styles the task panel.
type PanelTheme struct {
	Frame    lipgloss.Style
	Title    lipgloss.Style
	Row      lipgloss.Style
	Selected lipgloss.Style
	Grabbed  lipgloss.Style
	Done     lipgloss.Style
	Score    lipgloss.Style
	Empty    lipgloss.Style
}

// DetailTheme styles the task detail pane.
type DetailTheme struct {
	Frame      lipgloss.Style
	Title      lipgloss.Style
	Body       lipgloss.Style
	Suggestion lipgloss.Style
	Selected   lipgloss.Style
	Verdict    lipgloss.Style
}

// FooterTheme styles the status line at the panel's bottom edge.
type FooterTheme struct {
	Help   lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
}

// Default returns the built-in theme used across the UI.
func Default() Theme {
	dim := lipgloss.NewStyle().Faint(true)
	return Theme{
		Anchor: AnchorTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1),
			Title:  lipgloss.NewStyle().Bold(true),
			Status: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			DimFrame: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1).
				Faint(true),
			DimTitle:  dim.Bold(true),
			DimStatus: dim,
		},
		Panel: PanelTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1),
			Title:    lipgloss.NewStyle().Bold(true),
			Row:      lipgloss.NewStyle(),
			Selected: lipgloss.NewStyle().Reverse(true),
			Grabbed:  lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Reverse(true),
			Done:     lipgloss.NewStyle().Faint(true).Strikethrough(true),
			Score:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			Empty:    lipgloss.NewStyle().Faint(true).Italic(true),
		},
		Detail: DetailTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				Padding(0, 1),
			Title:      lipgloss.NewStyle().Bold(true),
			Body:       lipgloss.NewStyle(),
			Suggestion: lipgloss.NewStyle(),
			Selected:   lipgloss.NewStyle().Reverse(true),
			Verdict:    lipgloss.NewStyle().Faint(true),
		},
		Footer: FooterTheme{
			Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			Status: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		},
	}
}
