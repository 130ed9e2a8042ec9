// Package compose paints floating panes onto a background at absolute cell
// offsets. The geometry engine decides where a pane goes; this package only
// splices the rendered lines together.
package compose

import (
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
)

// At overlays the foreground view onto the background with its top-left
// corner at (x, y), preserving background content outside the pane bounds.
// Offsets are clamped so the pane always lands fully on the canvas when it
// fits, and flush against the far edge when it does not.
func At(background string, width, height int, foreground string, x, y int) string {
	bgLines := normalize(background, width, height)
	if foreground == "" {
		return strings.Join(bgLines, "\n")
	}

	fgLines := strings.Split(foreground, "\n")
	fgWidth := 0
	for _, line := range fgLines {
		if w := lipgloss.Width(line); w > fgWidth {
			fgWidth = w
		}
	}
	if fgWidth == 0 {
		return strings.Join(bgLines, "\n")
	}
	if fgWidth > width {
		fgWidth = width
	}
	fgHeight := len(fgLines)
	if fgHeight > height {
		fgHeight = height
	}

	if x < 0 {
		x = 0
	}
	if x > width-fgWidth {
		x = width - fgWidth
	}
	if y < 0 {
		y = 0
	}
	if y > height-fgHeight {
		y = height - fgHeight
	}

	for row := 0; row < fgHeight; row++ {
		destY := y + row
		if destY < 0 || destY >= len(bgLines) {
			continue
		}
		fgLine := padToWidth(fgLines[row], fgWidth)

		baseLine := bgLines[destY]
		prefix := sliceWidth(baseLine, 0, x)
		suffix := sliceWidth(baseLine, x+fgWidth, width)
		bgLines[destY] = prefix + fgLine + suffix
	}

	return strings.Join(bgLines, "\n")
}

func normalize(view string, width, height int) []string {
	lines := strings.Split(view, "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i := range lines {
		lines[i] = padToWidth(lines[i], width)
	}
	return lines
}

func padToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	currWidth := lipgloss.Width(s)
	if currWidth >= width {
		return lipgloss.NewStyle().Width(width).Render(s)
	}
	return s + strings.Repeat(" ", width-currWidth)
}

func sliceWidth(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	if end > lipgloss.Width(s) {
		end = lipgloss.Width(s)
	}
	if start >= end {
		return ""
	}

	runes := []rune(s)
	result := strings.Builder{}
	widthSeen := 0
	for _, r := range runes {
		rw := lipgloss.Width(string(r))
		next := widthSeen + rw
		if next <= start {
			widthSeen = next
			continue
		}
		if widthSeen >= end {
			break
		}
		if next > end {
			break
		}
		result.WriteRune(r)
		widthSeen = next
	}
	return result.String()
}
