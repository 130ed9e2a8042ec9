package printers

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/perch/pkg/task"
)

// PrettyPrint renders task lists for the CLI.
type PrettyPrint struct {
	ShowID bool
}

var spacing = strings.Repeat(" ", len("171dff69f8b99dca  "))

func (pp *PrettyPrint) NewLine() {
	fmt.Println("")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = t.Print(spacing)
	}
	_, _ = t.Println(title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = t.Print(spacing)
	}
	_, _ = t.Print(title)
	_, _ = c.Printf(" - %d", count)

	switch count {
	case 1:
		_, _ = c.Println(" task")
	default:
		_, _ = c.Println(" tasks")
	}
}

// Tasks prints a priority-ordered task table.
func (pp *PrettyPrint) Tasks(tasks ...task.Task) {
	if len(tasks) == 0 {
		f := color.New(color.Faint, color.Italic)
		if pp.ShowID {
			_, _ = f.Print(spacing)
		}
		_, _ = f.Print(" none\n\n")
		return
	}

	bold := color.New(color.Bold)
	done := color.New(color.Faint, color.CrossedOut)
	due := color.New(color.FgHiYellow, color.Italic)
	id := color.New(color.FgHiYellow, color.Italic, color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60

	header := []interface{}{bold.Sprint("Score"), bold.Sprint(" "), bold.Sprint("Task"), bold.Sprint("Due")}
	if pp.ShowID {
		header = append([]interface{}{bold.Sprint("ID")}, header...)
	}
	tbl.AddRow(header...)

	for _, t := range tasks {
		title := t.Title
		mark := statusGlyph(t.Status)
		if t.Completed() {
			title = done.Sprint(title)
		}
		row := []interface{}{fmt.Sprintf("%.2f", t.RICU), mark, title, due.Sprint(t.DueDate)}
		if pp.ShowID {
			row = append([]interface{}{id.Sprint(t.ID)}, row...)
		}
		tbl.AddRow(row...)
	}
	tbl.RightAlign(0)
	if pp.ShowID {
		tbl.RightAlign(1)
	}

	_, _ = fmt.Fprintln(color.Output, tbl)
	_, _ = fmt.Fprintln(color.Output, "")
}

// Suggestions prints a task's AI suggestions with their ratings.
func (pp *PrettyPrint) Suggestions(t *task.Task) {
	if t == nil || len(t.Suggestions) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Print(" no suggestions\n\n")
		return
	}
	faint := color.New(color.Faint)
	for i, s := range t.Suggestions {
		verdict := ""
		switch s.Rating {
		case task.RatingGood:
			verdict = faint.Sprint(" (good)")
		case task.RatingBad:
			verdict = faint.Sprint(" (bad)")
		}
		_, _ = fmt.Fprintf(color.Output, "%2d. %s%s\n", i+1, s.Text, verdict)
	}
	_, _ = fmt.Fprintln(color.Output, "")
}

func statusGlyph(s task.Status) string {
	if s == task.StatusCompleted {
		return "✗"
	}
	return "•"
}
