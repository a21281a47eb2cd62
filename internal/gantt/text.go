package gantt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/replan/internal/plan"
)

// Terminal chart geometry.
const (
	textNameWidth = 28
	textBarWidth  = 50
)

var (
	styleHeader   = lipgloss.NewStyle().Bold(true)
	styleCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleDone     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleBlocked  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleBar      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// RenderText draws a timeline as a styled terminal chart, one row per
// task ordered like the SVG renderer. Deterministic for a given
// timeline and options. Fails with EmptyTimeline when the timeline has
// no tasks.
func RenderText(tl *plan.Timeline, opts Options) (string, error) {
	if tl == nil || len(tl.Tasks) == 0 {
		return "", &plan.Error{
			Code:    plan.CodeEmptyTimeline,
			Message: "cannot render a timeline with no tasks",
		}
	}

	span := tl.ProjectFinishDay()
	if span == 0 {
		span = 1
	}
	col := func(day int) int {
		return day * textBarWidth / span
	}

	critical := make(map[plan.TaskID]bool, len(tl.CriticalPath))
	for _, id := range tl.CriticalPath {
		critical[id] = true
	}

	var b strings.Builder
	b.WriteString(styleHeader.Render(fmt.Sprintf("%s v%d  %s to %s",
		tl.ProjectID, tl.Version,
		tl.AnchorDate.Format("2006-01-02"),
		tl.DayToDate(tl.ProjectFinishDay()).Format("2006-01-02"))))
	b.WriteString("\n\n")

	for _, r := range layoutRows(tl) {
		t := r.task
		name := t.Name
		if runes := []rune(name); len(runes) > textNameWidth {
			name = string(runes[:textNameWidth-1]) + "…"
		}

		bar := taskBar(t, col, opts)
		style := barStyle(t, critical[t.ID], opts)
		fmt.Fprintf(&b, "%-*s %s %s\n", textNameWidth, name, style.Render(bar), taskNote(t, critical[t.ID], opts))
	}
	return b.String(), nil
}

func taskBar(t *plan.Task, col func(int) int, opts Options) string {
	start := col(t.StartDay)
	if t.DurationDays == 0 {
		return strings.Repeat(" ", start) + "◆" + strings.Repeat(" ", textBarWidth-start)
	}
	width := col(t.FinishDay) - start
	if width < 1 {
		width = 1
	}
	filled := 0
	if opts.ShowProgress {
		filled = width * t.ProgressPercent / 100
	}
	return strings.Repeat(" ", start) +
		strings.Repeat("█", filled) +
		strings.Repeat("░", width-filled) +
		strings.Repeat(" ", textBarWidth-start-width+1)
}

func barStyle(t *plan.Task, onCriticalPath bool, opts Options) lipgloss.Style {
	switch {
	case opts.ShowCriticalPath && onCriticalPath:
		return styleCritical
	case t.Status == plan.TaskCompleted:
		return styleDone
	case t.Status == plan.TaskBlocked:
		return styleBlocked
	default:
		return styleBar
	}
}

func taskNote(t *plan.Task, onCriticalPath bool, opts Options) string {
	parts := []string{fmt.Sprintf("%dd", t.DurationDays)}
	if opts.ShowProgress {
		parts = append(parts, fmt.Sprintf("%d%%", t.ProgressPercent))
	}
	if opts.ShowCriticalPath && onCriticalPath {
		parts = append(parts, "critical")
	}
	if t.Status == plan.TaskBlocked {
		parts = append(parts, "blocked")
	}
	return strings.Join(parts, " ")
}

// DependencyList returns a stable textual listing of all dependency
// edges, used by the text view when ShowDependencies is set.
func DependencyList(tl *plan.Timeline) []string {
	var out []string
	for _, id := range tl.TaskIDs() {
		for _, dep := range tl.Tasks[id].DependsOn {
			out = append(out, fmt.Sprintf("%s -> %s (%s)", dep.Predecessor, id, dep.Type))
		}
	}
	sort.Strings(out)
	return out
}
