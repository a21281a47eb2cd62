package gantt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/replan/internal/plan"
)

// Options controls what the renderers draw.
type Options struct {
	// ShowCriticalPath outlines critical-path tasks.
	ShowCriticalPath bool
	// ShowProgress fills each bar proportionally to task progress.
	ShowProgress bool
	// ShowDependencies draws connector lines from each predecessor's
	// finish to its successor's start.
	ShowDependencies bool
	// Width is the total drawing width in pixels. Zero means 960.
	Width int
	// Height is the total drawing height in pixels. Zero sizes the
	// drawing to fit the rows.
	Height int
}

const (
	marginLeft  = 220
	marginRight = 20
	marginTop   = 30
	rowHeight   = 28
	barHeight   = 18
	barPad      = (rowHeight - barHeight) / 2

	defaultWidth = 960
)

const (
	colorBar      = "#4a7fb5"
	colorDone     = "#3d8b5f"
	colorBlocked  = "#a0a0a0"
	colorProgress = "#2b517a"
	colorCritical = "#c0392b"
	colorEdge     = "#606060"
	colorGrid     = "#d8d8d8"
	colorText     = "#202020"
)

// row pairs a task with its fixed vertical slot.
type row struct {
	task *plan.Task
	y    int
}

// RenderSVG draws a timeline as an SVG document. One row per task,
// ordered by start day then task ID; the x-axis is scaled linearly from
// project start to project finish. All coordinates are integers, so the
// byte output depends only on the timeline and options. Fails with
// EmptyTimeline when the timeline has no tasks.
func RenderSVG(tl *plan.Timeline, opts Options) ([]byte, error) {
	if tl == nil || len(tl.Tasks) == 0 {
		return nil, &plan.Error{
			Code:    plan.CodeEmptyTimeline,
			Message: "cannot render a timeline with no tasks",
		}
	}

	rows := layoutRows(tl)
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	height := opts.Height
	if height <= 0 {
		height = marginTop + len(rows)*rowHeight + barPad
	}

	span := tl.ProjectFinishDay()
	if span == 0 {
		span = 1 // all-milestone timelines still need a scale
	}
	plotWidth := width - marginLeft - marginRight

	critical := make(map[plan.TaskID]bool, len(tl.CriticalPath))
	for _, id := range tl.CriticalPath {
		critical[id] = true
	}
	// x converts a day offset to a pixel x-coordinate.
	x := func(day int) int {
		return marginLeft + day*plotWidth/span
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="#ffffff"/>`+"\n", width, height)

	writeGrid(&b, tl, span, height, x)
	if opts.ShowDependencies {
		writeEdges(&b, tl, rows, x)
	}
	for _, r := range rows {
		writeBar(&b, r, opts, critical[r.task.ID], x)
	}

	b.WriteString("</svg>\n")
	return []byte(b.String()), nil
}

// layoutRows orders tasks by start day then ID and assigns each a slot.
func layoutRows(tl *plan.Timeline) []row {
	tasks := make([]*plan.Task, 0, len(tl.Tasks))
	for _, t := range tl.Tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].StartDay != tasks[j].StartDay {
			return tasks[i].StartDay < tasks[j].StartDay
		}
		return tasks[i].ID < tasks[j].ID
	})

	rows := make([]row, len(tasks))
	for i, t := range tasks {
		rows[i] = row{task: t, y: marginTop + i*rowHeight}
	}
	return rows
}

// writeGrid draws week lines with their dates along the top.
func writeGrid(b *strings.Builder, tl *plan.Timeline, span, height int, x func(int) int) {
	for day := 0; day <= span; day += 7 {
		px := x(day)
		fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1"/>`+"\n",
			px, marginTop, px, height, colorGrid)
		fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="10" fill="%s">%s</text>`+"\n",
			px+2, marginTop-6, colorText, tl.DayToDate(day).Format("Jan 02"))
	}
}

// writeEdges draws finish-to-start connectors beneath the bars.
func writeEdges(b *strings.Builder, tl *plan.Timeline, rows []row, x func(int) int) {
	slot := make(map[plan.TaskID]int, len(rows))
	for _, r := range rows {
		slot[r.task.ID] = r.y
	}
	for _, r := range rows {
		for _, dep := range r.task.DependsOn {
			pred, ok := tl.Tasks[dep.Predecessor]
			if !ok {
				continue
			}
			fromDay := pred.FinishDay
			if dep.Type == plan.StartToStart {
				fromDay = pred.StartDay
			}
			x1 := x(fromDay)
			y1 := slot[pred.ID] + barPad + barHeight/2
			x2 := x(r.task.StartDay)
			y2 := r.y + barPad + barHeight/2
			fmt.Fprintf(b, `<path d="M %d %d L %d %d L %d %d" fill="none" stroke="%s" stroke-width="1"/>`+"\n",
				x1, y1, x1, y2, x2, y2, colorEdge)
		}
	}
}

func writeBar(b *strings.Builder, r row, opts Options, onCriticalPath bool, x func(int) int) {
	t := r.task
	x1 := x(t.StartDay)
	barW := x(t.FinishDay) - x1
	y := r.y + barPad

	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="12" fill="%s">%s</text>`+"\n",
		8, y+barHeight-5, colorText, escapeText(t.Name))

	if t.DurationDays == 0 {
		// Milestones are diamonds, not bars.
		cx, cy, h := x1, y+barHeight/2, barHeight/2
		fill := colorBar
		if opts.ShowCriticalPath && onCriticalPath {
			fill = colorCritical
		}
		fmt.Fprintf(b, `<path d="M %d %d L %d %d L %d %d L %d %d Z" fill="%s"/>`+"\n",
			cx, cy-h, cx+h, cy, cx, cy+h, cx-h, cy, fill)
		return
	}

	fill := colorBar
	switch t.Status {
	case plan.TaskCompleted:
		fill = colorDone
	case plan.TaskBlocked:
		fill = colorBlocked
	}
	stroke := ""
	if opts.ShowCriticalPath && onCriticalPath {
		stroke = fmt.Sprintf(` stroke="%s" stroke-width="2"`, colorCritical)
	}
	fmt.Fprintf(b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"%s/>`+"\n",
		x1, y, barW, barHeight, fill, stroke)

	if opts.ShowProgress && t.ProgressPercent > 0 {
		doneW := barW * t.ProgressPercent / 100
		fmt.Fprintf(b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`+"\n",
			x1, y, doneW, barHeight, colorProgress)
	}
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
