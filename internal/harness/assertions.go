package harness

import (
	"context"
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails. It includes the
// full trace so the failure can be read without re-running.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []StepEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Op, event.Detail)
	}
	return buf.String()
}

// matchFields checks that every expected field is present in detail
// with an equal value. Subset semantics: detail may carry more fields
// than expect names. Values are compared by their printed form, which
// absorbs the int/string differences YAML decoding introduces.
func matchFields(detail, expect map[string]any) error {
	for key, want := range expect {
		got, ok := detail[key]
		if !ok {
			return fmt.Errorf("missing field %q (want %v)", key, want)
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return fmt.Errorf("field %q: want %v, got %v", key, want, got)
		}
	}
	return nil
}

// evaluateAssertions checks every scenario assertion against the trace
// and the final store state, recording failures on the result.
func evaluateAssertions(ctx context.Context, h *Harness, assertions []Assertion, result *Result) {
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventContains:
			err = assertEventContains(result.Trace, a)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, a)
		case AssertEventCount:
			err = assertEventCount(result.Trace, a)
		case AssertFinalTimeline:
			err = assertFinalTimeline(ctx, h, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			result.AddError(err.Error())
		}
	}
}

// assertEventContains checks that the trace contains an event with the
// given op whose detail matches the expected fields (subset match).
func assertEventContains(trace []StepEvent, a Assertion) error {
	for _, event := range trace {
		if event.Op != a.Op {
			continue
		}
		if matchFields(event.Detail, a.Expect) == nil {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("event %q with fields %v", a.Op, a.Expect),
		Actual:   "no matching event in trace",
		Trace:    trace,
	}
}

// assertEventOrder checks that the named ops appear in the trace in the
// given relative order. Other events may occur between them.
func assertEventOrder(trace []StepEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Ops) && event.Op == a.Ops[next] {
			next++
		}
	}
	if next == len(a.Ops) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: fmt.Sprintf("ops in order %v", a.Ops),
		Actual:   fmt.Sprintf("matched %d of %d, stuck at %q", next, len(a.Ops), a.Ops[next]),
		Trace:    trace,
	}
}

// assertEventCount checks that an op appears exactly Count times.
func assertEventCount(trace []StepEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("event %q appears %d time(s)", a.Op, a.Count),
		Actual:   fmt.Sprintf("appeared %d time(s)", count),
		Trace:    trace,
	}
}

// assertFinalTimeline checks the active timeline's summary figures
// after the flow completed.
func assertFinalTimeline(ctx context.Context, h *Harness, a Assertion) error {
	tl, err := h.store.ActiveTimeline(ctx, h.file.Project)
	if err != nil {
		return fmt.Errorf("final_timeline: %w", err)
	}
	open, err := h.store.ActiveTriggers(ctx, h.file.Project)
	if err != nil {
		return fmt.Errorf("final_timeline: %w", err)
	}

	summary := map[string]any{
		"version":         tl.Version,
		"tasks":           len(tl.Tasks),
		"finish_day":      tl.ProjectFinishDay(),
		"active_triggers": len(open),
	}
	if err := matchFields(summary, a.Expect); err != nil {
		return &AssertionError{
			Type:     AssertFinalTimeline,
			Expected: fmt.Sprint(a.Expect),
			Actual:   fmt.Sprintf("%v (%v)", summary, err),
		}
	}
	return nil
}
