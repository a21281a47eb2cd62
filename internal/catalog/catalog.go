// Package catalog compiles the WBS task-template catalog from CUE.
//
// The catalog declares, per task-generating fact kind, the display label
// and default duration used when a fact carries no terms of its own.
// A default catalog ships embedded; projects can override it with their
// own .cue files. Uses the CUE SDK's Go API directly (not a CLI
// subprocess).
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/replan/internal/plan"
)

//go:embed default.cue
var defaultCUE string

// Template is one compiled task template.
type Template struct {
	Kind         plan.FactKind `json:"kind"`
	Label        string        `json:"label"`
	DurationDays int           `json:"duration_days"`
}

// Name renders the task name for a fact: "<label>: <fact id>".
// Deterministic - task identity derives from it.
func (t Template) Name(factID string) string {
	return fmt.Sprintf("%s: %s", t.Label, factID)
}

// Catalog maps task-generating fact kinds to their templates.
type Catalog struct {
	templates map[plan.FactKind]Template
}

// Lookup returns the template for a fact kind.
func (c *Catalog) Lookup(kind plan.FactKind) (Template, bool) {
	t, ok := c.templates[kind]
	return t, ok
}

// Kinds returns the number of templates in the catalog.
func (c *Catalog) Kinds() int { return len(c.templates) }

// CompileError reports a catalog compilation failure with CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default compiles the embedded catalog. Panics on failure - the
// embedded catalog is validated by tests, so a failure here means a
// broken build, not a runtime condition.
func Default() *Catalog {
	ctx := cuecontext.New()
	v := ctx.CompileString(defaultCUE)
	c, err := Compile(v)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog invalid: %v", err))
	}
	return c
}

// CompileString compiles catalog CUE source.
func CompileString(src string) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	return Compile(v)
}

// Compile parses a CUE value into a Catalog.
//
// Expected shape:
//
//	templates: {
//		contract: {label: "Contract works", duration: 60}
//		...
//	}
//
// Every template key must be a recognized task-generating fact kind;
// durations must be non-negative. Unknown keys are rejected rather than
// silently ignored so a typo cannot drop a template.
func Compile(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, &CompileError{Field: "catalog", Message: err.Error(), Pos: v.Pos()}
	}

	tmplVal := v.LookupPath(cue.ParsePath("templates"))
	if !tmplVal.Exists() {
		return nil, &CompileError{
			Field:   "templates",
			Message: "templates struct is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := tmplVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "templates", Message: err.Error(), Pos: tmplVal.Pos()}
	}

	templates := make(map[plan.FactKind]Template)
	for iter.Next() {
		// The key may be quoted in CUE, strip quotes
		kind := plan.FactKind(strings.Trim(iter.Selector().String(), `"`))
		if !kind.GeneratesTask() {
			return nil, &CompileError{
				Field:   "templates." + string(kind),
				Message: fmt.Sprintf("fact kind %q does not generate tasks", kind),
				Pos:     iter.Value().Pos(),
			}
		}

		tmpl, err := parseTemplate(kind, iter.Value())
		if err != nil {
			return nil, err
		}
		templates[kind] = tmpl
	}

	if len(templates) == 0 {
		return nil, &CompileError{
			Field:   "templates",
			Message: "at least one template is required",
			Pos:     tmplVal.Pos(),
		}
	}

	return &Catalog{templates: templates}, nil
}

func parseTemplate(kind plan.FactKind, v cue.Value) (Template, error) {
	tmpl := Template{Kind: kind}

	labelVal := v.LookupPath(cue.ParsePath("label"))
	if !labelVal.Exists() {
		return tmpl, &CompileError{
			Field:   fmt.Sprintf("templates.%s.label", kind),
			Message: "label is required",
			Pos:     v.Pos(),
		}
	}
	label, err := labelVal.String()
	if err != nil {
		return tmpl, &CompileError{
			Field:   fmt.Sprintf("templates.%s.label", kind),
			Message: err.Error(),
			Pos:     labelVal.Pos(),
		}
	}
	tmpl.Label = label

	durVal := v.LookupPath(cue.ParsePath("duration"))
	if !durVal.Exists() {
		return tmpl, &CompileError{
			Field:   fmt.Sprintf("templates.%s.duration", kind),
			Message: "duration is required",
			Pos:     v.Pos(),
		}
	}
	dur, err := durVal.Int64()
	if err != nil {
		return tmpl, &CompileError{
			Field:   fmt.Sprintf("templates.%s.duration", kind),
			Message: err.Error(),
			Pos:     durVal.Pos(),
		}
	}
	if dur < 0 {
		return tmpl, &CompileError{
			Field:   fmt.Sprintf("templates.%s.duration", kind),
			Message: fmt.Sprintf("duration must be non-negative, got %d", dur),
			Pos:     durVal.Pos(),
		}
	}
	tmpl.DurationDays = int(dur)

	return tmpl, nil
}
