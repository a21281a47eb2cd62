package plan

import (
	"errors"
	"fmt"
)

// Code categorizes engine errors.
type Code string

const (
	// CodeInvalidFactKind: a fact cannot be mapped to any task template
	// and strict mode was requested.
	CodeInvalidFactKind Code = "INVALID_FACT_KIND"

	// CodeCycleDetected: adding a dependency edge would create a cycle.
	// The offending edge is rejected; the existing graph is untouched.
	CodeCycleDetected Code = "CYCLE_DETECTED"

	// CodeDanglingDependency: a dependency endpoint references a task
	// that does not exist.
	CodeDanglingDependency Code = "DANGLING_DEPENDENCY"

	// CodeCyclicGraph: a graph handed to the CPM pass is not a DAG.
	// Defensive re-check - graph construction should prevent this.
	CodeCyclicGraph Code = "CYCLIC_GRAPH"

	// CodeEmptyTimeline: rendering was requested for a timeline with
	// zero tasks. Distinguishes "no plan yet" from a rendering error.
	CodeEmptyTimeline Code = "EMPTY_TIMELINE"

	// CodeStaleBaseVersion: the proposal's base timeline version was
	// superseded by a concurrently applied proposal. Expected and
	// recoverable - callers re-propose against the new active version.
	CodeStaleBaseVersion Code = "STALE_BASE_VERSION"

	// CodeProposalNotPreviewed: Apply was called on a draft proposal.
	CodeProposalNotPreviewed Code = "PROPOSAL_NOT_PREVIEWED"

	// CodeTriggerAlreadyResolved: the trigger already produced a
	// proposal or was dismissed.
	CodeTriggerAlreadyResolved Code = "TRIGGER_ALREADY_RESOLVED"
)

// Error is a structured engine error with a machine-readable code and
// contextual fields for diagnostics.
type Error struct {
	Code    Code
	Message string

	// ProjectID identifies the affected project, when known.
	ProjectID string

	// TaskID identifies the offending task or edge endpoint, when known.
	TaskID TaskID

	// Details carries additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ProjectID != "" && e.TaskID != "" {
		return fmt.Sprintf("%s: %s (project=%s, task=%s)", e.Code, e.Message, e.ProjectID, e.TaskID)
	}
	if e.ProjectID != "" {
		return fmt.Sprintf("%s: %s (project=%s)", e.Code, e.Message, e.ProjectID)
	}
	if e.TaskID != "" {
		return fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.TaskID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates an Error with the given code and formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the engine error code from err, unwrapping as needed.
// Returns "" if err is not an engine error.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsCode reports whether err carries the given engine error code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsStaleBase reports whether err is a stale base version error.
// Callers should retry against the new active timeline version.
func IsStaleBase(err error) bool {
	return IsCode(err, CodeStaleBaseVersion)
}

// IsCycle reports whether err is a cycle detection error.
func IsCycle(err error) bool {
	return IsCode(err, CodeCycleDetected) || IsCode(err, CodeCyclicGraph)
}
