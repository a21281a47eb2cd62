package harness

// StepEvent is one operation recorded in the scenario trace. Triggers
// surfaced by a scan are recorded as their own "trigger" events so that
// assertions can target them individually.
type StepEvent struct {
	Op     string         `json:"op"`
	Detail map[string]any `json:"detail,omitempty"`
	Seq    int            `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success. True when every expect
	// clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains all step events in execution order.
	Trace []StepEvent `json:"trace"`

	// Errors contains expect and assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result, the starting point for a run.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends a step event, assigning the next sequence number.
func (r *Result) AddEvent(op string, detail map[string]any) {
	r.Trace = append(r.Trace, StepEvent{
		Op:     op,
		Detail: detail,
		Seq:    len(r.Trace) + 1,
	})
}
