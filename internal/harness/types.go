package harness

import "github.com/roach88/ixengine/internal/dom"

// TraceFrame is one frame of a scenario run: the clock time after the frame
// and every adapter write made during it. Frame 0 holds the writes made by
// Init.
type TraceFrame struct {
	Frame     int         `json:"frame"`
	TimeMS    float64     `json:"time_ms"`
	Instances int         `json:"instances"`
	Paints    []dom.Paint `json:"paints,omitempty"`
}

// Fault is a runtime fault the engine logged and skipped.
type Fault struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Event      string `json:"event,omitempty"`
	ActionList string `json:"action_list,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every frame in order.
	// Frames with no writes are kept so frame numbers stay aligned with the clock.
	Trace []TraceFrame `json:"trace"`

	// Errors contains assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Warnings are compiler warnings for the document.
	Warnings []string `json:"warnings,omitempty"`

	// Faults are runtime faults in the order they were logged.
	Faults []Fault `json:"faults,omitempty"`

	SessionToken string `json:"session_token"`
	DocumentHash string `json:"document_hash"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceFrame{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddFrame appends a frame to the trace.
func (r *Result) AddFrame(f TraceFrame) {
	r.Trace = append(r.Trace, f)
}

// PaintCount returns the number of writes across the trace.
func (r *Result) PaintCount() int {
	n := 0
	for _, f := range r.Trace {
		n += len(f.Paints)
	}
	return n
}
