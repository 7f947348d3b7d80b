package harness

import (
	"github.com/roach88/stepwise/internal/engine"
)

// TraceEvent is one executed or unexecuted step in a scenario trace.
// Fields are limited to values that are stable across runs, so traces can
// be compared against golden files.
type TraceEvent struct {
	Seq     int64  `json:"seq,omitempty"`
	Index   int    `json:"index"`
	Keyword string `json:"keyword"`

	// Resolved is the primary keyword And/But resolved to.
	Resolved string `json:"resolved,omitempty"`

	Text    string `json:"text"`
	Pattern string `json:"pattern,omitempty"`

	// Status is passed, skipped, failed, or unexecuted.
	Status string `json:"status"`

	Reason    string   `json:"reason,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Cause     string   `json:"cause,omitempty"`
}

// StatusUnexecuted marks trace events for steps after a failure.
const StatusUnexecuted = "unexecuted"

// Result is the outcome of running one harness scenario.
type Result struct {
	// Pass is true when the scenario matched its expectations.
	Pass bool `json:"pass"`

	// Status is the scenario classification reported by the engine.
	Status string `json:"status"`

	Trace []TraceEvent `json:"trace"`

	// Errors lists expectation mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Scenario is the raw engine result, used by run history.
	Scenario engine.ScenarioResult `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an expectation mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// traceOf converts engine outcomes to trace events.
func traceOf(sr engine.ScenarioResult) []TraceEvent {
	trace := make([]TraceEvent, 0, len(sr.Outcomes)+len(sr.Unexecuted))
	for _, o := range sr.Outcomes {
		ev := TraceEvent{
			Seq:     o.Seq,
			Index:   o.Record.Index,
			Keyword: o.Record.Keyword.String(),
			Text:    o.Record.Text,
			Pattern: o.Pattern,
			Status:  string(o.Status),
			Reason:  o.Reason,
		}
		if o.Keyword != o.Record.Keyword {
			ev.Resolved = o.Keyword.String()
		}
		if o.Err != nil {
			ev.ErrorKind = string(o.Err.Kind)
			ev.Missing = o.Err.Missing
			if o.Err.Cause != nil {
				ev.Cause = o.Err.Cause.Error()
			}
		}
		trace = append(trace, ev)
	}
	for _, rec := range sr.Unexecuted {
		trace = append(trace, TraceEvent{
			Index:   rec.Index,
			Keyword: rec.Keyword.String(),
			Text:    rec.Text,
			Status:  StatusUnexecuted,
		})
	}
	return trace
}
