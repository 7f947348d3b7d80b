package engine

import (
	"time"

	"github.com/roach88/stepwise/internal/step"
)

// Status is the terminal class of a step or scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the result of executing one step. Produced exactly once per step.
type Outcome struct {
	// Seq orders outcomes within an engine (see Clock).
	Seq int64

	Record step.Record

	// Keyword is Record.Keyword with And/But resolved.
	Keyword step.Keyword

	// Pattern is the matched definition's pattern source, if any.
	Pattern string

	Status Status

	// Reason is the skip reason for StatusSkipped.
	Reason string

	// Err is set for StatusFailed.
	Err *ExecutionError

	Duration time.Duration
}

// ScenarioResult collects the outcomes of one scenario run.
type ScenarioResult struct {
	RunID   string
	Name    string
	Feature string

	Outcomes []Outcome

	// Unexecuted holds the records after a failing step.
	Unexecuted []step.Record

	// TeardownErr is any error from closing the scenario's fixtures.
	TeardownErr error
}

// Status classifies the scenario: failed if any step failed, skipped if none
// failed and at least one was skipped, passed otherwise.
func (r ScenarioResult) Status() Status {
	skipped := false
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusFailed:
			return StatusFailed
		case StatusSkipped:
			skipped = true
		}
	}
	if skipped {
		return StatusSkipped
	}
	return StatusPassed
}

// Failure returns the first step failure, or nil.
func (r ScenarioResult) Failure() *ExecutionError {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// Counts tallies outcomes by status.
func (r ScenarioResult) Counts() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}
