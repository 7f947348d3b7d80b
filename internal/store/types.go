package store

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one stored suite execution.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Status    string    `json:"status"`
	Passed    int       `json:"passed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`

	// Scenarios is filled by ReadRun only.
	Scenarios []Scenario `json:"scenarios,omitempty"`
}

// Scenario is one stored scenario result.
type Scenario struct {
	// RunID is the engine's run ID for the scenario.
	RunID         string `json:"run_id"`
	Name          string `json:"name"`
	Feature       string `json:"feature,omitempty"`
	Status        string `json:"status"`
	Unexecuted    int    `json:"unexecuted,omitempty"`
	TeardownError string `json:"teardown_error,omitempty"`

	Steps []StepOutcome `json:"steps"`
}

// StepOutcome is one stored step outcome.
type StepOutcome struct {
	Index     int           `json:"index"`
	Seq       int64         `json:"seq"`
	Keyword   string        `json:"keyword"`
	Resolved  string        `json:"resolved"`
	Text      string        `json:"text"`
	Pattern   string        `json:"pattern,omitempty"`
	Status    string        `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// SkippedStep is a skipped step together with where and when it ran.
type SkippedStep struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Scenario  string    `json:"scenario"`
	Index     int       `json:"index"`
	Keyword   string    `json:"keyword"`
	Text      string    `json:"text"`
	Pattern   string    `json:"pattern,omitempty"`
	Reason    string    `json:"reason"`
}
