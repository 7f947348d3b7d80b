package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/step"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// passedOutcome builds a passing outcome for record i.
func passedOutcome(seq int64, i int, kw step.Keyword, text, pattern string) engine.Outcome {
	return engine.Outcome{
		Seq:      seq,
		Record:   step.Record{Index: i, Keyword: kw, Text: text},
		Keyword:  kw,
		Pattern:  pattern,
		Status:   engine.StatusPassed,
		Duration: time.Millisecond,
	}
}

// sampleResults returns one passing, one skipped and one failed scenario.
func sampleResults() []engine.ScenarioResult {
	skipped := passedOutcome(1, 0, step.Given, "the till is offline", "the till is offline")
	skipped.Status = engine.StatusSkipped
	skipped.Reason = "till is offline"

	failed := engine.Outcome{
		Seq:     2,
		Record:  step.Record{Index: 1, Keyword: step.And, Text: "the total is 1.00 EUR"},
		Keyword: step.Then,
		Pattern: "the total is {amount:f64} {currency}",
		Status:  engine.StatusFailed,
		Err: &engine.ExecutionError{
			Kind:     engine.KindMissingFixtures,
			Keyword:  step.Then,
			Text:     "the total is 1.00 EUR",
			Pattern:  "the total is {amount:f64} {currency}",
			Required: []string{"basket", "prices"},
			Missing:  []string{"prices"},
		},
	}

	return []engine.ScenarioResult{
		{
			RunID: "sc-1", Name: "shopping", Feature: "basket",
			Outcomes: []engine.Outcome{passedOutcome(1, 0, step.Given, "an empty basket", "an empty basket")},
		},
		{
			RunID: "sc-2", Name: "till_offline", Feature: "checkout",
			Outcomes: []engine.Outcome{skipped, passedOutcome(2, 1, step.When, "I add 1 pears", "I add {count:u32} {item}")},
		},
		{
			RunID: "sc-3", Name: "missing", Feature: "basket",
			Outcomes: []engine.Outcome{
				passedOutcome(1, 0, step.Then, "the basket holds 0 items", "the basket holds {count:u32} items"),
				failed,
			},
			Unexecuted:  []step.Record{{Index: 2, Keyword: step.And, Text: "the basket holds 1 items"}},
			TeardownErr: errors.New("close warehouse: boom"),
		},
	}
}
