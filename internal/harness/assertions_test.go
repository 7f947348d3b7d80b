package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Index: 0, Keyword: "Given", Text: "the till is offline", Status: "skipped", Reason: "till is offline"},
		{Seq: 2, Index: 1, Keyword: "Then", Text: "the total is 1.00 EUR", Status: "failed",
			ErrorKind: "MISSING_FIXTURES", Missing: []string{"prices", "currency"}},
		{Index: 2, Keyword: "And", Text: "the basket holds 1 items", Status: StatusUnexecuted},
	}
}

func sampleResult() *Result {
	r := NewResult()
	r.Trace = sampleTrace()
	return r
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertStepStatus, Step: 0, Status: "skipped"},
		{Type: AssertSkipReason, Step: 0, Reason: "till is offline"},
		{Type: AssertErrorKind, Step: 1, Kind: "MISSING_FIXTURES"},
		{Type: AssertMissingFixtures, Step: 1, Names: []string{"currency", "prices"}},
		{Type: AssertStepStatus, Step: 2, Status: StatusUnexecuted},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertStepStatus, Step: 0, Status: "passed"},
		{Type: AssertErrorKind, Step: 1, Kind: "MISSING_FIXTURES"},
		{Type: AssertErrorKind, Step: 0, Kind: "HANDLER_FAILED"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 0")
	assert.Contains(t, errs[1], "assertion 2")
	assert.Contains(t, errs[1], "Actual: no error")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{{Type: "unknown", Step: 0}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unknown assertion type")
}

func TestEvaluateAssertions_StepNotInTrace(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{{Type: AssertStepStatus, Step: 7, Status: "passed"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "not found in trace")
}

func TestAssertMissingFixtures_Mismatch(t *testing.T) {
	trace := sampleTrace()
	err := assertMissingFixtures(trace, trace[1], Assertion{Type: AssertMissingFixtures, Step: 1, Names: []string{"prices"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: missing [prices]")
	assert.Contains(t, err.Error(), "Actual: missing [currency, prices]")
}

func TestAssertSkipReason_NotSkipped(t *testing.T) {
	trace := sampleTrace()
	err := assertSkipReason(trace, trace[1], Assertion{Type: AssertSkipReason, Step: 1, Reason: "till is offline"})
	assert.Error(t, err)
}

func TestAssertErrorContains(t *testing.T) {
	trace := []TraceEvent{{Index: 0, Status: "failed", Cause: "warehouse has 0 pears, cannot reserve 1"}}

	assert.NoError(t, assertErrorContains(trace, trace[0], Assertion{Step: 0, Text: "cannot reserve"}))
	assert.Error(t, assertErrorContains(trace, trace[0], Assertion{Step: 0, Text: "out of stock"}))
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertStepStatus,
		Expected: "step 0 passed",
		Actual:   "step 0 skipped",
		Trace:    sampleTrace()[:1],
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: step_status")
	assert.Contains(t, msg, "Expected: step 0 passed")
	assert.Contains(t, msg, "Actual: step 0 skipped")
	assert.Contains(t, msg, "[0] Given the till is offline: skipped")
}
