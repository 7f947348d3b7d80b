package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s: %s\n", event.Index, event.Keyword, event.Text, event.Status)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the result's trace and
// returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(trace []TraceEvent, a Assertion) error {
	ev, ok := eventAt(trace, a.Step)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("step %d in trace", a.Step),
			Actual:   "not found in trace",
			Trace:    trace,
		}
	}

	switch a.Type {
	case AssertStepStatus:
		return assertStepStatus(trace, ev, a)
	case AssertErrorKind:
		return assertErrorKind(trace, ev, a)
	case AssertMissingFixtures:
		return assertMissingFixtures(trace, ev, a)
	case AssertSkipReason:
		return assertSkipReason(trace, ev, a)
	case AssertErrorContains:
		return assertErrorContains(trace, ev, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func eventAt(trace []TraceEvent, index int) (TraceEvent, bool) {
	for _, ev := range trace {
		if ev.Index == index {
			return ev, true
		}
	}
	return TraceEvent{}, false
}

func assertStepStatus(trace []TraceEvent, ev TraceEvent, a Assertion) error {
	if ev.Status == a.Status {
		return nil
	}
	return &AssertionError{
		Type:     AssertStepStatus,
		Expected: fmt.Sprintf("step %d %s", a.Step, a.Status),
		Actual:   fmt.Sprintf("step %d %s", a.Step, ev.Status),
		Trace:    trace,
	}
}

func assertErrorKind(trace []TraceEvent, ev TraceEvent, a Assertion) error {
	if ev.ErrorKind == a.Kind {
		return nil
	}
	actual := ev.ErrorKind
	if actual == "" {
		actual = "no error"
	}
	return &AssertionError{
		Type:     AssertErrorKind,
		Expected: fmt.Sprintf("step %d failed with %s", a.Step, a.Kind),
		Actual:   actual,
		Trace:    trace,
	}
}

// assertMissingFixtures compares the missing names as sets.
func assertMissingFixtures(trace []TraceEvent, ev TraceEvent, a Assertion) error {
	want := slices.Clone(a.Names)
	got := slices.Clone(ev.Missing)
	sort.Strings(want)
	sort.Strings(got)
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     AssertMissingFixtures,
		Expected: fmt.Sprintf("missing [%s]", strings.Join(want, ", ")),
		Actual:   fmt.Sprintf("missing [%s]", strings.Join(got, ", ")),
		Trace:    trace,
	}
}

func assertSkipReason(trace []TraceEvent, ev TraceEvent, a Assertion) error {
	if ev.Status == "skipped" && ev.Reason == a.Reason {
		return nil
	}
	return &AssertionError{
		Type:     AssertSkipReason,
		Expected: fmt.Sprintf("step %d skipped: %s", a.Step, a.Reason),
		Actual:   fmt.Sprintf("step %d %s: %s", a.Step, ev.Status, ev.Reason),
		Trace:    trace,
	}
}

func assertErrorContains(trace []TraceEvent, ev TraceEvent, a Assertion) error {
	if ev.Cause != "" && strings.Contains(ev.Cause, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertErrorContains,
		Expected: fmt.Sprintf("step %d error containing %q", a.Step, a.Text),
		Actual:   fmt.Sprintf("%q", ev.Cause),
		Trace:    trace,
	}
}
