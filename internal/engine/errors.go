package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/stepwise/internal/loop"
	"github.com/roach88/stepwise/internal/step"
)

// ErrorKind categorizes step failures. The set is closed.
type ErrorKind string

const (
	// KindStepNotFound indicates no registered pattern matched the step text.
	KindStepNotFound ErrorKind = "STEP_NOT_FOUND"

	// KindMissingFixtures indicates one or more required fixtures were absent
	// or declared with a different type.
	KindMissingFixtures ErrorKind = "MISSING_FIXTURES"

	// KindHandlerFailed indicates the step body failed, panicked, or its
	// fixtures could not be borrowed.
	KindHandlerFailed ErrorKind = "HANDLER_FAILED"
)

// ExecutionError is a failed step, with enough structure to render a
// diagnostic without parsing strings.
type ExecutionError struct {
	Kind ErrorKind

	// Keyword is the resolved keyword the step was looked up with.
	Keyword step.Keyword
	Text    string

	// Scenario names the scenario the step belongs to.
	Scenario string

	// Pattern and Location identify the matched definition. Empty for
	// KindStepNotFound.
	Pattern  string
	Location string

	// Required lists every fixture the definition needs; Missing the ones
	// that could not be resolved; Available those declared in the scenario.
	Required  []string
	Missing   []string
	Available []string

	// Cause is the underlying handler error for KindHandlerFailed.
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	switch e.Kind {
	case KindStepNotFound:
		return fmt.Sprintf("%s: no step definition matches %s %q", e.Kind, e.Keyword, e.Text)
	case KindMissingFixtures:
		return fmt.Sprintf("%s: step %q (%s) requires %s; available: %s",
			e.Kind, e.Pattern, e.Location, strings.Join(e.Missing, ", "), listOrNone(e.Available))
	default:
		return fmt.Sprintf("%s: step %q (%s): %v", e.Kind, e.Pattern, e.Location, e.Cause)
	}
}

// Unwrap returns the handler cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether the failure is a configuration error that should
// abort the whole run, such as starting a nested async loop.
func (e *ExecutionError) IsFatal() bool {
	return errors.Is(e.Cause, loop.ErrNested) || errors.Is(e.Cause, loop.ErrReentrant)
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func isKind(err error, kind ErrorKind) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}

// IsStepNotFound reports whether err is an ExecutionError of KindStepNotFound.
func IsStepNotFound(err error) bool { return isKind(err, KindStepNotFound) }

// IsMissingFixtures reports whether err is an ExecutionError of KindMissingFixtures.
func IsMissingFixtures(err error) bool { return isKind(err, KindMissingFixtures) }

// IsHandlerFailed reports whether err is an ExecutionError of KindHandlerFailed.
func IsHandlerFailed(err error) bool { return isKind(err, KindHandlerFailed) }
