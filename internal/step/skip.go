package step

import (
	"errors"
	"fmt"
)

// SkipError is the explicit skip signal. It is not a failure: the
// dispatcher turns it into a Skipped outcome and the scenario continues.
type SkipError struct {
	Reason string
}

// Error implements the error interface.
func (e *SkipError) Error() string {
	if e.Reason == "" {
		return "step skipped"
	}
	return "step skipped: " + e.Reason
}

// Skip returns a skip signal for a handler to return.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// Skipf is Skip with formatting.
func Skipf(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// AsSkip extracts the skip signal from an error or a recovered panic value.
func AsSkip(v any) (*SkipError, bool) {
	switch x := v.(type) {
	case *SkipError:
		return x, x != nil
	case error:
		var se *SkipError
		if errors.As(x, &se) {
			return se, true
		}
	}
	return nil, false
}
