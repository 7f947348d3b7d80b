package pattern

import (
	"errors"
	"fmt"
)

// PatternErrorCode categorizes compile failures.
type PatternErrorCode string

const (
	// ErrCodeUnbalancedBrace indicates a '{' without '}' or a stray '}'.
	ErrCodeUnbalancedBrace PatternErrorCode = "UNBALANCED_BRACE"

	// ErrCodeInvalidPlaceholder indicates a malformed placeholder name or hint.
	ErrCodeInvalidPlaceholder PatternErrorCode = "INVALID_PLACEHOLDER"

	// ErrCodeDuplicatePlaceholder indicates the same name appears twice.
	ErrCodeDuplicatePlaceholder PatternErrorCode = "DUPLICATE_PLACEHOLDER"

	// ErrCodeAdjacentPlaceholders indicates two placeholders with no literal between them.
	ErrCodeAdjacentPlaceholders PatternErrorCode = "ADJACENT_PLACEHOLDERS"

	// ErrCodeEmptyPattern indicates an empty pattern source.
	ErrCodeEmptyPattern PatternErrorCode = "EMPTY_PATTERN"
)

// PatternError is returned by Compile for malformed pattern sources.
// Every PatternError is an "invalid pattern" failure; Code narrows the cause.
type PatternError struct {
	Code PatternErrorCode

	// Message is a human-readable description.
	Message string

	// Pattern is the offending source in NFC form.
	Pattern string

	// Offset is the byte offset in Pattern where the problem was detected.
	Offset int

	// Placeholder names the placeholder involved, if any.
	Placeholder string
}

// Error implements the error interface.
func (e *PatternError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("invalid pattern %q: %s: %s (placeholder=%s, offset=%d)",
			e.Pattern, e.Code, e.Message, e.Placeholder, e.Offset)
	}
	return fmt.Sprintf("invalid pattern %q: %s: %s (offset=%d)", e.Pattern, e.Code, e.Message, e.Offset)
}

// IsInvalidPattern reports whether err is (or wraps) a PatternError.
func IsInvalidPattern(err error) bool {
	var pe *PatternError
	return errors.As(err, &pe)
}

func newPatternError(code PatternErrorCode, src string, offset int, name, msg string) *PatternError {
	return &PatternError{
		Code:        code,
		Message:     msg,
		Pattern:     src,
		Offset:      offset,
		Placeholder: name,
	}
}
