package step

import (
	"fmt"
	"strings"
)

// Keyword is a Gherkin step keyword.
type Keyword int

const (
	Given Keyword = iota + 1
	When
	Then
	And
	But
)

// String returns the canonical keyword spelling.
func (k Keyword) String() string {
	switch k {
	case Given:
		return "Given"
	case When:
		return "When"
	case Then:
		return "Then"
	case And:
		return "And"
	case But:
		return "But"
	default:
		return "Unknown"
	}
}

// IsPrimary reports whether k is Given, When or Then.
func (k Keyword) IsPrimary() bool {
	return k == Given || k == When || k == Then
}

// IsConjunction reports whether k is And or But.
func (k Keyword) IsConjunction() bool {
	return k == And || k == But
}

// Resolve maps a conjunction onto the most recent primary keyword.
// A primary keyword updates *prev and resolves to itself. A conjunction with
// no preceding primary resolves to Given.
func (k Keyword) Resolve(prev *Keyword) Keyword {
	if k.IsConjunction() {
		if prev == nil || !prev.IsPrimary() {
			return Given
		}
		return *prev
	}
	if prev != nil {
		*prev = k
	}
	return k
}

// ParseKeyword parses a keyword case-insensitively, ignoring surrounding whitespace.
func ParseKeyword(s string) (Keyword, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "given":
		return Given, nil
	case "when":
		return When, nil
	case "then":
		return Then, nil
	case "and":
		return And, nil
	case "but":
		return But, nil
	}
	return 0, fmt.Errorf("invalid step keyword: %q", strings.TrimSpace(s))
}

// MarshalText implements encoding.TextMarshaler.
func (k Keyword) MarshalText() ([]byte, error) {
	if k < Given || k > But {
		return nil, fmt.Errorf("invalid step keyword: %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Keyword) UnmarshalText(text []byte) error {
	parsed, err := ParseKeyword(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
