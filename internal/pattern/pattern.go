package pattern

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Segment is one compiled piece of a pattern: a literal or a placeholder.
type Segment struct {
	// Literal is the text to match exactly. Empty for placeholders.
	Literal string

	// Name is the placeholder name. Empty for literals.
	Name string

	// Hint is the optional placeholder type hint (e.g. "u32", "string").
	Hint string
}

// IsPlaceholder reports whether the segment captures text.
func (s Segment) IsPlaceholder() bool {
	return s.Name != ""
}

// Pattern is an immutable compiled step pattern.
// Safe for concurrent use.
type Pattern struct {
	source   string
	segments []Segment
}

// Capture is one extracted placeholder value.
type Capture struct {
	Name string
	Hint string

	// Raw is the text consumed by the placeholder.
	Raw string

	// Value is Raw converted according to Hint (Raw itself when no hint applies).
	Value any
}

// Match holds the captures produced by a successful Pattern.Match, in
// placeholder order.
type Match struct {
	Captures []Capture
}

// Get returns the capture with the given placeholder name.
func (m Match) Get(name string) (Capture, bool) {
	for _, c := range m.Captures {
		if c.Name == name {
			return c, true
		}
	}
	return Capture{}, false
}

// Values returns the raw captured strings keyed by placeholder name.
func (m Match) Values() map[string]string {
	out := make(map[string]string, len(m.Captures))
	for _, c := range m.Captures {
		out[c.Name] = c.Raw
	}
	return out
}

// Compile parses a pattern source into a Pattern.
//
// Returns a *PatternError for empty sources, unbalanced braces, malformed
// placeholder names or hints, duplicate placeholder names, and placeholders
// that are not separated by literal text.
func Compile(src string) (*Pattern, error) {
	normalized := norm.NFC.String(src)
	if strings.TrimSpace(normalized) == "" {
		return nil, newPatternError(ErrCodeEmptyPattern, normalized, 0, "", "pattern is empty")
	}

	tokens, err := lex(normalized)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(tokens))
	segments := make([]Segment, 0, len(tokens))
	for i, tok := range tokens {
		if !tok.placeholder {
			segments = append(segments, Segment{Literal: tok.literal})
			continue
		}

		if _, dup := seen[tok.name]; dup {
			return nil, newPatternError(ErrCodeDuplicatePlaceholder, normalized, tok.offset, tok.name,
				"placeholder name appears more than once")
		}
		seen[tok.name] = struct{}{}

		if i > 0 && tokens[i-1].placeholder {
			return nil, newPatternError(ErrCodeAdjacentPlaceholders, normalized, tok.offset, tok.name,
				"placeholders must be separated by literal text")
		}

		segments = append(segments, Segment{Name: tok.name, Hint: tok.hint})
	}

	return &Pattern{source: src, segments: segments}, nil
}

// MustCompile is like Compile but panics on error.
// Intended for package-level step tables built from constant sources.
func MustCompile(src string) *Pattern {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original pattern source.
func (p *Pattern) String() string {
	return p.source
}

// Segments returns a copy of the compiled segments.
func (p *Pattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Placeholders returns placeholder names in pattern order.
func (p *Pattern) Placeholders() []string {
	var names []string
	for _, s := range p.segments {
		if s.IsPlaceholder() {
			names = append(names, s.Name)
		}
	}
	return names
}

// Match matches text against the pattern.
//
// Returns false when any literal is out of place, a placeholder would capture
// nothing, text remains after the last segment, or a capture fails its type
// hint. Never returns an error: a failed conversion is simply "no match".
func (p *Pattern) Match(text string) (Match, bool) {
	text = norm.NFC.String(text)

	var captures []Capture
	pos := 0
	for i, seg := range p.segments {
		if !seg.IsPlaceholder() {
			if !strings.HasPrefix(text[pos:], seg.Literal) {
				return Match{}, false
			}
			pos += len(seg.Literal)
			continue
		}

		if pos >= len(text) {
			return Match{}, false
		}

		end := len(text)
		if i+1 < len(p.segments) {
			// Compile guarantees the next segment is a literal.
			next := p.segments[i+1].Literal
			_, w := utf8.DecodeRuneInString(text[pos:])
			idx := strings.Index(text[pos+w:], next)
			if idx < 0 {
				return Match{}, false
			}
			end = pos + w + idx
		}

		raw := text[pos:end]
		value, err := convert(seg.Hint, raw)
		if err != nil {
			return Match{}, false
		}
		captures = append(captures, Capture{Name: seg.Name, Hint: seg.Hint, Raw: raw, Value: value})
		pos = end
	}

	if pos != len(text) {
		return Match{}, false
	}
	return Match{Captures: captures}, true
}
