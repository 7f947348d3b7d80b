package step

import (
	"errors"
	"fmt"

	"github.com/roach88/stepwise/internal/fixture"
	"github.com/roach88/stepwise/internal/pattern"
)

var (
	// ErrNoArg is returned when a placeholder name was not captured.
	ErrNoArg = errors.New("no such step argument")

	// ErrNoFixture is returned when a fixture was not bound for this step.
	ErrNoFixture = errors.New("fixture not bound for this step")

	// ErrWrongType is returned when a value has a different type than requested.
	ErrWrongType = errors.New("wrong type")

	// ErrNotExclusive is returned by Mut for fixtures bound in shared mode.
	ErrNotExclusive = errors.New("fixture not borrowed exclusively")
)

// Context is what a handler sees while it runs: the step record, the
// resolved keyword, the pattern captures, and the fixtures bound for it.
// A Context is valid only for the duration of one handler call.
type Context struct {
	record   Record
	keyword  Keyword
	pattern  string
	match    pattern.Match
	bindings map[string]*fixture.Binding
}

// NewContext builds a handler context. Used by the dispatcher.
func NewContext(rec Record, resolved Keyword, patternSrc string, m pattern.Match, bindings []*fixture.Binding) *Context {
	bound := make(map[string]*fixture.Binding, len(bindings))
	for _, b := range bindings {
		bound[b.Name] = b
	}
	return &Context{
		record:   rec,
		keyword:  resolved,
		pattern:  patternSrc,
		match:    m,
		bindings: bound,
	}
}

// Record returns the step record being executed.
func (c *Context) Record() Record { return c.record }

// Text returns the literal step text.
func (c *Context) Text() string { return c.record.Text }

// Keyword returns the resolved (primary) keyword.
func (c *Context) Keyword() Keyword { return c.keyword }

// Pattern returns the source of the matched pattern.
func (c *Context) Pattern() string { return c.pattern }

// Table returns the attached data table.
func (c *Context) Table() Table { return c.record.Table }

// DocString returns the attached doc string, if present.
func (c *Context) DocString() (string, bool) {
	if c.record.DocString == nil {
		return "", false
	}
	return *c.record.DocString, true
}

// Captures returns every placeholder capture in pattern order.
func (c *Context) Captures() []pattern.Capture {
	return c.match.Captures
}

// Arg returns the converted value of a placeholder.
func (c *Context) Arg(name string) (any, bool) {
	capture, ok := c.match.Get(name)
	if !ok {
		return nil, false
	}
	return capture.Value, true
}

// Binding returns the fixture binding for name.
func (c *Context) Binding(name string) (*fixture.Binding, bool) {
	b, ok := c.bindings[name]
	return b, ok
}

// Skip stops the handler and marks the step skipped. It does not return.
// Handlers may equivalently return Skip(reason).
//
// Skip must be called on the goroutine that called the handler, or inside
// a body started with Go. Elsewhere the panic is not recovered.
func (c *Context) Skip(reason string) {
	panic(&SkipError{Reason: reason})
}

// Skipf is Skip with formatting.
func (c *Context) Skipf(format string, args ...any) {
	panic(&SkipError{Reason: fmt.Sprintf(format, args...)})
}

// Arg returns a placeholder value as T.
func Arg[T any](c *Context, name string) (T, error) {
	var zero T
	v, ok := c.Arg(name)
	if !ok {
		return zero, fmt.Errorf("arg %q: %w", name, ErrNoArg)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("arg %q is %T: %w", name, v, ErrWrongType)
	}
	return t, nil
}

// Fixture returns a copy of a bound fixture as T.
func Fixture[T any](c *Context, name string) (T, error) {
	var zero T
	b, ok := c.bindings[name]
	if !ok {
		return zero, fmt.Errorf("fixture %q: %w", name, ErrNoFixture)
	}
	t, ok := b.Value().(T)
	if !ok {
		return zero, fmt.Errorf("fixture %q is %s: %w", name, b.Type(), ErrWrongType)
	}
	return t, nil
}

// Mut returns a pointer to an exclusively bound fixture. Writes through the
// pointer are visible to later steps of the same scenario.
func Mut[T any](c *Context, name string) (*T, error) {
	b, ok := c.bindings[name]
	if !ok {
		return nil, fmt.Errorf("fixture %q: %w", name, ErrNoFixture)
	}
	if b.Mode != fixture.Exclusive {
		return nil, fmt.Errorf("fixture %q: %w", name, ErrNotExclusive)
	}
	p, ok := b.Pointer().(*T)
	if !ok {
		return nil, fmt.Errorf("fixture %q is %s: %w", name, b.Type(), ErrWrongType)
	}
	return p, nil
}
