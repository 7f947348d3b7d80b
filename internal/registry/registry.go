// Package registry holds the step definitions of a test suite and resolves
// step records to them.
//
// Definitions are kept in registration order. Find returns the first
// definition whose keyword matches and whose pattern matches the step text,
// so earlier registrations shadow later ones. Duplicates reports such
// shadowed definitions.
//
// The registry is populated once, before execution, and is then read-only
// apart from usage counters. Find is safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/roach88/stepwise/internal/fixture"
	"github.com/roach88/stepwise/internal/pattern"
	"github.com/roach88/stepwise/internal/step"
)

var (
	// ErrConjunction is returned when a definition is registered for And/But.
	// Conjunctions are resolved to a primary keyword before lookup.
	ErrConjunction = errors.New("step definitions must use Given, When or Then")

	// ErrInvalidHandler is returned for a handler with no body.
	ErrInvalidHandler = errors.New("step handler has no body")

	// ErrNoPattern is returned for a descriptor without a compiled pattern.
	ErrNoPattern = errors.New("step definition has no pattern")

	// ErrDuplicateFixture is returned when a requirement list names a fixture twice.
	ErrDuplicateFixture = errors.New("fixture required twice")
)

// Location is the source position where a step was defined.
type Location struct {
	File string
	Line int
}

// String renders "file.go:12" using the base file name.
func (l Location) String() string {
	if l.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(l.File), l.Line)
}

// Descriptor is one registered step definition.
type Descriptor struct {
	Keyword  step.Keyword
	Pattern  *pattern.Pattern
	Fixtures []fixture.Requirement
	Handler  step.Handler
	Location Location

	// Name is the handler function name, set for inferred definitions.
	Name string
}

// String renders "Given I have {n} items".
func (d *Descriptor) String() string {
	return d.Keyword.String() + " " + d.Pattern.String()
}

// Registry is an ordered collection of step definitions.
type Registry struct {
	mu    sync.Mutex
	steps []*Descriptor
	hits  map[*Descriptor]int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{hits: make(map[*Descriptor]int)}
}

// Register adds a descriptor after validating it.
func (r *Registry) Register(d Descriptor) (*Descriptor, error) {
	if !d.Keyword.IsPrimary() {
		return nil, fmt.Errorf("register %s step: %w", d.Keyword, ErrConjunction)
	}
	if d.Pattern == nil {
		return nil, ErrNoPattern
	}
	if !d.Handler.Valid() {
		return nil, fmt.Errorf("register %q: %w", d.Pattern.String(), ErrInvalidHandler)
	}
	seen := make(map[string]bool, len(d.Fixtures))
	for _, req := range d.Fixtures {
		if seen[req.Name] {
			return nil, fmt.Errorf("register %q: %q: %w", d.Pattern.String(), req.Name, ErrDuplicateFixture)
		}
		seen[req.Name] = true
	}

	stored := d
	stored.Fixtures = append([]fixture.Requirement(nil), d.Fixtures...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, &stored)
	return &stored, nil
}

// Define compiles src and registers it with the caller's source location.
func (r *Registry) Define(kw step.Keyword, src string, h step.Handler, fixtures ...fixture.Requirement) error {
	return r.define(2, kw, src, h, fixtures)
}

// Given registers a Given step.
func (r *Registry) Given(src string, h step.Handler, fixtures ...fixture.Requirement) error {
	return r.define(2, step.Given, src, h, fixtures)
}

// When registers a When step.
func (r *Registry) When(src string, h step.Handler, fixtures ...fixture.Requirement) error {
	return r.define(2, step.When, src, h, fixtures)
}

// Then registers a Then step.
func (r *Registry) Then(src string, h step.Handler, fixtures ...fixture.Requirement) error {
	return r.define(2, step.Then, src, h, fixtures)
}

func (r *Registry) define(skip int, kw step.Keyword, src string, h step.Handler, fixtures []fixture.Requirement) error {
	p, err := pattern.Compile(src)
	if err != nil {
		return err
	}
	_, err = r.Register(Descriptor{
		Keyword:  kw,
		Pattern:  p,
		Fixtures: fixtures,
		Handler:  h,
		Location: callerLocation(skip + 1),
	})
	return err
}

func callerLocation(skip int) Location {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return Location{}
	}
	return Location{File: file, Line: line}
}

// Find returns the first definition for kw whose pattern matches text.
// kw must already be resolved to a primary keyword.
func (r *Registry) Find(kw step.Keyword, text string) (*Descriptor, pattern.Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.steps {
		if d.Keyword != kw {
			continue
		}
		if m, ok := d.Pattern.Match(text); ok {
			r.hits[d]++
			return d, m, true
		}
	}
	return nil, pattern.Match{}, false
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps)
}

// Steps returns every definition in registration order.
func (r *Registry) Steps() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Descriptor(nil), r.steps...)
}

// Hits returns how many times Find resolved to d.
func (r *Registry) Hits(d *Descriptor) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[d]
}

// Unused returns the definitions Find never resolved to, in registration order.
func (r *Registry) Unused() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Descriptor
	for _, d := range r.steps {
		if r.hits[d] == 0 {
			out = append(out, d)
		}
	}
	return out
}

// Duplicates groups definitions that share a keyword and pattern source.
// Only the first of each group can ever be found. Groups are ordered by
// their first registration.
func (r *Registry) Duplicates() [][]*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	type key struct {
		kw  step.Keyword
		src string
	}
	groups := make(map[key][]*Descriptor)
	var order []key
	for _, d := range r.steps {
		k := key{d.Keyword, d.Pattern.String()}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], d)
	}

	var out [][]*Descriptor
	for _, k := range order {
		if len(groups[k]) > 1 {
			out = append(out, groups[k])
		}
	}
	return out
}
