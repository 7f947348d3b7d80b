package fixture

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
)

// Mode is the access a step requests when borrowing a fixture.
type Mode int

const (
	// Shared is read access; any number of shared borrows may coexist.
	Shared Mode = iota
	// Exclusive is mutable access; it excludes every other borrow.
	Exclusive
)

// String returns a human-readable label for the mode.
func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Access controls which modes a declared fixture accepts.
type Access int

const (
	// ReadOnly fixtures only accept Shared borrows.
	ReadOnly Access = iota
	// Mutable fixtures accept Shared and Exclusive borrows.
	Mutable
)

// BorrowState is the current borrow state of a slot.
type BorrowState int

const (
	Unborrowed BorrowState = iota
	SharedBorrowed
	ExclusiveBorrowed
)

// String returns a human-readable label for the state.
func (s BorrowState) String() string {
	switch s {
	case Unborrowed:
		return "unborrowed"
	case SharedBorrowed:
		return "shared-borrowed"
	case ExclusiveBorrowed:
		return "exclusively borrowed"
	default:
		return "unknown"
	}
}

// Requirement is a fixture a step handler needs, with the mode it borrows in.
type Requirement struct {
	Name string
	Mode Mode

	// Type, when set, must equal the declared fixture type.
	Type reflect.Type
}

// Need returns a shared requirement for name.
func Need(name string) Requirement {
	return Requirement{Name: name, Mode: Shared}
}

// NeedMut returns an exclusive requirement for name.
func NeedMut(name string) Requirement {
	return Requirement{Name: name, Mode: Exclusive}
}

// NeedOf returns a shared requirement that also checks the fixture type.
func NeedOf[T any](name string) Requirement {
	return Requirement{Name: name, Mode: Shared, Type: reflect.TypeFor[T]()}
}

// NeedMutOf returns an exclusive requirement that also checks the fixture type.
func NeedMutOf[T any](name string) Requirement {
	return Requirement{Name: name, Mode: Exclusive, Type: reflect.TypeFor[T]()}
}

type slot struct {
	name   string
	ptr    reflect.Value // *T holding the fixture value
	access Access
	state  BorrowState
	shared int
}

// Binding is a successful borrow of a fixture slot.
type Binding struct {
	Name string
	Mode Mode
	ptr  reflect.Value
}

// Value returns a copy of the fixture value.
func (b *Binding) Value() any {
	return b.ptr.Elem().Interface()
}

// Pointer returns a pointer to the slot's storage. Only exclusive bindings
// expose it; shared bindings return nil.
func (b *Binding) Pointer() any {
	if b.Mode != Exclusive {
		return nil
	}
	return b.ptr.Interface()
}

// Type returns the declared fixture type.
func (b *Binding) Type() reflect.Type {
	return b.ptr.Type().Elem()
}

// Stats counts successful acquires and releases over a registry's lifetime.
type Stats struct {
	Acquired int
	Released int
}

// Registry maps fixture names to slots for a single scenario.
type Registry struct {
	slots map[string]*slot
	order []string
	stats Stats
}

// NewRegistry creates an empty fixture registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]*slot)}
}

// Declare adds a fixture. The value is copied into slot-owned storage.
// Returns ErrDuplicate if the name is taken and an error for untyped nil values.
func (r *Registry) Declare(name string, value any, access Access) error {
	if name == "" {
		return errors.New("fixture name is empty")
	}
	if _, exists := r.slots[name]; exists {
		return fmt.Errorf("declare %q: %w", name, ErrDuplicate)
	}
	if value == nil {
		return fmt.Errorf("declare %q: value is untyped nil", name)
	}

	v := reflect.ValueOf(value)
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)

	r.slots[name] = &slot{name: name, ptr: ptr, access: access}
	r.order = append(r.order, name)
	return nil
}

// Acquire borrows a fixture in the given mode.
//
// Shared succeeds while the slot is Unborrowed or SharedBorrowed.
// Exclusive succeeds only while the slot is Unborrowed and declared Mutable.
// Returns *MissingError for unknown names and *BorrowConflictError otherwise.
func (r *Registry) Acquire(name string, mode Mode) (*Binding, error) {
	s, ok := r.slots[name]
	if !ok {
		return nil, &MissingError{Names: []string{name}}
	}

	switch mode {
	case Shared:
		if s.state == ExclusiveBorrowed {
			return nil, &BorrowConflictError{Name: name, Requested: mode, State: s.state}
		}
		s.state = SharedBorrowed
		s.shared++
	case Exclusive:
		if s.access != Mutable {
			return nil, &BorrowConflictError{Name: name, Requested: mode, State: s.state, Shared: s.shared, ReadOnly: true}
		}
		if s.state != Unborrowed {
			return nil, &BorrowConflictError{Name: name, Requested: mode, State: s.state, Shared: s.shared}
		}
		s.state = ExclusiveBorrowed
	default:
		return nil, fmt.Errorf("acquire %q: unknown mode %d", name, mode)
	}

	r.stats.Acquired++
	return &Binding{Name: name, Mode: mode, ptr: s.ptr}, nil
}

// Release returns one borrow on the named slot.
func (r *Registry) Release(name string) error {
	s, ok := r.slots[name]
	if !ok {
		return &MissingError{Names: []string{name}}
	}

	switch s.state {
	case ExclusiveBorrowed:
		s.state = Unborrowed
	case SharedBorrowed:
		s.shared--
		if s.shared == 0 {
			s.state = Unborrowed
		}
	default:
		return fmt.Errorf("release %q: %w", name, ErrNotBorrowed)
	}

	r.stats.Released++
	return nil
}

// State returns the borrow state and shared count for a slot.
func (r *Registry) State(name string) (BorrowState, int, bool) {
	s, ok := r.slots[name]
	if !ok {
		return Unborrowed, 0, false
	}
	return s.state, s.shared, true
}

// Has reports whether a fixture is declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.slots[name]
	return ok
}

// Names returns declared fixture names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Unresolved returns, in requirement order, every requirement name that is
// not declared or whose declared type does not match the requirement type.
// Duplicated names are reported once.
func (r *Registry) Unresolved(reqs []Requirement) []string {
	var missing []string
	seen := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		if _, dup := seen[req.Name]; dup {
			continue
		}
		seen[req.Name] = struct{}{}

		s, ok := r.slots[req.Name]
		if !ok || (req.Type != nil && s.ptr.Type().Elem() != req.Type) {
			missing = append(missing, req.Name)
		}
	}
	return missing
}

// Stats returns acquire/release counters.
func (r *Registry) Stats() Stats {
	return r.stats
}

// Teardown closes io.Closer fixtures in reverse declaration order and clears
// the registry. Slots still borrowed are reported with ErrOutstandingBorrow.
func (r *Registry) Teardown() error {
	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		s := r.slots[r.order[i]]
		if s.state != Unborrowed {
			errs = append(errs, fmt.Errorf("teardown %q: %w", s.name, ErrOutstandingBorrow))
		}
		if c, ok := closerOf(s.ptr); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("teardown %q: %w", s.name, err))
			}
		}
	}
	r.slots = make(map[string]*slot)
	r.order = nil
	return errors.Join(errs...)
}

// closerOf finds an io.Closer on the stored value or, for pointer-receiver
// Close methods, on the slot pointer itself.
func closerOf(ptr reflect.Value) (io.Closer, bool) {
	if c, ok := ptr.Elem().Interface().(io.Closer); ok {
		return c, true
	}
	c, ok := ptr.Interface().(io.Closer)
	return c, ok
}
