package fixture

import (
	"fmt"
	"sort"
)

// Factory builds a fresh fixture value for one scenario.
type Factory func() (any, error)

type provider struct {
	access  Access
	factory Factory
}

// Catalog holds named fixture factories shared by every scenario of a suite.
// Each scenario instantiates its own Registry from the catalog, so fixture
// values never leak between scenarios.
type Catalog struct {
	providers map[string]provider
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{providers: make(map[string]provider)}
}

// Provide registers a factory under name.
func (c *Catalog) Provide(name string, access Access, f Factory) error {
	if _, exists := c.providers[name]; exists {
		return fmt.Errorf("provide %q: %w", name, ErrDuplicate)
	}
	if f == nil {
		return fmt.Errorf("provide %q: nil factory", name)
	}
	c.providers[name] = provider{access: access, factory: f}
	return nil
}

// Names returns provided fixture names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instantiate builds a Registry with the named fixtures, in the given order.
// Unknown names are reported together as a *MissingError.
func (c *Catalog) Instantiate(names ...string) (*Registry, error) {
	var unknown []string
	for _, name := range names {
		if _, ok := c.providers[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, &MissingError{Names: unknown}
	}

	reg := NewRegistry()
	for _, name := range names {
		p := c.providers[name]
		value, err := p.factory()
		if err != nil {
			_ = reg.Teardown()
			return nil, fmt.Errorf("fixture %q: %w", name, err)
		}
		if err := reg.Declare(name, value, p.access); err != nil {
			_ = reg.Teardown()
			return nil, err
		}
	}
	return reg, nil
}
