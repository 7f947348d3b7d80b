package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stepwise/internal/step"
)

// Runtime values for Scenario.Runtime.
const (
	RuntimeSync  = "sync"
	RuntimeAsync = "async"
)

// Scenario is one YAML scenario file: the step records a feature parser
// would produce plus the expected result.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Feature groups scenarios in reports and run history.
	Feature string `yaml:"feature,omitempty"`

	Description string `yaml:"description,omitempty"`

	// Runtime is "sync" (default) or "async". Async scenarios run every
	// step on one shared loop.
	Runtime string `yaml:"runtime,omitempty"`

	// Fixtures names the catalog fixtures to instantiate, in declaration order.
	Fixtures []string `yaml:"fixtures,omitempty"`

	Steps []step.Record `yaml:"steps"`

	Expect Expect `yaml:"expect"`

	// Assertions check individual step outcomes.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID fixes the run identifier for deterministic golden traces.
	RunID string `yaml:"run_id,omitempty"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// Expect is the expected scenario-level result.
type Expect struct {
	// Status is passed, skipped or failed.
	Status string `yaml:"status"`

	// Unexecuted, when set, is the number of steps expected to be left
	// unexecuted after a failure.
	Unexecuted *int `yaml:"unexecuted,omitempty"`
}

// Assertion checks the outcome of one step.
type Assertion struct {
	// Type is one of step_status, error_kind, missing_fixtures,
	// skip_reason, error_contains.
	Type string `yaml:"type"`

	// Step is the zero-based index of the step.
	Step int `yaml:"step"`

	Status string   `yaml:"status,omitempty"`
	Kind   string   `yaml:"kind,omitempty"`
	Names  []string `yaml:"names,omitempty"`
	Reason string   `yaml:"reason,omitempty"`
	Text   string   `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertStepStatus      = "step_status"
	AssertErrorKind       = "error_kind"
	AssertMissingFixtures = "missing_fixtures"
	AssertSkipReason      = "skip_reason"
	AssertErrorContains   = "error_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Path = path
	return sc, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range sc.Steps {
		sc.Steps[i].Index = i
	}

	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by file name.
// Scenario names must be unique across the directory.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	var (
		scenarios []*Scenario
		errs      []error
		names     = make(map[string]string)
	)
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := names[sc.Name]; dup {
			errs = append(errs, fmt.Errorf("%s: scenario name %q already used by %s", path, sc.Name, prev))
			continue
		}
		names[sc.Name] = path
		scenarios = append(scenarios, sc)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch s.Runtime {
	case "", RuntimeSync, RuntimeAsync:
	default:
		return fmt.Errorf("runtime must be %q or %q, got %q", RuntimeSync, RuntimeAsync, s.Runtime)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, st := range s.Steps {
		if st.Keyword == 0 {
			return fmt.Errorf("steps[%d]: keyword is required", i)
		}
		if st.Text == "" {
			return fmt.Errorf("steps[%d]: text is required", i)
		}
	}

	seen := make(map[string]bool, len(s.Fixtures))
	for _, name := range s.Fixtures {
		if seen[name] {
			return fmt.Errorf("fixture %q listed twice", name)
		}
		seen[name] = true
	}

	switch s.Expect.Status {
	case "passed", "skipped", "failed":
	case "":
		return fmt.Errorf("expect.status is required")
	default:
		return fmt.Errorf("expect.status: unknown status %q", s.Expect.Status)
	}
	if s.Expect.Unexecuted != nil && *s.Expect.Unexecuted < 0 {
		return fmt.Errorf("expect.unexecuted must be non-negative")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Step < 0 || a.Step >= steps {
		return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
	}

	switch a.Type {
	case AssertStepStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for step_status", index)
		}
	case AssertErrorKind:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for error_kind", index)
		}
	case AssertMissingFixtures:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names is required for missing_fixtures", index)
		}
	case AssertSkipReason:
		if a.Reason == "" {
			return fmt.Errorf("assertions[%d]: reason is required for skip_reason", index)
		}
	case AssertErrorContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for error_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
