package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/fixture"
	"github.com/roach88/stepwise/internal/registry"
	"github.com/roach88/stepwise/internal/testutil"
)

// Suite is what scenarios run against: the step definitions and the
// factories for the fixtures scenarios may name.
type Suite struct {
	Steps    *registry.Registry
	Fixtures *fixture.Catalog
}

// Harness runs YAML scenarios through a real engine and checks the outcome
// against each scenario's expectations.
//
// Every scenario gets a fresh engine and fresh fixtures, so scenarios are
// isolated and their traces are reproducible.
type Harness struct {
	suite      Suite
	logger     *slog.Logger
	engineOpts []engine.Option
	async      bool
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used by the harness and its engines.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// WithEngineOptions appends options to every engine the harness creates.
// They are applied after the harness defaults and may override them.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(h *Harness) {
		h.engineOpts = append(h.engineOpts, opts...)
	}
}

// WithAsync starts one async loop per scenario and runs all of that
// scenario's steps on it, regardless of the scenario's own runtime field.
func WithAsync(async bool) Option {
	return func(h *Harness) {
		h.async = async
	}
}

// New creates a harness for suite.
func New(suite Suite, opts ...Option) *Harness {
	h := &Harness{
		suite:  suite,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs by default
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario and returns the result.
//
// An error is returned only when the scenario cannot be run at all, e.g.
// because a listed fixture has no factory. Step failures and expectation
// mismatches are reported through the Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if h.suite.Steps == nil {
		return nil, fmt.Errorf("harness suite has no step registry")
	}

	fixtures := fixture.NewRegistry()
	if len(scenario.Fixtures) > 0 {
		if h.suite.Fixtures == nil {
			return nil, fmt.Errorf("scenario %q lists fixtures but the suite has no catalog", scenario.Name)
		}
		var err error
		fixtures, err = h.suite.Fixtures.Instantiate(scenario.Fixtures...)
		if err != nil {
			return nil, fmt.Errorf("failed to instantiate fixtures: %w", err)
		}
	}

	opts := []engine.Option{engine.WithLogger(h.logger)}
	if scenario.RunID != "" {
		opts = append(opts, engine.WithRunIDs(testutil.NewFixedRunIDGenerator(scenario.RunID)))
	}
	opts = append(opts, h.engineOpts...)
	eng := engine.New(h.suite.Steps, opts...)

	sc := &engine.Scenario{
		Name:     scenario.Name,
		Feature:  scenario.Feature,
		Fixtures: fixtures,
		Async:    h.async || scenario.Runtime == RuntimeAsync,
	}
	sr := eng.RunScenario(ctx, sc, scenario.Steps)

	result := NewResult()
	result.Status = string(sr.Status())
	result.Trace = traceOf(sr)
	result.Scenario = sr

	if sr.TeardownErr != nil {
		result.AddError(fmt.Sprintf("fixture teardown: %v", sr.TeardownErr))
	}
	if result.Status != scenario.Expect.Status {
		result.AddError(fmt.Sprintf("expected scenario status %s, got %s", scenario.Expect.Status, result.Status))
	}
	if want := scenario.Expect.Unexecuted; want != nil && *want != len(sr.Unexecuted) {
		result.AddError(fmt.Sprintf("expected %d unexecuted steps, got %d", *want, len(sr.Unexecuted)))
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"run_id", sr.RunID,
		"status", result.Status,
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

// Run executes a scenario against suite with a default harness.
func Run(suite Suite, scenario *Scenario) (*Result, error) {
	return New(suite).Run(context.Background(), scenario)
}
