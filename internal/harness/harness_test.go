package harness

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/demo"
	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/step"
)

func demoSuite(t *testing.T) Suite {
	t.Helper()
	steps, err := demo.Steps()
	require.NoError(t, err)
	return Suite{Steps: steps, Fixtures: demo.Catalog()}
}

func TestRun_PassingScenario(t *testing.T) {
	scenario := &Scenario{
		Name:     "passing",
		Fixtures: []string{demo.FixtureBasket},
		Steps: []step.Record{
			{Keyword: step.Given, Text: "an empty basket"},
			{Keyword: step.When, Text: "I add 2 pears"},
			{Keyword: step.Then, Text: "the basket holds 2 items"},
		},
		Expect: Expect{Status: "passed"},
	}

	result, err := Run(demoSuite(t), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "%v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "passed", result.Status)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, "I add {count:u32} {item}", result.Trace[1].Pattern)
}

func TestRun_StatusMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:     "mismatch",
		Fixtures: []string{demo.FixtureBasket},
		Steps: []step.Record{
			{Keyword: step.Given, Text: "an empty basket"},
			{Keyword: step.Then, Text: "the basket holds 2 items"},
		},
		Expect: Expect{Status: "passed"},
	}

	result, err := Run(demoSuite(t), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "failed", result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected scenario status passed, got failed")
	assert.Equal(t, "basket holds 0 items, want 2", result.Trace[1].Cause)
}

func TestRun_UnexecutedCount(t *testing.T) {
	two := 2
	scenario := &Scenario{
		Name:     "unexecuted",
		Fixtures: []string{demo.FixtureBasket},
		Steps: []step.Record{
			{Keyword: step.When, Text: "I remove the figs"},
			{Keyword: step.Then, Text: "the basket holds 0 items"},
		},
		Expect: Expect{Status: "failed", Unexecuted: &two},
	}

	result, err := Run(demoSuite(t), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors, "expected 2 unexecuted steps, got 1")
	assert.Equal(t, StatusUnexecuted, result.Trace[1].Status)
	assert.Equal(t, 1, result.Trace[1].Index)
}

func TestRun_UnknownFixture(t *testing.T) {
	scenario := &Scenario{
		Name:     "unknown_fixture",
		Fixtures: []string{"till"},
		Steps:    []step.Record{{Keyword: step.Given, Text: "an empty basket"}},
		Expect:   Expect{Status: "passed"},
	}

	_, err := Run(demoSuite(t), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to instantiate fixtures")
}

func TestRun_NoCatalog(t *testing.T) {
	suite := demoSuite(t)
	suite.Fixtures = nil
	scenario := &Scenario{
		Name:     "no_catalog",
		Fixtures: []string{demo.FixtureBasket},
		Steps:    []step.Record{{Keyword: step.Given, Text: "an empty basket"}},
		Expect:   Expect{Status: "passed"},
	}

	_, err := Run(suite, scenario)
	assert.ErrorContains(t, err, "no catalog")
}

func TestRun_FixedRunID(t *testing.T) {
	scenario := &Scenario{
		Name:     "fixed_run",
		RunID:    "run-fixed",
		Fixtures: []string{demo.FixtureBasket},
		Steps:    []step.Record{{Keyword: step.Given, Text: "an empty basket"}},
		Expect:   Expect{Status: "passed"},
	}

	result, err := Run(demoSuite(t), scenario)
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", result.Scenario.RunID)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/shopping.yaml")
	require.NoError(t, err)

	h := New(demoSuite(t))
	first, err := h.Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := h.Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Scenario.RunID, second.Scenario.RunID)
}

type recordingObserver struct {
	steps     int
	scenarios []engine.ScenarioResult
}

func (o *recordingObserver) StepFinished(*engine.Scenario, engine.Outcome) { o.steps++ }
func (o *recordingObserver) ScenarioFinished(r engine.ScenarioResult) {
	o.scenarios = append(o.scenarios, r)
}

func TestRun_EngineOptions(t *testing.T) {
	obs := &recordingObserver{}
	var logs bytes.Buffer
	h := New(demoSuite(t),
		WithEngineOptions(engine.WithObserver(obs)),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)

	scenario, err := LoadScenario("testdata/scenarios/till_offline.yaml")
	require.NoError(t, err)
	result, err := h.Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "%v", result.Errors)

	assert.Equal(t, 3, obs.steps)
	require.Len(t, obs.scenarios, 1)
	assert.Equal(t, engine.StatusSkipped, obs.scenarios[0].Status())
	assert.Contains(t, logs.String(), "scenario completed")
	assert.Contains(t, logs.String(), "scenario=till_offline")
}

func TestRun_WithAsync(t *testing.T) {
	scenario := &Scenario{
		Name:     "forced_async",
		Fixtures: []string{demo.FixtureBasket, demo.FixtureWarehouse},
		Steps: []step.Record{
			{Keyword: step.When, Text: "the warehouse restocks 3 pears"},
			{Keyword: step.And, Text: "I reserve 2 pears from the warehouse"},
			{Keyword: step.Then, Text: "the basket has 2 pears"},
		},
		Expect: Expect{Status: "passed"},
	}

	result, err := New(demoSuite(t), WithAsync(true)).Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "%v", result.Errors)
}

func TestResult_AddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)

	result.AddError("first")
	result.AddError("second")
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"first", "second"}, result.Errors)
}
