package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/stepwise/internal/fixture"
	"github.com/roach88/stepwise/internal/loop"
	"github.com/roach88/stepwise/internal/registry"
	"github.com/roach88/stepwise/internal/step"
)

func TestRunScenario_Passed(t *testing.T) {
	e := New(basketSteps(t), WithRunIDs(NewFixedGenerator("run-1")))
	sc := newScenario(t)

	result := e.RunScenario(context.Background(), sc, []step.Record{
		rec(step.Given, "an empty basket"),
		rec(step.When, "I add 2 apples"),
		rec(step.And, "I add 1 pear"),
		rec(step.Then, "the basket holds 3 items"),
	})

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "shopping", result.Name)
	assert.Equal(t, "basket", result.Feature)
	assert.Equal(t, StatusPassed, result.Status())
	require.Len(t, result.Outcomes, 4)
	for i, out := range result.Outcomes {
		assert.Equal(t, i, out.Record.Index)
		assert.Equal(t, StatusPassed, out.Status, "step %d: %v", i, out.Err)
	}
	assert.Empty(t, result.Unexecuted)
	assert.Nil(t, result.Failure())
	assert.NoError(t, result.TeardownErr)
}

func TestRunScenario_SkipContinues(t *testing.T) {
	e := New(basketSteps(t))
	result := e.RunScenario(context.Background(), newScenario(t), []step.Record{
		rec(step.Given, "the shop is closed"),
		rec(step.And, "an empty basket"),
		rec(step.When, "I add 1 lemon"),
		rec(step.Then, "the basket holds 1 items"),
	})

	require.Len(t, result.Outcomes, 4)
	assert.Equal(t, StatusSkipped, result.Outcomes[0].Status)
	assert.Equal(t, "shop closed", result.Outcomes[0].Reason)
	for _, out := range result.Outcomes[1:] {
		assert.Equal(t, StatusPassed, out.Status)
	}
	assert.Equal(t, StatusSkipped, result.Status())
	assert.Equal(t, map[Status]int{StatusSkipped: 1, StatusPassed: 3}, result.Counts())
}

func TestRunScenario_FailureStopsScenario(t *testing.T) {
	e := New(basketSteps(t))
	result := e.RunScenario(context.Background(), newScenario(t), []step.Record{
		rec(step.Given, "an empty basket"),
		rec(step.When, "I add 1 lemon"),
		rec(step.Then, "the basket holds 5 items"),
		rec(step.And, "a missing step"),
		rec(step.And, "another missing step"),
	})

	assert.Equal(t, StatusFailed, result.Status())
	require.Len(t, result.Outcomes, 3)
	require.NotNil(t, result.Failure())
	assert.Equal(t, KindHandlerFailed, result.Failure().Kind)
	assert.ErrorContains(t, result.Failure(), "basket holds 1 items, want 5")

	require.Len(t, result.Unexecuted, 2)
	assert.Equal(t, 3, result.Unexecuted[0].Index)
	assert.Equal(t, "another missing step", result.Unexecuted[1].Text)
	assert.Equal(t, 4, result.Unexecuted[1].Index)
}

func TestRunScenario_ResetsPrimaryKeyword(t *testing.T) {
	e := New(basketSteps(t))
	sc := newScenario(t)
	sc.primary = step.Then

	result := e.RunScenario(context.Background(), sc, []step.Record{
		rec(step.And, "an empty basket"),
	})
	assert.Equal(t, StatusPassed, result.Status())
}

type closingFixture struct {
	closed *int
}

func (c closingFixture) Close() error {
	*c.closed++
	return nil
}

func TestRunScenario_TearsDownFixtures(t *testing.T) {
	closed := 0
	reg := fixture.NewRegistry()
	require.NoError(t, reg.Declare("db", closingFixture{closed: &closed}, fixture.ReadOnly))

	r := registry.New()
	require.NoError(t, r.Given("a database", step.Sync(func(context.Context, *step.Context) error {
		return errors.New("connection refused")
	}), fixture.Need("db")))

	result := New(r).RunScenario(context.Background(), &Scenario{Name: "db", Fixtures: reg}, []step.Record{
		rec(step.Given, "a database"),
	})
	assert.Equal(t, StatusFailed, result.Status())
	assert.Equal(t, 1, closed)
	assert.NoError(t, result.TeardownErr)
	assert.Empty(t, reg.Names())
}

func TestRunScenario_NilFixtures(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Given("nothing", step.Sync(func(context.Context, *step.Context) error { return nil })))

	result := New(r).RunScenario(context.Background(), &Scenario{Name: "empty"}, []step.Record{
		rec(step.Given, "nothing"),
	})
	assert.Equal(t, StatusPassed, result.Status())
}

func TestRunScenario_AsyncSharesOneLoop(t *testing.T) {
	var seen []*loop.Loop
	record := step.Async(func(ctx context.Context, _ *step.Context) <-chan error {
		l, ok := loop.FromContext(ctx)
		if !ok {
			return step.Done(errors.New("no loop"))
		}
		seen = append(seen, l)
		return step.Done(nil)
	})

	r := registry.New()
	require.NoError(t, r.Given("a first async step", record))
	require.NoError(t, r.When("a second async step", record))
	require.NoError(t, r.Then("a sync step", step.Sync(func(ctx context.Context, _ *step.Context) error {
		if _, ok := loop.FromContext(ctx); !ok {
			return errors.New("scenario loop missing")
		}
		return nil
	})))

	sc := newScenario(t)
	sc.Async = true
	result := New(r).RunScenario(context.Background(), sc, []step.Record{
		rec(step.Given, "a first async step"),
		rec(step.When, "a second async step"),
		rec(step.Then, "a sync step"),
	})

	require.Equal(t, StatusPassed, result.Status(), "%v", result.Failure())
	require.Len(t, seen, 2)
	assert.Same(t, seen[0], seen[1])
}

func TestRunScenario_AsyncReusesCallerLoop(t *testing.T) {
	var seen []*loop.Loop
	r := registry.New()
	require.NoError(t, r.When("an async step", step.Async(func(ctx context.Context, _ *step.Context) <-chan error {
		l, _ := loop.FromContext(ctx)
		seen = append(seen, l)
		return step.Done(nil)
	})))

	ctx, outer, err := loop.Start(context.Background())
	require.NoError(t, err)
	defer outer.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	sc := newScenario(t)
	sc.Async = true
	result := New(r, WithLogger(logger)).RunScenario(ctx, sc, []step.Record{
		rec(step.When, "an async step"),
		rec(step.And, "an async step"),
	})

	require.Equal(t, StatusPassed, result.Status(), "%v", result.Failure())
	require.Len(t, seen, 2)
	assert.Same(t, outer, seen[0])
	assert.Same(t, outer, seen[1])
	assert.Empty(t, logs.String())

	// The caller's loop is still open after the scenario.
	assert.NoError(t, outer.Run(ctx, func(context.Context) <-chan error { return step.Done(nil) }))
}

func TestRunScenario_ObserverAndTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	obs := &recordingObserver{}
	e := New(basketSteps(t),
		WithTracer(tp.Tracer("test")),
		WithObserver(obs),
		WithRunIDs(NewFixedGenerator("run-7")))

	result := e.RunScenario(context.Background(), newScenario(t), []step.Record{
		rec(step.Given, "an empty basket"),
		rec(step.When, "a missing step"),
	})
	require.Equal(t, StatusFailed, result.Status())

	require.Len(t, obs.steps, 2)
	require.Len(t, obs.scenarios, 1)
	assert.Equal(t, "run-7", obs.scenarios[0].RunID)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "step Given", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, "step When", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, string(KindStepNotFound), spans[1].Status().Description)
	assert.Equal(t, "scenario shopping", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)

	// Step spans are children of the scenario span.
	assert.Equal(t, spans[2].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestScenarioResult_Status(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusPassed},
		{"all passed", []Status{StatusPassed, StatusPassed}, StatusPassed},
		{"skip wins over pass", []Status{StatusPassed, StatusSkipped}, StatusSkipped},
		{"failure wins", []Status{StatusSkipped, StatusFailed, StatusPassed}, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ScenarioResult
			for _, s := range tt.statuses {
				r.Outcomes = append(r.Outcomes, Outcome{Status: s})
			}
			assert.Equal(t, tt.want, r.Status())
		})
	}
}
