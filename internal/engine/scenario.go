package engine

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/stepwise/internal/fixture"
	"github.com/roach88/stepwise/internal/loop"
	"github.com/roach88/stepwise/internal/step"
)

// Scenario is the per-scenario execution state passed to every Execute call.
// It must not be shared between concurrently running scenarios.
type Scenario struct {
	Name    string
	Feature string

	// Fixtures is the scenario's fixture registry. Nil means no fixtures.
	Fixtures *fixture.Registry

	// Async runs the whole scenario on one async loop instead of starting a
	// loop per async step.
	Async bool

	// primary is the most recent primary keyword, used for And/But.
	primary step.Keyword
}

// Primary returns the keyword And/But currently resolve to (zero before the
// first primary step).
func (s *Scenario) Primary() step.Keyword {
	return s.primary
}

// Reset clears the scenario's keyword state.
func (s *Scenario) Reset() {
	s.primary = 0
}

func (s *Scenario) fixtures() *fixture.Registry {
	if s.Fixtures == nil {
		s.Fixtures = fixture.NewRegistry()
	}
	return s.Fixtures
}

// RunScenario executes records in order and tears the scenario's fixtures
// down afterwards. The first failing step stops the scenario; the records
// after it are reported as unexecuted. Skipped steps do not stop it.
func (e *Engine) RunScenario(ctx context.Context, sc *Scenario, records []step.Record) ScenarioResult {
	sc.Reset()
	result := ScenarioResult{
		RunID:   e.runIDs.Generate(),
		Name:    sc.Name,
		Feature: sc.Feature,
	}

	ctx, span := e.tracer.Start(ctx, "scenario "+sc.Name, trace.WithAttributes(
		attribute.String("stepwise.run_id", result.RunID),
		attribute.String("stepwise.feature", sc.Feature),
		attribute.Int("stepwise.steps", len(records)),
	))
	defer span.End()

	if sc.Async {
		lctx, l, err := loop.Start(ctx)
		switch {
		case err == nil:
			ctx = lctx
			defer l.Close()
		case errors.Is(err, loop.ErrNested):
			// The caller's loop already drives the scenario.
		default:
			e.logger.Warn("scenario loop not started, async steps get their own",
				"scenario", sc.Name, "error", err)
			span.RecordError(err)
		}
	}

	for i, rec := range records {
		rec.Index = i
		out := e.Execute(ctx, sc, rec)
		result.Outcomes = append(result.Outcomes, out)
		if out.Status == StatusFailed {
			for j := i + 1; j < len(records); j++ {
				rest := records[j]
				rest.Index = j
				result.Unexecuted = append(result.Unexecuted, rest)
			}
			break
		}
	}

	result.TeardownErr = sc.fixtures().Teardown()
	if result.TeardownErr != nil {
		e.logger.Warn("fixture teardown", "scenario", sc.Name, "error", result.TeardownErr)
	}

	status := result.Status()
	span.SetAttributes(attribute.String("stepwise.status", string(status)))
	if status == StatusFailed {
		span.SetStatus(codes.Error, string(result.Failure().Kind))
	}
	e.logger.Debug("scenario finished",
		"scenario", sc.Name,
		"run_id", result.RunID,
		"status", status,
		"steps", len(result.Outcomes),
		"unexecuted", len(result.Unexecuted))

	for _, o := range e.observers {
		o.ScenarioFinished(result)
	}
	return result
}
