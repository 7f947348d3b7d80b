package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/stepwise/internal/fixture"
	"github.com/roach88/stepwise/internal/loop"
	"github.com/roach88/stepwise/internal/registry"
	"github.com/roach88/stepwise/internal/step"
)

// TracerName is the instrumentation name used for the default tracer.
const TracerName = "github.com/roach88/stepwise/internal/engine"

// Observer is notified after every step and scenario.
// Calls happen on the goroutine running the scenario.
type Observer interface {
	StepFinished(sc *Scenario, o Outcome)
	ScenarioFinished(r ScenarioResult)
}

// Engine dispatches step records to the definitions of a step registry.
//
// An Engine holds no per-scenario state and may run several scenarios
// concurrently, each with its own Scenario value. Steps within a scenario
// always run one after another.
type Engine struct {
	steps     *registry.Registry
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	clock     *Clock
	runIDs    RunIDGenerator
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTracer sets the tracer. Defaults to the global otel provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithClock sets the logical clock used to stamp outcomes.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunIDs sets the run ID generator. Defaults to UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithNow sets the wall-clock source used for step durations.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine over a populated step registry.
func New(steps *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		steps:  steps,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(TracerName),
		clock:  NewClock(),
		runIDs: UUIDv7Generator{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Steps returns the engine's step registry.
func (e *Engine) Steps() *registry.Registry {
	return e.steps
}

// Execute runs one step of sc to a terminal outcome:
//
//	Resolving: find the definition for the resolved keyword and text.
//	Binding:   borrow every required fixture, all or nothing.
//	Running:   call the handler, inline or on an async loop.
//	Terminal:  release every borrow taken in Binding.
//
// Execute never panics on handler panics and never returns with a borrow
// outstanding.
func (e *Engine) Execute(ctx context.Context, sc *Scenario, rec step.Record) Outcome {
	started := e.now()
	kw := rec.Keyword.Resolve(&sc.primary)
	out := Outcome{Seq: e.clock.Next(), Record: rec, Keyword: kw}

	ctx, span := e.tracer.Start(ctx, "step "+kw.String(), trace.WithAttributes(
		attribute.String("stepwise.scenario", sc.Name),
		attribute.String("stepwise.keyword", rec.Keyword.String()),
		attribute.String("stepwise.text", rec.Text),
		attribute.Int("stepwise.index", rec.Index),
	))
	defer span.End()

	e.dispatch(ctx, sc, rec, kw, &out)
	out.Duration = e.now().Sub(started)

	span.SetAttributes(attribute.String("stepwise.status", string(out.Status)))
	switch out.Status {
	case StatusFailed:
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Err.Kind))
		e.logger.Warn("step failed",
			"scenario", sc.Name,
			"step", rec.String(),
			"kind", out.Err.Kind,
			"error", out.Err)
	case StatusSkipped:
		span.SetAttributes(attribute.String("stepwise.skip_reason", out.Reason))
		e.logger.Debug("step skipped", "scenario", sc.Name, "step", rec.String(), "reason", out.Reason)
	default:
		span.SetStatus(codes.Ok, "")
		e.logger.Debug("step passed", "scenario", sc.Name, "step", rec.String(), "duration", out.Duration)
	}

	for _, o := range e.observers {
		o.StepFinished(sc, out)
	}
	return out
}

func (e *Engine) dispatch(ctx context.Context, sc *Scenario, rec step.Record, kw step.Keyword, out *Outcome) {
	// Resolving
	d, m, ok := e.steps.Find(kw, rec.Text)
	if !ok {
		out.fail(newExecutionError(KindStepNotFound, sc, rec, kw, nil))
		return
	}
	out.Pattern = d.Pattern.String()
	e.logger.Debug("step resolved",
		"step", rec.String(),
		"pattern", out.Pattern,
		"location", d.Location.String())

	// Binding
	fixtures := sc.fixtures()
	if missing := fixtures.Unresolved(d.Fixtures); len(missing) > 0 {
		ee := newExecutionError(KindMissingFixtures, sc, rec, kw, d)
		ee.Missing = missing
		ee.Available = fixtures.Names()
		out.fail(ee)
		return
	}
	bindings, err := bind(fixtures, d.Fixtures)
	if err != nil {
		ee := newExecutionError(KindHandlerFailed, sc, rec, kw, d)
		ee.Cause = err
		out.fail(ee)
		return
	}
	defer e.release(fixtures, bindings)

	// Running
	err = e.run(ctx, d.Handler, step.NewContext(rec, kw, out.Pattern, m, bindings))

	// Terminal
	if err == nil {
		out.Status = StatusPassed
		return
	}
	if se, ok := step.AsSkip(err); ok {
		out.Status = StatusSkipped
		out.Reason = se.Reason
		return
	}
	ee := newExecutionError(KindHandlerFailed, sc, rec, kw, d)
	ee.Cause = err
	out.fail(ee)
}

// bind acquires every requirement in order. On the first failure it releases
// what it already acquired and returns the error.
func bind(fixtures *fixture.Registry, reqs []fixture.Requirement) ([]*fixture.Binding, error) {
	bindings := make([]*fixture.Binding, 0, len(reqs))
	for _, req := range reqs {
		b, err := fixtures.Acquire(req.Name, req.Mode)
		if err != nil {
			for i := len(bindings) - 1; i >= 0; i-- {
				_ = fixtures.Release(bindings[i].Name)
			}
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

func (e *Engine) release(fixtures *fixture.Registry, bindings []*fixture.Binding) {
	for i := len(bindings) - 1; i >= 0; i-- {
		if err := fixtures.Release(bindings[i].Name); err != nil {
			e.logger.Error("release fixture", "fixture", bindings[i].Name, "error", err)
		}
	}
}

// run is the single call site that switches on the handler mode.
func (e *Engine) run(ctx context.Context, h step.Handler, sc *step.Context) error {
	switch h.Mode() {
	case step.ModeSync:
		return callSync(ctx, h.SyncFunc(), sc)

	case step.ModeAsync:
		body := func(ctx context.Context) <-chan error {
			return h.AsyncFunc()(ctx, sc)
		}
		if l, ok := loop.FromContext(ctx); ok {
			return l.Run(ctx, body)
		}

		lctx, l, err := loop.Start(ctx)
		if err != nil {
			return err
		}
		defer l.Close()
		return l.Run(lctx, body)
	}
	return fmt.Errorf("handler mode %s: %w", h.Mode(), registry.ErrInvalidHandler)
}

func callSync(ctx context.Context, fn step.Func, sc *step.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = loop.NewPanicError(r)
		}
	}()
	return fn(ctx, sc)
}

func (o *Outcome) fail(ee *ExecutionError) {
	o.Status = StatusFailed
	o.Err = ee
}

func newExecutionError(kind ErrorKind, sc *Scenario, rec step.Record, kw step.Keyword, d *registry.Descriptor) *ExecutionError {
	ee := &ExecutionError{
		Kind:     kind,
		Keyword:  kw,
		Text:     rec.Text,
		Scenario: sc.Name,
	}
	if d != nil {
		ee.Pattern = d.Pattern.String()
		ee.Location = d.Location.String()
		for _, req := range d.Fixtures {
			ee.Required = append(ee.Required, req.Name)
		}
	}
	return ee
}
