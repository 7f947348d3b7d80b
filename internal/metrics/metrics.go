// Package metrics records step and scenario outcomes as Prometheus metrics.
//
// A Collector owns its own registry so several engines (and tests) can
// collect independently. It plugs into the engine as an Observer.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/step"
)

var (
	statuses = []engine.Status{engine.StatusPassed, engine.StatusSkipped, engine.StatusFailed}
	keywords = []step.Keyword{step.Given, step.When, step.Then}
	kinds    = []engine.ErrorKind{engine.KindStepNotFound, engine.KindMissingFixtures, engine.KindHandlerFailed}
)

// Collector implements engine.Observer.
type Collector struct {
	registry *prometheus.Registry

	steps     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	failures  *prometheus.CounterVec
	scenarios *prometheus.CounterVec
}

// NewCollector creates a collector with every metric registered and all
// label combinations initialized to zero.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_steps_total",
				Help: "Total number of executed steps.",
			},
			[]string{"keyword", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stepwise_step_duration_seconds",
				Help:    "Step execution time from resolution to fixture release, in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_step_failures_total",
				Help: "Total number of failed steps by error kind.",
			},
			[]string{"kind"},
		),
		scenarios: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_scenarios_total",
				Help: "Total number of finished scenarios.",
			},
			[]string{"status"},
		),
	}

	c.registry.MustRegister(c.steps, c.duration, c.failures, c.scenarios)

	for _, s := range statuses {
		for _, kw := range keywords {
			c.steps.WithLabelValues(kw.String(), string(s))
		}
		c.scenarios.WithLabelValues(string(s))
	}
	for _, k := range kinds {
		c.failures.WithLabelValues(string(k))
	}
	return c
}

// StepFinished records one step outcome.
func (c *Collector) StepFinished(_ *engine.Scenario, o engine.Outcome) {
	c.steps.WithLabelValues(o.Keyword.String(), string(o.Status)).Inc()
	c.duration.WithLabelValues(string(o.Status)).Observe(o.Duration.Seconds())
	if o.Err != nil {
		c.failures.WithLabelValues(string(o.Err.Kind)).Inc()
	}
}

// ScenarioFinished records one scenario result.
func (c *Collector) ScenarioFinished(r engine.ScenarioResult) {
	c.scenarios.WithLabelValues(string(r.Status())).Inc()
}

// Gatherer exposes the collector's registry.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteText writes every metric family in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
