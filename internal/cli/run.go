package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/harness"
	"github.com/roach88/stepwise/internal/metrics"
	"github.com/roach88/stepwise/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter    string // scenario name glob
	Async     bool   // run every scenario on one async loop
	Metrics   bool   // print Prometheus metrics after the run
	NoHistory bool   // do not record the run

	// RunIDs overrides the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Now overrides the wall clock (for testing).
	Now func() time.Time
}

// ScenarioSummary is the outcome of one scenario in a run.
type ScenarioSummary struct {
	Name       string               `json:"name"`
	Feature    string               `json:"feature,omitempty"`
	Status     string               `json:"status"`
	Pass       bool                 `json:"pass"`
	Steps      int                  `json:"steps"`
	Unexecuted int                  `json:"unexecuted,omitempty"`
	Failure    string               `json:"failure,omitempty"`
	Errors     []string             `json:"errors,omitempty"`
	Trace      []harness.TraceEvent `json:"trace,omitempty"`
}

// RunSummary is the overall result of a run.
type RunSummary struct {
	RunID     string            `json:"run_id"`
	Scenarios []ScenarioSummary `json:"scenarios"`
	Passed    int               `json:"passed"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`

	// Mismatched counts scenarios that did not meet their expectations.
	Mismatched int `json:"mismatched"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run YAML scenarios",
		Long: `Run every *.yaml and *.yml scenario in a directory against the step library.

Each scenario runs with fresh fixtures. A scenario passes when its status and
assertions match its expect block. The run is recorded in the history
database unless --no-history is given.

Exit codes:
  0 - All scenarios met their expectations
  1 - One or more scenarios did not
  2 - Command error (invalid paths, fatal engine error, etc.)

Examples:
  stepwise run ./scenarios
  stepwise run ./scenarios --filter "basket-*" --async
  stepwise run ./scenarios --format json --metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")
	cmd.Flags().BoolVar(&opts.Async, "async", false, "run every scenario on one async loop (default $STEPWISE_ASYNC)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after the run (default $STEPWISE_METRICS)")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "do not record the run")

	return cmd
}

func runScenarios(opts *RunOptions, dir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	scenarios, err := loadScenarios(dir)
	if err != nil {
		return err
	}
	scenarios, err = filterScenarios(scenarios, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	collector := metrics.NewCollector()
	h := harness.New(opts.Suite,
		harness.WithLogger(opts.Logger),
		harness.WithAsync(opts.Async || opts.Config.Async),
		harness.WithEngineOptions(engine.WithObserver(collector)),
	)

	summary := RunSummary{RunID: runIDs.Generate(), Scenarios: []ScenarioSummary{}}
	startedAt := now()
	var results []engine.ScenarioResult

	for _, sc := range scenarios {
		f.VerboseLog("running %s (%s)", sc.Name, filepath.Base(sc.Path))
		res, err := h.Run(ctx, sc)
		if err != nil {
			summary.add(ScenarioSummary{Name: sc.Name, Feature: sc.Feature, Status: string(engine.StatusFailed),
				Errors: []string{err.Error()}})
			continue
		}
		results = append(results, res.Scenario)
		summary.add(summarize(sc, res, opts.Verbose))

		if failure := res.Scenario.Failure(); failure != nil && failure.IsFatal() {
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %q aborted the run", sc.Name), failure)
		}
	}

	if opts.DB != "" && !opts.NoHistory {
		if err := recordRun(ctx, opts.DB, summary.RunID, startedAt, results); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		opts.Logger.Info("run recorded", "run_id", summary.RunID, "db", opts.DB, "scenarios", len(results))
	}

	if f.Format == "json" {
		err = outputRunJSON(f, summary)
	} else {
		err = outputRunText(cmd.OutOrStdout(), summary, opts.DB != "" && !opts.NoHistory)
	}
	if err != nil {
		return err
	}

	if opts.Metrics || opts.Config.Metrics {
		w := cmd.OutOrStdout()
		if f.Format == "json" {
			w = f.GetErrWriter()
		}
		if err := collector.WriteText(w); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if summary.Mismatched > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) did not meet expectations", summary.Mismatched))
	}
	return nil
}

func (s *RunSummary) add(sc ScenarioSummary) {
	s.Scenarios = append(s.Scenarios, sc)
	s.Total++
	switch engine.Status(sc.Status) {
	case engine.StatusPassed:
		s.Passed++
	case engine.StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
	if !sc.Pass {
		s.Mismatched++
	}
}

func summarize(sc *harness.Scenario, res *harness.Result, withTrace bool) ScenarioSummary {
	out := ScenarioSummary{
		Name:       sc.Name,
		Feature:    sc.Feature,
		Status:     res.Status,
		Pass:       res.Pass,
		Steps:      len(res.Scenario.Outcomes),
		Unexecuted: len(res.Scenario.Unexecuted),
		Errors:     res.Errors,
	}
	if failure := res.Scenario.Failure(); failure != nil {
		out.Failure = failure.Error()
	}
	if withTrace {
		out.Trace = res.Trace
	}
	return out
}

// loadScenarios loads every scenario in dir, which must exist.
func loadScenarios(dir string) ([]*harness.Scenario, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "scenarios directory not found", err)
	}
	if !info.IsDir() {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s is not a directory", dir))
	}
	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}
	return scenarios, nil
}

func filterScenarios(scenarios []*harness.Scenario, glob string) ([]*harness.Scenario, error) {
	if glob == "" {
		return scenarios, nil
	}
	if _, err := filepath.Match(glob, ""); err != nil {
		return nil, err
	}
	var kept []*harness.Scenario
	for _, sc := range scenarios {
		if ok, _ := filepath.Match(glob, sc.Name); ok {
			kept = append(kept, sc)
		}
	}
	return kept, nil
}

func recordRun(ctx context.Context, path, runID string, startedAt time.Time, results []engine.ScenarioResult) (err error) {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()
	return st.WriteRun(ctx, runID, startedAt, results)
}

// outputRunJSON outputs the run summary as JSON.
func outputRunJSON(f *OutputFormatter, summary RunSummary) error {
	resp := CLIResponse{Status: "ok", Data: summary, RunID: summary.RunID}
	if summary.Mismatched > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_RUN_FAILED",
			Message: fmt.Sprintf("%d scenario(s) did not meet expectations", summary.Mismatched),
		}
	}
	return f.JSON(resp)
}

// outputRunText outputs the run summary as text.
func outputRunText(w io.Writer, summary RunSummary, recorded bool) error {
	styles := NewStyles(w)

	if summary.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, sc := range summary.Scenarios {
		fmt.Fprintf(w, "%s %s (%s, %d steps)\n", styles.Mark(sc.Pass), sc.Name, styles.Status(sc.Status), sc.Steps)
		if sc.Failure != "" {
			fmt.Fprintf(w, "  %s\n", styles.Muted.Render(sc.Failure))
		}
		for _, e := range sc.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		for _, ev := range sc.Trace {
			line := fmt.Sprintf("[%d] %s %s: %s", ev.Index, ev.Keyword, ev.Text, styles.Status(ev.Status))
			if ev.Reason != "" {
				line += " (" + ev.Reason + ")"
			}
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d skipped, %d failed, %d total\n",
		summary.Passed, summary.Skipped, summary.Failed, summary.Total)
	if recorded {
		fmt.Fprintf(w, "Run %s recorded\n", summary.RunID)
	}
	if summary.Mismatched == 0 {
		fmt.Fprintln(w, styles.Passed.Render("✓ All scenarios met their expectations"))
	}
	return nil
}
