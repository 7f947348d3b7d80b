package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
	Prune int // keep this many runs and delete the rest; negative disables
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Without arguments, list recorded runs newest first. With a run ID, show
that run's scenarios and step outcomes.

Examples:
  stepwise history
  stepwise history --limit 5 --format json
  stepwise history --prune 50
  stepwise history 0192f8e4-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts.RootOptions, func(ctx context.Context, st *store.Store) error {
				if len(args) == 1 {
					return showRun(ctx, cmd, opts.RootOptions, st, args[0])
				}
				if opts.Prune >= 0 {
					n, err := st.Prune(ctx, opts.Prune)
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to prune history", err)
					}
					opts.Logger.Info("history pruned", "deleted", n, "kept", opts.Prune)
					opts.formatter(cmd).VerboseLog("pruned %d run(s)", n)
				}
				return listRuns(ctx, cmd, opts, st)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().IntVar(&opts.Prune, "prune", -1, "delete all but the N most recent runs before listing")
	return cmd
}

// SkippedOptions holds flags for the skipped command.
type SkippedOptions struct {
	*RootOptions
	All bool
}

// NewSkippedCommand creates the skipped command.
func NewSkippedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SkippedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "skipped [run-id]",
		Short: "List skipped steps from run history",
		Long: `List the steps a run skipped, with their reasons. Defaults to the most
recent run; --all reports every recorded run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts.RootOptions, func(ctx context.Context, st *store.Store) error {
				runID := ""
				switch {
				case len(args) == 1:
					if opts.All {
						return NewExitError(ExitCommandError, "--all cannot be combined with a run ID")
					}
					runID = args[0]
					if _, err := st.ReadRun(ctx, runID); err != nil {
						return runLookupError(opts.formatter(cmd), err)
					}
				case !opts.All:
					latest, err := st.LatestRun(ctx)
					if err != nil {
						return runLookupError(opts.formatter(cmd), err)
					}
					runID = latest.ID
				}

				skipped, err := st.ReadSkipped(ctx, runID)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read skipped steps", err)
				}

				f := opts.formatter(cmd)
				if f.Format == "json" {
					return f.JSON(CLIResponse{Status: "ok", Data: skipped, RunID: runID})
				}
				writeSkipped(cmd.OutOrStdout(), skipped)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "report skipped steps from every recorded run")
	return cmd
}

// withStore opens the history database for the duration of fn.
func withStore(cmd *cobra.Command, opts *RootOptions, fn func(context.Context, *store.Store) error) (err error) {
	if opts.DB == "" {
		return NewExitError(ExitCommandError, "no history database: set --db or STEPWISE_DB_PATH")
	}
	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, st)
}

// runLookupError maps a store lookup failure to an exit code. In JSON mode
// a missing run is also reported on stdout as E_NO_RUN.
func runLookupError(f *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrRunNotFound) {
		if f.Format == "json" {
			if werr := f.Error("E_NO_RUN", err.Error(), nil); werr != nil {
				return werr
			}
		}
		return WrapExitError(ExitFailure, "no such run", err)
	}
	return WrapExitError(ExitCommandError, "failed to read run history", err)
}

func listRuns(ctx context.Context, cmd *cobra.Command, opts *HistoryOptions, st *store.Store) error {
	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	f := opts.formatter(cmd)
	if f.Format == "json" {
		return f.Success(runs)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs.")
		return nil
	}
	styles := NewStyles(w)
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  %s  %d passed, %d skipped, %d failed\n",
			run.ID, run.StartedAt.Format(time.RFC3339), styles.Status(run.Status),
			run.Passed, run.Skipped, run.Failed)
	}
	return nil
}

func showRun(ctx context.Context, cmd *cobra.Command, opts *RootOptions, st *store.Store, id string) error {
	f := opts.formatter(cmd)
	run, err := st.ReadRun(ctx, id)
	if err != nil {
		return runLookupError(f, err)
	}

	if f.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: run, RunID: run.ID})
	}

	w := cmd.OutOrStdout()
	styles := NewStyles(w)
	fmt.Fprintf(w, "Run %s (%s) started %s\n", run.ID, styles.Status(run.Status), run.StartedAt.Format(time.RFC3339))
	for _, sc := range run.Scenarios {
		fmt.Fprintf(w, "\n%s %s\n", sc.Name, styles.Status(sc.Status))
		for _, so := range sc.Steps {
			line := fmt.Sprintf("[%d] %s %s: %s", so.Index, so.Keyword, so.Text, styles.Status(so.Status))
			switch {
			case so.Reason != "":
				line += " (" + so.Reason + ")"
			case so.Error != "":
				line += "\n      " + styles.Muted.Render(so.Error)
			}
			fmt.Fprintf(w, "  %s\n", line)
		}
		if sc.Unexecuted > 0 {
			fmt.Fprintf(w, "  %s\n", styles.Muted.Render(fmt.Sprintf("%d step(s) not executed", sc.Unexecuted)))
		}
		if sc.TeardownError != "" {
			fmt.Fprintf(w, "  teardown: %s\n", sc.TeardownError)
		}
	}
	return nil
}

func writeSkipped(w io.Writer, skipped []store.SkippedStep) {
	if len(skipped) == 0 {
		fmt.Fprintln(w, "No skipped steps.")
		return
	}
	styles := NewStyles(w)
	for _, s := range skipped {
		fmt.Fprintf(w, "%s [%d] %s %s: %s\n", s.Scenario, s.Index, s.Keyword, s.Text, styles.Skipped.Render(s.Reason))
	}
}
