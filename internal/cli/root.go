package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/config"
	"github.com/roach88/stepwise/internal/harness"
	"github.com/roach88/stepwise/internal/telemetry"
)

// RootOptions holds global flags and the state every command shares.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string // run-history database; empty falls back to config

	// Suite is the step library and fixture catalog commands run against.
	Suite harness.Suite

	// Config and Logger are set before any subcommand runs.
	Config config.Config
	Logger *slog.Logger

	shutdown func(context.Context) error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the stepwise CLI.
func NewRootCommand(suite harness.Suite) *cobra.Command {
	opts := &RootOptions{Suite: suite}

	cmd := &cobra.Command{
		Use:   "stepwise",
		Short: "stepwise - a Given/When/Then step engine",
		Long: `Run Given/When/Then scenarios against a library of step definitions.

Scenarios are YAML files of step records. Each step is matched against the
registered patterns, borrows the fixtures it declares, and runs its handler
inline or on an async loop. Runs are recorded in a SQLite history database.

Settings come from STEPWISE_* environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "run-history database (default $STEPWISE_DB_PATH)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewStepsCommand(opts))
	cmd.AddCommand(NewUnusedCommand(opts))
	cmd.AddCommand(NewDuplicatesCommand(opts))
	cmd.AddCommand(NewSkippedCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	// Flush spans after every command, including failed ones.
	// PersistentPostRunE does not run when RunE returns an error.
	for _, sub := range cmd.Commands() {
		runE := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			defer opts.close(cmd.Context())
			return runE(cmd, args)
		}
	}

	return cmd
}

// setup loads configuration, builds the logger and starts tracing.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	o.Config = cfg
	o.Logger = cfg.NewLogger(cmd.ErrOrStderr())
	if o.DB == "" {
		o.DB = cfg.DBPath
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	o.shutdown = shutdown
	return nil
}

// close flushes and stops tracing. Errors are logged, not returned.
func (o *RootOptions) close(ctx context.Context) {
	if o.shutdown == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := o.shutdown(ctx); err != nil {
		o.Logger.Warn("tracing shutdown", "error", err)
	}
	o.shutdown = nil
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
