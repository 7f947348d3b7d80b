// Package main is the entry point for the stepwise CLI, built against the
// demo step library.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/stepwise/internal/cli"
	"github.com/roach88/stepwise/internal/demo"
	"github.com/roach88/stepwise/internal/harness"
)

// Version information, injected at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	steps, err := demo.Steps()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stepwise: register steps:", err)
		return cli.ExitCommandError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCommand(harness.Suite{Steps: steps, Fixtures: demo.Catalog()})
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "stepwise:", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
