package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/harness"
	"github.com/roach88/stepwise/internal/registry"
)

// StepInfo describes one registered step definition.
type StepInfo struct {
	Keyword  string   `json:"keyword"`
	Pattern  string   `json:"pattern"`
	Location string   `json:"location"`
	Name     string   `json:"name,omitempty"`
	Fixtures []string `json:"fixtures,omitempty"`
	Hits     int      `json:"hits"`
}

func stepInfo(r *registry.Registry, d *registry.Descriptor) StepInfo {
	info := StepInfo{
		Keyword:  d.Keyword.String(),
		Pattern:  d.Pattern.String(),
		Location: d.Location.String(),
		Name:     d.Name,
		Hits:     r.Hits(d),
	}
	for _, req := range d.Fixtures {
		info.Fixtures = append(info.Fixtures, req.Name+" ("+req.Mode.String()+")")
	}
	return info
}

// NewStepsCommand creates the steps command.
func NewStepsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List registered step definitions",
		Long: `List every step definition in registration order with its keyword,
pattern, source location and the fixtures it borrows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rootOpts.Suite.Steps
			infos := []StepInfo{}
			for _, d := range r.Steps() {
				infos = append(infos, stepInfo(r, d))
			}
			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(infos)
			}
			writeSteps(cmd.OutOrStdout(), infos, rootOpts.Verbose)
			return nil
		},
	}
}

// NewUnusedCommand creates the unused command.
func NewUnusedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unused <scenarios-dir>",
		Short: "Report step definitions no scenario uses",
		Long: `Run every scenario in a directory, then list the step definitions that
no step resolved to. Scenario expectations are not checked.

Exit codes:
  0 - Every definition is used
  1 - One or more definitions are unused
  2 - Command error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			scenarios, err := loadScenarios(args[0])
			if err != nil {
				return err
			}

			h := harness.New(rootOpts.Suite, harness.WithLogger(rootOpts.Logger))
			for _, sc := range scenarios {
				if _, err := h.Run(ctx, sc); err != nil {
					rootOpts.Logger.Warn("scenario did not run", "scenario", sc.Name, "error", err)
				}
			}

			r := rootOpts.Suite.Steps
			infos := []StepInfo{}
			for _, d := range r.Unused() {
				infos = append(infos, stepInfo(r, d))
			}

			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				if err := f.Success(infos); err != nil {
					return err
				}
			} else if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), NewStyles(cmd.OutOrStdout()).Passed.Render("✓ Every step definition is used"))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%d unused step definition(s) across %d scenario(s):\n", len(infos), len(scenarios))
				writeSteps(cmd.OutOrStdout(), infos, false)
			}

			if len(infos) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d unused step definition(s)", len(infos)))
			}
			return nil
		},
	}
}

// NewDuplicatesCommand creates the duplicates command.
func NewDuplicatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "Report step definitions registered more than once",
		Long: `List groups of definitions that share a keyword and pattern. Only the
first definition of each group can ever match.

Exit codes:
  0 - No duplicates
  1 - Duplicates found`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rootOpts.Suite.Steps
			groups := [][]StepInfo{}
			for _, group := range r.Duplicates() {
				var infos []StepInfo
				for _, d := range group {
					infos = append(infos, stepInfo(r, d))
				}
				groups = append(groups, infos)
			}

			f := rootOpts.formatter(cmd)
			w := cmd.OutOrStdout()
			if f.Format == "json" {
				if err := f.Success(groups); err != nil {
					return err
				}
			} else if len(groups) == 0 {
				fmt.Fprintln(w, NewStyles(w).Passed.Render("✓ No duplicate step definitions"))
			} else {
				for _, group := range groups {
					fmt.Fprintf(w, "%s %s\n", group[0].Keyword, group[0].Pattern)
					for i, info := range group {
						marker := "shadowed"
						if i == 0 {
							marker = "wins"
						}
						fmt.Fprintf(w, "  %s (%s)\n", info.Location, marker)
					}
				}
			}

			if len(groups) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d duplicated step pattern(s)", len(groups)))
			}
			return nil
		},
	}
}

func writeSteps(w io.Writer, infos []StepInfo, verbose bool) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No step definitions.")
		return
	}
	styles := NewStyles(w)
	for _, info := range infos {
		fmt.Fprintf(w, "%-5s %s  %s\n", info.Keyword, info.Pattern, styles.Muted.Render(info.Location))
		if verbose && len(info.Fixtures) > 0 {
			fmt.Fprintf(w, "      fixtures: %s\n", strings.Join(info.Fixtures, ", "))
		}
	}
}
