package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/ui5omit/internal/config"
	"github.com/hupe1980/ui5omit/internal/plan"
)

type planOptions struct {
	taskOptions

	// Output format: "table" (default), "compact", "json", "yaml".
	format string

	// Print a unified diff of the listing before and after omission.
	diff bool
}

func newPlanCommand() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan <output-dir>",
		Short: "Preview which build resources would be omitted",
		Long: `Plan runs the omission task against a build output directory and
reports which resources would be left out of the build result, and
which rule matched each of them. Nothing is modified.

Use --diff to print the listing of the output directory before and
after omission as a unified diff.

Exit codes:
  0  Success
  1  Error
  2  Invalid arguments or task options`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeOutputDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "table", "output format: table, compact, json, yaml")
	f.BoolVar(&opts.diff, "diff", false, "show a unified diff of the listing before and after omission")

	registerTaskFlags(cmd, &opts.taskOptions)
	registerFormatCompletion(cmd, "format", plan.Formats)

	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, dir string, opts *planOptions) error {
	if !slices.Contains(plan.Formats, opts.format) {
		return &ExitError{Code: 2, Err: fmt.Errorf("unknown format %q: must be one of table, compact, json, yaml", opts.format)}
	}

	rt, err := resolveTask(ctx, cmd, &opts.taskOptions)
	if err != nil {
		return err
	}

	pass, err := runPass(ctx, afero.NewOsFs(), dir, rt)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if err := plan.Format(w, pass.Report, opts.format); err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("formatting plan: %w", err)}
	}

	if opts.diff {
		before, after := pass.Report.Listings()

		d, err := plan.DiffListing(before, after, 3)
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}

		plan.WriteDiff(w, d, !config.FromContext(ctx).NoColor)
	}

	return nil
}
