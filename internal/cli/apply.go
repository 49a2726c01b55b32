package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/ui5omit/internal/logging"
	"github.com/hupe1980/ui5omit/internal/output"
	"github.com/hupe1980/ui5omit/internal/plan"
)

type applyOptions struct {
	taskOptions

	// Report what would be removed without touching the filesystem.
	dryRun bool

	// Copy the kept resources to this directory instead of pruning in place.
	dest string
}

func newApplyCommand() *cobra.Command {
	opts := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply <output-dir>",
		Short: "Remove omitted resources from a build output",
		Long: `Apply runs the omission task against a build output directory and
leaves the omitted resources out of the build result.

By default omitted files are deleted in place and directories left
empty are removed. With --dest the kept resources are copied to a
separate directory and the build output is not modified.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeOutputDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "report what would be removed without modifying files")
	f.StringVar(&opts.dest, "dest", "", "copy kept resources to this directory instead of pruning in place")

	registerTaskFlags(cmd, &opts.taskOptions)

	return cmd
}

func runApply(ctx context.Context, cmd *cobra.Command, dir string, opts *applyOptions) error {
	rt, err := resolveTask(ctx, cmd, &opts.taskOptions)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()

	pass, err := runPass(ctx, fs, dir, rt)
	if err != nil {
		return err
	}

	logger := logging.FromContext(ctx)
	outOpts := output.Options{DryRun: opts.dryRun, Logger: logger}
	w := cmd.OutOrStdout()

	if opts.dest != "" {
		nested, err := nestedDir(dir, opts.dest)
		if err != nil {
			return &ExitError{Code: 2, Err: fmt.Errorf("resolving --dest: %w", err)}
		}

		if nested {
			return &ExitError{Code: 2, Err: fmt.Errorf("--dest %s must not be the output directory or lie inside it", opts.dest)}
		}

		n, err := output.Export(ctx, fs, dir, fs, opts.dest, pass.Report.Kept, outOpts)
		if err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("exporting build result: %w", err)}
		}

		logger.Info("build result exported", slog.String("dest", opts.dest), slog.Int("files", n))
		fmt.Fprintf(w, "%s %d resources to %s, omitted %d\n", verb(opts.dryRun, "Copied", "Would copy"), n, opts.dest, len(pass.Result.Omitted))

		return nil
	}

	pruned, err := output.Prune(ctx, fs, dir, pass.Result.OmittedPaths(), outOpts)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("pruning build output: %w", err)}
	}

	plan.FormatCompact(w, pass.Report)
	fmt.Fprintf(w, "%s %d files and %d empty directories\n", verb(opts.dryRun, "Removed", "Would remove"), len(pruned.Files), len(pruned.Dirs))

	return nil
}

func verb(dryRun bool, done, planned string) string {
	if dryRun {
		return planned
	}

	return done
}

// nestedDir reports whether dest is dir or a directory below it.
func nestedDir(dir, dest string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return false, err
	}

	rel, err := filepath.Rel(absDir, absDest)
	if err != nil {
		return false, err
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}
