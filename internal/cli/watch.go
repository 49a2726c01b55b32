package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/ui5omit/internal/logging"
	"github.com/hupe1980/ui5omit/internal/output"
	"github.com/hupe1980/ui5omit/internal/watch"
)

type watchOptions struct {
	taskOptions

	debounce time.Duration
	prune    bool
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <output-dir>",
		Short: "Watch a build output and re-run the omission task on changes",
		Long: `Watch monitors a build output directory, and the task configuration
file if one is given, and re-runs the omission task whenever files
change.

File changes are debounced to avoid rapid re-runs. Each run reports
the resource and omission counts and which resources started or
stopped being omitted since the previous run.

Use --prune to delete omitted resources after every run.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeOutputDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")
	f.BoolVar(&opts.prune, "prune", false, "delete omitted resources after each run")

	registerTaskFlags(cmd, &opts.taskOptions)

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string, opts *watchOptions) error {
	if opts.debounce <= 0 {
		return &ExitError{Code: 2, Err: fmt.Errorf("--debounce must be positive, got %s", opts.debounce)}
	}

	// Validate the configuration once up front; later runs re-read it so
	// edits to ui5.yaml are picked up.
	rt, err := resolveTask(ctx, cmd, &opts.taskOptions)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	logger := logging.FromContext(ctx)

	runFn := func(fnCtx context.Context) (*watch.RunResult, error) {
		current, err := resolveTask(fnCtx, cmd, &opts.taskOptions)
		if err != nil {
			return nil, err
		}

		pass, err := runPass(fnCtx, fs, dir, current)
		if err != nil {
			return nil, err
		}

		res := &watch.RunResult{
			Total:   len(pass.All),
			Omitted: pass.Result.OmittedPaths(),
		}

		if opts.prune {
			pruned, err := output.Prune(fnCtx, fs, dir, res.Omitted, output.Options{Logger: logger})
			if err != nil {
				return nil, fmt.Errorf("pruning build output: %w", err)
			}

			res.Pruned = append(pruned.Files, pruned.Dirs...)
		}

		return res, nil
	}

	watchOpts := watch.Options{
		Dir:        dir,
		ExtraFiles: rt.Files,
		Debounce:   opts.debounce,
		Logger:     logger,
		Out:        cmd.ErrOrStderr(),
	}

	return watch.Run(ctx, watchOpts, runFn)
}
