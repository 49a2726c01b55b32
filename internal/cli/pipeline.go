package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/ui5omit/internal/config"
	"github.com/hupe1980/ui5omit/internal/logging"
	"github.com/hupe1980/ui5omit/internal/omit"
	"github.com/hupe1980/ui5omit/internal/plan"
	"github.com/hupe1980/ui5omit/internal/resource"
)

// passResult holds the outputs of one omission pass over a build output.
type passResult struct {
	Project   string
	Options   omit.Options
	Workspace *resource.FSWorkspace
	All       []*resource.Resource
	Result    *omit.Result
	Report    *plan.Report
}

// resolvedTask is the task configuration after reading every source.
type resolvedTask struct {
	Project string
	Options omit.Options
	// Files are the configuration files that were read, for watching.
	Files []string
}

// resolveTask reads the task options from ui5.yaml or an options file,
// applies flag overrides and validates the result. Configuration problems
// return exit code 2.
func resolveTask(ctx context.Context, cmd *cobra.Command, opts *taskOptions) (*resolvedTask, error) {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	var (
		raw   omit.RawOptions
		rt    = &resolvedTask{}
		found = true
	)

	switch {
	case opts.ui5Config != "":
		project, err := config.LoadProject(opts.ui5Config)
		if err != nil {
			return nil, &ExitError{Code: 2, Err: err}
		}

		raw, found, err = project.TaskOptions(cfg.Task)
		if err != nil {
			return nil, &ExitError{Code: 2, Err: err}
		}

		rt.Project = project.Metadata.Name
		rt.Files = append(rt.Files, opts.ui5Config)
	case opts.optionsFile != "":
		var err error

		raw, err = config.LoadTaskOptions(opts.optionsFile)
		if err != nil {
			return nil, &ExitError{Code: 2, Err: err}
		}

		rt.Files = append(rt.Files, opts.optionsFile)
	}

	if !found {
		logger.Warn("custom task not configured in ui5.yaml, using defaults",
			slog.String("task", cfg.Task),
			slog.String("file", opts.ui5Config),
		)
	}

	applyOverrides(cmd, opts, &raw)

	variant := omit.VariantForTask(cfg.Task)
	if opts.variant != "" {
		variant = omit.Variant(opts.variant)
	}

	rt.Options = omit.Resolve(raw, variant)
	if err := rt.Options.Validate(); err != nil {
		return nil, &ExitError{Code: 2, Err: fmt.Errorf("invalid task options: %w", err)}
	}

	return rt, nil
}

// runPass runs the omission task over the build output in dir. Nothing on
// disk is modified.
func runPass(ctx context.Context, fs afero.Fs, dir string, rt *resolvedTask) (*passResult, error) {
	cfg := config.FromContext(ctx)
	logger := logging.ForTask(logging.FromContext(ctx), rt.Project, cfg.Task)

	dir = resource.AbsRoot(dir)

	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, &ExitError{Code: 1, Err: fmt.Errorf("checking output directory: %w", err)}
	}

	if !exists {
		return nil, &ExitError{Code: 1, Err: fmt.Errorf("output directory %s does not exist", dir)}
	}

	ws := resource.NewFSWorkspace(fs, dir)

	all, err := resource.List(ctx, ws)
	if err != nil {
		return nil, &ExitError{Code: 1, Err: fmt.Errorf("listing build output: %w", err)}
	}

	logger.Info("running omission task",
		slog.String("dir", dir),
		slog.String("variant", string(rt.Options.Variant)),
		slog.Int("resources", len(all)),
	)

	task := omit.New(rt.Options, omit.WithLogger(logger))

	res, err := task.Run(ctx, ws, resource.NewTagCollection())
	if err != nil {
		return nil, &ExitError{Code: 1, Err: fmt.Errorf("omission task: %w", err)}
	}

	report := plan.Build(all, rt.Options, res)
	report.Project = rt.Project
	report.Root = dir

	return &passResult{
		Project:   rt.Project,
		Options:   rt.Options,
		Workspace: ws,
		All:       all,
		Result:    res,
		Report:    report,
	}, nil
}
