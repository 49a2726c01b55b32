// Package ui5omit provides a public Go API for tagging build output
// resources that should be left out of the packaged build result.
//
// This package exposes the omission pass as a library, allowing programmatic
// use without the CLI.
//
// Basic usage:
//
//	result, err := ui5omit.Run(ctx, "dist")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Omitted)
//
// With options:
//
//	result, err := ui5omit.Run(ctx, "dist",
//	    ui5omit.WithRawOptions(ui5omit.RawOptions{OmitNonBundled: ui5omit.Bool(false)}),
//	    ui5omit.WithVariant(ui5omit.VariantSelfContained),
//	)
package ui5omit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/hupe1980/ui5omit/internal/logging"
	"github.com/hupe1980/ui5omit/internal/omit"
	"github.com/hupe1980/ui5omit/internal/resource"
)

// Re-exported configuration types.
type (
	// RawOptions is the task configuration as written in ui5.yaml. Nil fields
	// fall back to their defaults.
	RawOptions = omit.RawOptions
	// Variant selects the standard or the self-contained task.
	Variant = omit.Variant
	// Omission records an omitted path and the rule responsible.
	Omission = omit.Omission
)

// Task variants.
const (
	VariantStandard      = omit.VariantStandard
	VariantSelfContained = omit.VariantSelfContained
)

// Bool returns a pointer to b, for use in RawOptions.
func Bool(b bool) *bool { return omit.Bool(b) }

// Strings returns a pointer to a slice, for use in RawOptions.OmitDirs.
func Strings(s ...string) *[]string { return omit.Strings(s...) }

// Option configures a run.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	raw     RawOptions
	variant Variant
	fs      afero.Fs
	logger  *slog.Logger
}

// WithRawOptions sets the task configuration.
func WithRawOptions(raw RawOptions) Option {
	return func(o *options) {
		o.raw = raw
	}
}

// WithVariant selects the task variant. Defaults to VariantStandard.
func WithVariant(v Variant) Option {
	return func(o *options) {
		o.variant = v
	}
}

// WithFs sets the filesystem the build output is read from.
// Defaults to the operating system filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithLogger sets the logger. Defaults to a logger that discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Result is the outcome of a run.
type Result struct {
	// Omitted lists the tagged resources and the responsible rule, sorted by path.
	Omitted []Omission
	// Protected lists resources a rule matched but that were kept because
	// their path contains a protected substring.
	Protected []Omission
	// Preserved lists non-bundled originals kept by preserveNonBundled.
	Preserved []string
	// Kept lists every resource that stays in the build result.
	Kept []string
	// ResourceCount is the number of resources in the build output.
	ResourceCount int
}

// OmittedPaths returns the paths of all omitted resources.
func (r *Result) OmittedPaths() []string {
	out := make([]string, 0, len(r.Omitted))
	for _, o := range r.Omitted {
		out = append(out, o.Path)
	}

	return out
}

// Run executes the omission pass over the build output in dir. Files are
// never modified; the result reports what would be left out.
func Run(ctx context.Context, dir string, opts ...Option) (*Result, error) {
	if dir == "" {
		return nil, errors.New("output directory must not be empty")
	}

	o := buildOptions(opts)
	dir = resource.AbsRoot(dir)

	exists, err := afero.DirExists(o.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("checking output directory: %w", err)
	}

	if !exists {
		return nil, fmt.Errorf("output directory %s does not exist", dir)
	}

	ws := resource.NewFSWorkspace(o.fs, dir)

	return run(ctx, ws, o)
}

// Filter executes the omission pass over a fixed list of resource paths.
func Filter(ctx context.Context, paths []string, opts ...Option) (*Result, error) {
	o := buildOptions(opts)

	return run(ctx, resource.NewMemoryWorkspace(paths...), o)
}

func buildOptions(opts []Option) *options {
	o := &options{
		variant: VariantStandard,
		fs:      afero.NewOsFs(),
		logger:  logging.Discard(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func run(ctx context.Context, ws resource.Workspace, o *options) (*Result, error) {
	resolved := omit.Resolve(o.raw, o.variant)
	if err := resolved.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	all, err := resource.List(ctx, ws)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}

	tags := resource.NewTagCollection()

	res, err := omit.New(resolved, omit.WithLogger(o.logger)).Run(ctx, ws, tags)
	if err != nil {
		return nil, fmt.Errorf("omission pass: %w", err)
	}

	kept := make([]string, 0, len(all))

	for _, r := range all {
		if !tags.HasTag(r, resource.OmitFromBuildResult) {
			kept = append(kept, r.Path())
		}
	}

	return &Result{
		Omitted:       res.Omitted,
		Protected:     res.Protected,
		Preserved:     res.Preserved,
		Kept:          kept,
		ResourceCount: len(all),
	}, nil
}
