package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/ui5omit/internal/omit"
)

// taskOptions holds the flags that locate and override the task options.
type taskOptions struct {
	ui5Config   string
	optionsFile string
	variant     string

	omitDbgFiles               bool
	omitSourceMapFiles         bool
	omitNonCompiledSourceFiles bool
	omitNonBundled             bool
	isSelfContained            bool
	omitDirs                   []string
	preserveNonBundled         []string
	protectedPaths             []string
	dbgMatch                   string
}

// registerSourceFlags adds the flags selecting where task options are read from.
func registerSourceFlags(cmd *cobra.Command, opts *taskOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.ui5Config, "ui5-config", "", "project ui5.yaml holding the custom task configuration")
	f.StringVar(&opts.optionsFile, "options", "", "standalone task options file (YAML or JSON)")
	f.StringVar(&opts.variant, "variant", "", "task variant: standard, self-contained (default: derived from --task)")

	cmd.MarkFlagsMutuallyExclusive("ui5-config", "options")
}

// registerOverrideFlags adds one flag per task option. Only flags that are
// explicitly set override the configured value.
func registerOverrideFlags(cmd *cobra.Command, opts *taskOptions) {
	f := cmd.Flags()
	f.BoolVar(&opts.omitDbgFiles, "omit-dbg-files", true, "omit debug variants")
	f.BoolVar(&opts.omitSourceMapFiles, "omit-source-map-files", true, "omit source maps")
	f.BoolVar(&opts.omitNonCompiledSourceFiles, "omit-non-compiled-source-files", true, "omit non-compiled source files")
	f.BoolVar(&opts.omitNonBundled, "omit-non-bundled", true, "omit originals that were bundled")
	f.BoolVar(&opts.isSelfContained, "self-contained", false, "protect the self-contained bootstrap file")
	f.StringSliceVar(&opts.omitDirs, "omit-dirs", omit.DefaultOmitDirs, "directory names to omit")
	f.StringSliceVar(&opts.preserveNonBundled, "preserve-non-bundled", nil, "glob patterns of originals to keep")
	f.StringSliceVar(&opts.protectedPaths, "protected-paths", nil, "additional path substrings never omitted by directory rules")
	f.StringVar(&opts.dbgMatch, "dbg-match", string(omit.DebugMatchContains), "debug file matching: contains, suffix")
}

// registerTaskFlags registers the option source and override flags on cmd.
func registerTaskFlags(cmd *cobra.Command, opts *taskOptions) {
	registerSourceFlags(cmd, opts)
	registerOverrideFlags(cmd, opts)

	registerFormatCompletion(cmd, "variant", []string{string(omit.VariantStandard), string(omit.VariantSelfContained)})
	registerFormatCompletion(cmd, "dbg-match", []string{string(omit.DebugMatchContains), string(omit.DebugMatchSuffix)})
}

// applyOverrides copies every explicitly set flag into raw. Unset flags leave
// raw untouched so that undefined keys keep resolving to their defaults.
func applyOverrides(cmd *cobra.Command, opts *taskOptions, raw *omit.RawOptions) {
	f := cmd.Flags()

	if f.Changed("omit-dbg-files") {
		raw.OmitDbgFiles = omit.Bool(opts.omitDbgFiles)
	}

	if f.Changed("omit-source-map-files") {
		raw.OmitSourceMapFiles = omit.Bool(opts.omitSourceMapFiles)
	}

	if f.Changed("omit-non-compiled-source-files") {
		raw.OmitNonCompiledSourceFiles = omit.Bool(opts.omitNonCompiledSourceFiles)
	}

	if f.Changed("omit-non-bundled") {
		raw.OmitNonBundled = omit.Bool(opts.omitNonBundled)
	}

	if f.Changed("self-contained") {
		raw.IsSelfContained = omit.Bool(opts.isSelfContained)
	}

	if f.Changed("omit-dirs") {
		raw.OmitDirs = omit.Strings(opts.omitDirs...)
	}

	if f.Changed("preserve-non-bundled") {
		raw.PreserveNonBundled = opts.preserveNonBundled
	}

	if f.Changed("protected-paths") {
		raw.ProtectedPaths = opts.protectedPaths
	}

	if f.Changed("dbg-match") {
		m := omit.DebugMatch(opts.dbgMatch)
		raw.DbgMatch = &m
	}
}
