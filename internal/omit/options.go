package omit

import (
	"fmt"
	"strings"

	"github.com/hupe1980/ui5omit/internal/resource"
)

// Variant selects the flavour of the task registered in the build.
type Variant string

// Supported task variants.
const (
	VariantStandard      Variant = "standard"
	VariantSelfContained Variant = "self-contained"
)

// DebugMatch controls how debug variants are recognised.
type DebugMatch string

// Supported debug matching styles.
const (
	// DebugMatchContains matches any file name containing "dbg".
	DebugMatchContains DebugMatch = "contains"
	// DebugMatchSuffix matches file names with a "-dbg" suffix before the
	// extension, e.g. "Component-dbg.js" or "Main-dbg.controller.js".
	DebugMatchSuffix DebugMatch = "suffix"
)

// SelfContainedBootstrap is the bootstrap script produced by self-contained
// builds.
const SelfContainedBootstrap = "sap-ui-custom.js"

// RawOptions is the task configuration as supplied by the caller. A nil field
// means the key was not set.
type RawOptions struct {
	OmitDbgFiles               *bool     `json:"omitDbgFiles,omitempty" yaml:"omitDbgFiles,omitempty"`
	OmitSourceMapFiles         *bool     `json:"omitSourceMapFiles,omitempty" yaml:"omitSourceMapFiles,omitempty"`
	OmitTSFiles                *bool     `json:"omitTSFiles,omitempty" yaml:"omitTSFiles,omitempty"`
	OmitNonCompiledSourceFiles *bool     `json:"omitNonCompiledSourceFiles,omitempty" yaml:"omitNonCompiledSourceFiles,omitempty"`
	OmitNonBundled             *bool     `json:"omitNonBundled,omitempty" yaml:"omitNonBundled,omitempty"`
	OmitDirs                   *[]string `json:"omitDirs,omitempty" yaml:"omitDirs,omitempty"`
	PreserveNonBundled         []string  `json:"preserveNonBundled,omitempty" yaml:"preserveNonBundled,omitempty"`
	IsSelfContained            *bool     `json:"isSelfContained,omitempty" yaml:"isSelfContained,omitempty"`

	DbgMatch          *DebugMatch `json:"dbgMatch,omitempty" yaml:"dbgMatch,omitempty"`
	SourceExtensions  []string    `json:"sourceExtensions,omitempty" yaml:"sourceExtensions,omitempty"`
	BundledExtensions []string    `json:"bundledExtensions,omitempty" yaml:"bundledExtensions,omitempty"`
	ProtectedPaths    []string    `json:"protectedPaths,omitempty" yaml:"protectedPaths,omitempty"`
}

// Options is the fully resolved task configuration.
type Options struct {
	OmitDbgFiles               bool       `json:"omitDbgFiles"`
	OmitSourceMapFiles         bool       `json:"omitSourceMapFiles"`
	OmitNonCompiledSourceFiles bool       `json:"omitNonCompiledSourceFiles"`
	OmitNonBundled             bool       `json:"omitNonBundled"`
	OmitDirs                   []string   `json:"omitDirs"`
	PreserveNonBundled         []string   `json:"preserveNonBundled"`
	IsSelfContained            bool       `json:"isSelfContained"`
	DbgMatch                   DebugMatch `json:"dbgMatch"`
	SourceExtensions           []string   `json:"sourceExtensions"`
	BundledExtensions          []string   `json:"bundledExtensions"`
	ProtectedPaths             []string   `json:"protectedPaths"`
	Variant                    Variant    `json:"variant"`
}

// DefaultOmitDirs are the directories omitted when omitDirs is not set.
var DefaultOmitDirs = []string{"test", "i18n"}

// Defaults returns the options used when nothing is configured.
func Defaults() Options {
	return Resolve(RawOptions{}, VariantStandard)
}

// Resolve applies the documented defaults to every unset field. It never
// fails and does not modify raw.
func Resolve(raw RawOptions, variant Variant) Options {
	if variant == "" {
		variant = VariantStandard
	}

	opts := Options{
		OmitDbgFiles:       boolOr(raw.OmitDbgFiles, true),
		OmitSourceMapFiles: boolOr(raw.OmitSourceMapFiles, true),
		OmitNonBundled:     boolOr(raw.OmitNonBundled, true),
		IsSelfContained:    boolOr(raw.IsSelfContained, false),
		DbgMatch:           DebugMatchContains,
		PreserveNonBundled: cloneStrings(raw.PreserveNonBundled),
		ProtectedPaths:     cloneStrings(raw.ProtectedPaths),
		SourceExtensions:   extensionsOr(raw.SourceExtensions, "ts"),
		BundledExtensions:  extensionsOr(raw.BundledExtensions, "js", "xml"),
		Variant:            variant,
	}

	// omitNonCompiledSourceFiles is the general spelling of omitTSFiles and
	// wins when both are present.
	switch {
	case raw.OmitNonCompiledSourceFiles != nil:
		opts.OmitNonCompiledSourceFiles = *raw.OmitNonCompiledSourceFiles
	case raw.OmitTSFiles != nil:
		opts.OmitNonCompiledSourceFiles = *raw.OmitTSFiles
	default:
		opts.OmitNonCompiledSourceFiles = true
	}

	if raw.OmitDirs != nil {
		opts.OmitDirs = cloneStrings(*raw.OmitDirs)
	} else {
		opts.OmitDirs = cloneStrings(DefaultOmitDirs)
	}

	if raw.DbgMatch != nil && *raw.DbgMatch != "" {
		opts.DbgMatch = *raw.DbgMatch
	}

	return opts
}

// Validate checks the glob patterns and enumerations in o. Resolve itself
// never fails; callers that accept user input validate before running.
func (o Options) Validate() error {
	switch o.DbgMatch {
	case DebugMatchContains, DebugMatchSuffix:
	default:
		return fmt.Errorf("invalid dbgMatch %q: must be one of contains, suffix", o.DbgMatch)
	}

	switch o.Variant {
	case VariantStandard, VariantSelfContained:
	default:
		return fmt.Errorf("invalid variant %q: must be one of standard, self-contained", o.Variant)
	}

	for _, p := range o.PreserveNonBundled {
		if err := resource.ValidatePattern(p); err != nil {
			return fmt.Errorf("preserveNonBundled: %w", err)
		}
	}

	for _, d := range o.OmitDirs {
		if strings.Trim(d, "/") == "" {
			return fmt.Errorf("omitDirs: empty directory name")
		}
	}

	return nil
}

// SelfContained reports whether the self-contained bootstrap is protected.
func (o Options) SelfContained() bool {
	return o.IsSelfContained || o.Variant == VariantSelfContained
}

// VariantForTask derives the variant from a custom task name: names ending in
// "-self-contained" select the self-contained variant.
func VariantForTask(name string) Variant {
	if strings.HasSuffix(strings.ToLower(name), "-"+string(VariantSelfContained)) {
		return VariantSelfContained
	}

	return VariantStandard
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}

	return *v
}

func extensionsOr(exts []string, defs ...string) []string {
	if len(exts) == 0 {
		return defs
	}

	out := make([]string, 0, len(exts))
	for _, e := range exts {
		if e = strings.TrimPrefix(strings.TrimSpace(e), "."); e != "" {
			out = append(out, e)
		}
	}

	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}

	return append([]string(nil), in...)
}

// Bool returns a pointer to b, for building RawOptions literals.
func Bool(b bool) *bool {
	return &b
}

// Strings returns a pointer to s, for building RawOptions literals.
func Strings(s ...string) *[]string {
	if s == nil {
		s = []string{}
	}

	return &s
}
