package omit

import (
	"fmt"
	"strings"

	"github.com/hupe1980/ui5omit/internal/resource"
)

// Rule is one omission category: a set of glob queries whose matches are
// tagged. Guarded rules skip protected paths.
type Rule struct {
	Name    string
	Globs   []string
	Guarded bool
}

type category struct {
	enabled func(Options) bool
	rules   func(Options) []Rule
}

// categories is the single predicate table shared by every task variant.
var categories = []category{
	{
		enabled: func(o Options) bool { return o.OmitDbgFiles },
		rules: func(o Options) []Rule {
			glob := "**/*dbg*"
			if o.DbgMatch == DebugMatchSuffix {
				glob = "**/*-dbg.*"
			}

			return []Rule{{Name: "debug", Globs: []string{glob}}}
		},
	},
	{
		enabled: func(o Options) bool { return o.OmitSourceMapFiles },
		rules: func(Options) []Rule {
			return []Rule{{Name: "sourcemap", Globs: []string{"**/*.map"}}}
		},
	},
	{
		enabled: func(o Options) bool { return o.OmitNonCompiledSourceFiles && len(o.SourceExtensions) > 0 },
		rules: func(o Options) []Rule {
			return []Rule{{Name: "source", Globs: []string{extensionGlob(o.SourceExtensions)}}}
		},
	},
	{
		enabled: func(o Options) bool { return len(o.OmitDirs) > 0 },
		rules: func(o Options) []Rule {
			rules := make([]Rule, 0, len(o.OmitDirs))
			for _, d := range o.OmitDirs {
				rules = append(rules, Rule{
					Name:    "dir:" + d,
					Globs:   []string{dirGlob(d)},
					Guarded: true,
				})
			}

			return rules
		},
	},
}

// Rules returns the enabled unconditional rules in table order.
func (o Options) Rules() []Rule {
	var out []Rule

	for _, c := range categories {
		if c.enabled(o) {
			out = append(out, c.rules(o)...)
		}
	}

	return out
}

// NonBundledGlob is the query for original, non-bundled resources.
func (o Options) NonBundledGlob() string {
	return extensionGlob(o.BundledExtensions)
}

// ProtectedSubstrings returns the lower-cased substrings that exempt a path
// from guarded rules and the non-bundled pass.
func (o Options) ProtectedSubstrings() []string {
	out := []string{"preload"}

	if o.SelfContained() {
		out = append(out, SelfContainedBootstrap)
	}

	for _, p := range o.ProtectedPaths {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// Protected reports whether p contains a protected substring, ignoring case.
func (o Options) Protected(p string) bool {
	lower := strings.ToLower(p)

	for _, s := range o.ProtectedSubstrings() {
		if strings.Contains(lower, s) {
			return true
		}
	}

	return false
}

func extensionGlob(exts []string) string {
	quoted := make([]string, 0, len(exts))
	for _, e := range exts {
		quoted = append(quoted, resource.QuoteMeta(e))
	}

	if len(quoted) == 1 {
		return "**/*." + quoted[0]
	}

	return fmt.Sprintf("**/*.{%s}", strings.Join(quoted, ","))
}

// dirGlob matches every resource below a directory segment named dir. A
// nested name such as "test/fixtures" matches that segment sequence.
func dirGlob(dir string) string {
	return "**/" + resource.QuoteMeta(strings.Trim(dir, "/")) + "/**"
}
