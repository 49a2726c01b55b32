// Package plan builds and formats reports of an omission pass: which
// resources of a build output stay, which are omitted and why.
package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/hupe1980/ui5omit/internal/omit"
	"github.com/hupe1980/ui5omit/internal/resource"
)

// Report summarises an omission pass over a build output.
type Report struct {
	Project   string          `json:"project,omitempty"`
	Root      string          `json:"root,omitempty"`
	Options   omit.Options    `json:"options"`
	Total     int             `json:"total"`
	Kept      []string        `json:"kept"`
	Omitted   []omit.Omission `json:"omitted"`
	Protected []omit.Omission `json:"protected,omitempty"`
	Preserved []string        `json:"preserved,omitempty"`
	// OmittedBytes is the combined size of the omitted resources, when known.
	OmittedBytes int64 `json:"omittedBytes"`
}

// Build assembles a report from the full listing and the task result.
func Build(all []*resource.Resource, opts omit.Options, res *omit.Result) *Report {
	omitted := make(map[string]bool, len(res.Omitted))
	for _, o := range res.Omitted {
		omitted[o.Path] = true
	}

	r := &Report{
		Options:   opts,
		Total:     len(all),
		Kept:      []string{},
		Omitted:   res.Omitted,
		Protected: res.Protected,
		Preserved: res.Preserved,
	}

	if r.Omitted == nil {
		r.Omitted = []omit.Omission{}
	}

	for _, rs := range all {
		if omitted[rs.Path()] {
			if rs.Size > 0 {
				r.OmittedBytes += rs.Size
			}

			continue
		}

		r.Kept = append(r.Kept, rs.Path())
	}

	sort.Strings(r.Kept)

	return r
}

// Listings returns the sorted listing before and after omission.
func (r *Report) Listings() (before, after []string) {
	before = append([]string{}, r.Kept...)
	for _, o := range r.Omitted {
		before = append(before, o.Path)
	}

	sort.Strings(before)

	return before, r.Kept
}

// CountByRule returns the number of omitted resources per rule.
func (r *Report) CountByRule() map[string]int {
	out := make(map[string]int)
	for _, o := range r.Omitted {
		out[o.Rule]++
	}

	return out
}

// FormatTable writes a human-readable report.
func FormatTable(w io.Writer, r *Report) {
	title := r.Root
	if r.Project != "" {
		title = fmt.Sprintf("%s (%s)", r.Project, r.Root)
	}

	fmt.Fprintf(w, "Omission plan: %s\n", title)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	if len(r.Omitted) > 0 {
		fmt.Fprintln(w, "\nOmitted:")
		fmt.Fprintln(w, strings.Repeat("-", 40))

		for _, o := range r.Omitted {
			fmt.Fprintf(w, "  %-50s %s\n", o.Path, o.Rule)
		}
	}

	if len(r.Protected) > 0 {
		fmt.Fprintln(w, "\nProtected:")
		fmt.Fprintln(w, strings.Repeat("-", 40))

		for _, o := range r.Protected {
			fmt.Fprintf(w, "  %-50s %s\n", o.Path, o.Rule)
		}
	}

	if len(r.Preserved) > 0 {
		fmt.Fprintln(w, "\nPreserved:")
		fmt.Fprintln(w, strings.Repeat("-", 40))

		for _, p := range r.Preserved {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	fmt.Fprintf(w, "\nSummary: %d resources, %d kept, %d omitted (%d bytes)\n",
		r.Total, len(r.Kept), len(r.Omitted), r.OmittedBytes)
}

// FormatCompact writes a one-line summary.
func FormatCompact(w io.Writer, r *Report) {
	counts := r.CountByRule()

	rules := make([]string, 0, len(counts))
	for rule := range counts {
		rules = append(rules, rule)
	}

	sort.Strings(rules)

	parts := make([]string, 0, len(rules))
	for _, rule := range rules {
		parts = append(parts, fmt.Sprintf("%s=%d", rule, counts[rule]))
	}

	fmt.Fprintf(w, "%d resources, %d kept, %d omitted", r.Total, len(r.Kept), len(r.Omitted))

	if len(parts) > 0 {
		fmt.Fprintf(w, " [%s]", strings.Join(parts, " "))
	}

	fmt.Fprintln(w)
}

// FormatJSON writes the report as indented JSON.
func FormatJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

// FormatYAML writes the report as YAML.
func FormatYAML(w io.Writer, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	_, err = w.Write(data)

	return err
}

// Formats lists the supported output formats.
var Formats = []string{"table", "compact", "json", "yaml"}

// Format writes r in the named format.
func Format(w io.Writer, r *Report, format string) error {
	switch format {
	case "", "table":
		FormatTable(w, r)
	case "compact":
		FormatCompact(w, r)
	case "json":
		return FormatJSON(w, r)
	case "yaml":
		return FormatYAML(w, r)
	default:
		return fmt.Errorf("unknown format %q: must be one of %s", format, strings.Join(Formats, ", "))
	}

	return nil
}
