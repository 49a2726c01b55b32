package plan

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ListingDiff is a unified diff between the build output listing before and
// after omission.
type ListingDiff struct {
	Unified string
	Removed int
}

// HasDifferences reports whether any resource was omitted.
func (d *ListingDiff) HasDifferences() bool {
	return d.Unified != ""
}

// DiffListing computes a unified diff between two sorted path listings.
func DiffListing(before, after []string, context int) (*ListingDiff, error) {
	diff := difflib.UnifiedDiff{
		A:        listingLines(before),
		B:        listingLines(after),
		FromFile: "build output",
		ToFile:   "build result",
		Context:  context,
	}

	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("computing listing diff: %w", err)
	}

	return &ListingDiff{Unified: unified, Removed: len(before) - len(after)}, nil
}

// WriteDiff writes the diff with optional ANSI colors.
func WriteDiff(w io.Writer, d *ListingDiff, color bool) {
	if !d.HasDifferences() {
		_, _ = fmt.Fprintln(w, "Nothing omitted.")
		return
	}

	for _, line := range strings.Split(strings.TrimSuffix(d.Unified, "\n"), "\n") {
		if color {
			writeColorLine(w, line)
		} else {
			_, _ = fmt.Fprintln(w, line)
		}
	}
}

func writeColorLine(w io.Writer, line string) {
	const (
		red   = "\033[31m"
		cyan  = "\033[36m"
		bold  = "\033[1m"
		reset = "\033[0m"
	)

	switch {
	case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
		_, _ = fmt.Fprintf(w, "%s%s%s\n", bold, line, reset)
	case strings.HasPrefix(line, "@@"):
		_, _ = fmt.Fprintf(w, "%s%s%s\n", cyan, line, reset)
	case strings.HasPrefix(line, "-"):
		_, _ = fmt.Fprintf(w, "%s%s%s\n", red, line, reset)
	default:
		_, _ = fmt.Fprintln(w, line)
	}
}

// listingLines turns paths into newline-terminated lines for difflib.
func listingLines(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p+"\n")
	}

	return out
}
