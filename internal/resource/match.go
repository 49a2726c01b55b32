package resource

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match reports whether the logical path p matches the glob pattern.
// Patterns follow doublestar semantics: "**" spans directories, "*" and "?"
// stay within a path segment, and "{a,b}" alternates. Leading slashes on both
// the pattern and the path are ignored.
func Match(pattern, p string) (bool, error) {
	ok, err := doublestar.Match(relative(pattern), relative(p))
	if err != nil {
		return false, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	return ok, nil
}

// ValidatePattern returns an error when pattern is not a valid glob.
func ValidatePattern(pattern string) error {
	if !doublestar.ValidatePattern(relative(pattern)) {
		return fmt.Errorf("invalid glob pattern %q", pattern)
	}

	return nil
}

// QuoteMeta escapes the glob metacharacters in s so it matches literally.
func QuoteMeta(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}

		b.WriteRune(r)
	}

	return b.String()
}
