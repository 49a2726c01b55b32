package watch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Delta describes how the omitted set changed between two runs.
type Delta struct {
	NewlyOmitted    []string
	NoLongerOmitted []string
}

// HasChanges reports whether the omitted set changed.
func (d Delta) HasChanges() bool {
	return len(d.NewlyOmitted) > 0 || len(d.NoLongerOmitted) > 0
}

// Summary returns a short human-readable description of the delta.
func (d Delta) Summary() string {
	var parts []string

	if n := len(d.NewlyOmitted); n > 0 {
		parts = append(parts, fmt.Sprintf("+%d omitted", n))
	}

	if n := len(d.NoLongerOmitted); n > 0 {
		parts = append(parts, fmt.Sprintf("-%d omitted", n))
	}

	if len(parts) == 0 {
		return "no changes"
	}

	return strings.Join(parts, ", ")
}

// ComputeDelta compares two omitted sets.
func ComputeDelta(previous, current []string) Delta {
	prev := make(map[string]bool, len(previous))
	for _, p := range previous {
		prev[p] = true
	}

	cur := make(map[string]bool, len(current))
	for _, p := range current {
		cur[p] = true
	}

	var d Delta

	for _, p := range current {
		if !prev[p] {
			d.NewlyOmitted = append(d.NewlyOmitted, p)
		}
	}

	for _, p := range previous {
		if !cur[p] {
			d.NoLongerOmitted = append(d.NoLongerOmitted, p)
		}
	}

	sort.Strings(d.NewlyOmitted)
	sort.Strings(d.NoLongerOmitted)

	return d
}

// tracker remembers the omitted set of the previous run. The first run
// reports no delta.
type tracker struct {
	mu       sync.Mutex
	seen     bool
	previous []string
}

func (t *tracker) update(current []string) Delta {
	t.mu.Lock()
	defer t.mu.Unlock()

	defer func() {
		t.previous = append([]string(nil), current...)
		t.seen = true
	}()

	if !t.seen {
		return Delta{}
	}

	return ComputeDelta(t.previous, current)
}

// forget drops paths that no longer exist from the remembered set, so that a
// later run does not report them as no longer omitted.
func (t *tracker) forget(paths []string) {
	if len(paths) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	gone := make(map[string]bool, len(paths))
	for _, p := range paths {
		gone[p] = true
	}

	kept := t.previous[:0]

	for _, p := range t.previous {
		if !gone[p] {
			kept = append(kept, p)
		}
	}

	t.previous = kept
}

// pruneFilter swallows the Remove events caused by the watcher's own
// pruning. The lock is held for the duration of a run, so events that
// arrive while files are being removed wait until the pruned set is known.
type pruneFilter struct {
	mu     sync.Mutex
	pruned map[string]bool
}

// record replaces the pruned set with the logical paths mapped onto dir.
// The caller holds f.mu.
func (f *pruneFilter) record(dir string, paths []string) {
	f.pruned = make(map[string]bool, len(paths))

	for _, p := range paths {
		f.pruned[filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(p, "/")))] = true
	}
}

// ignore reports whether event is the removal of a path pruned by the
// previous run.
func (f *pruneFilter) ignore(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Remove) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pruned[filepath.Clean(event.Name)]
}
