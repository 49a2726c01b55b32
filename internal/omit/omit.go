package omit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/ui5omit/internal/resource"
)

// NonBundledRule is the rule name reported for non-bundled originals.
const NonBundledRule = "non-bundled"

// Candidate is a resource matched by a rule.
type Candidate struct {
	Resource *resource.Resource
	// Rule is the name of the first rule that matched.
	Rule string
	// Guarded is true when only guarded rules matched the resource.
	Guarded bool
}

// Omission records a tagged resource and the rule responsible.
type Omission struct {
	Path string `json:"path"`
	Rule string `json:"rule"`
}

// Result is the outcome of a single omission pass.
type Result struct {
	// Omitted are the resources tagged for omission, sorted by path.
	Omitted []Omission `json:"omitted"`
	// Protected are resources matched by a guarded rule or the non-bundled
	// pass but left untouched because of a protected substring.
	Protected []Omission `json:"protected,omitempty"`
	// Preserved are non-bundled candidates kept by preserveNonBundled.
	Preserved []string `json:"preserved,omitempty"`
}

// OmittedPaths returns the sorted paths of all omitted resources.
func (r *Result) OmittedPaths() []string {
	out := make([]string, 0, len(r.Omitted))
	for _, o := range r.Omitted {
		out = append(out, o.Path)
	}

	return out
}

// Task runs the omission pass for one set of options.
type Task struct {
	opts   Options
	logger *slog.Logger
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// WithLogger sets the logger used by the task.
func WithLogger(logger *slog.Logger) TaskOption {
	return func(t *Task) {
		t.logger = logger
	}
}

// New creates a task for the resolved options.
func New(opts Options, taskOpts ...TaskOption) *Task {
	t := &Task{
		opts:   opts,
		logger: slog.Default(),
	}

	for _, o := range taskOpts {
		o(t)
	}

	return t
}

// Options returns the options of the task.
func (t *Task) Options() Options {
	return t.opts
}

// CollectUnconditional queries every enabled rule and returns the union of
// the matches, de-duplicated by path. Queries run concurrently; the result
// order follows the rule table.
func (t *Task) CollectUnconditional(ctx context.Context, ws resource.Workspace) ([]Candidate, error) {
	rules := t.opts.Rules()
	matches := make([][]*resource.Resource, len(rules))

	g, gctx := errgroup.WithContext(ctx)

	for i, rule := range rules {
		g.Go(func() error {
			found, err := queryAll(gctx, ws, rule.Globs)
			if err != nil {
				return fmt.Errorf("rule %s: %w", rule.Name, err)
			}

			matches[i] = found

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Candidate

	index := make(map[string]int)

	for i, rule := range rules {
		t.logger.Debug("rule matched",
			slog.String("rule", rule.Name),
			slog.Int("count", len(matches[i])),
		)

		for _, r := range matches[i] {
			if j, seen := index[r.Path()]; seen {
				// An unguarded match always wins over a guarded one.
				out[j].Guarded = out[j].Guarded && rule.Guarded
				continue
			}

			index[r.Path()] = len(out)
			out = append(out, Candidate{Resource: r, Rule: rule.Name, Guarded: rule.Guarded})
		}
	}

	return out, nil
}

// CollectNonBundledCandidates returns the original, non-bundled resources
// eligible for omission: everything matching the bundled extensions, minus any
// resource whose path contains the path of a resource matched by a
// preserveNonBundled pattern. The second return value lists the preserved
// candidates.
func (t *Task) CollectNonBundledCandidates(ctx context.Context, ws resource.Workspace) ([]*resource.Resource, []*resource.Resource, error) {
	if !t.opts.OmitNonBundled || len(t.opts.BundledExtensions) == 0 {
		return nil, nil, nil
	}

	var originals, preserve []*resource.Resource

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		found, err := ws.ByGlob(gctx, t.opts.NonBundledGlob())
		if err != nil {
			return fmt.Errorf("rule %s: %w", NonBundledRule, err)
		}

		originals = found

		return nil
	})

	g.Go(func() error {
		found, err := queryAll(gctx, ws, t.opts.PreserveNonBundled)
		if err != nil {
			return fmt.Errorf("preserveNonBundled: %w", err)
		}

		preserve = found

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if len(preserve) == 0 {
		return originals, nil, nil
	}

	var candidates, preserved []*resource.Resource

	for _, r := range originals {
		if containsAnyPath(r.Path(), preserve) {
			preserved = append(preserved, r)
			continue
		}

		candidates = append(candidates, r)
	}

	return candidates, preserved, nil
}

// ApplyOmission tags every resource for which pred returns true and returns
// the number of resources tagged.
func ApplyOmission(tagger resource.Tagger, resources []*resource.Resource, pred func(*resource.Resource) bool) int {
	n := 0

	for _, r := range resources {
		if pred(r) {
			tagger.SetTag(r, resource.OmitFromBuildResult)
			n++
		}
	}

	return n
}

// Run performs the complete omission pass. All workspace queries complete
// before the first tag is set, so a failed query leaves the workspace
// untagged.
func (t *Task) Run(ctx context.Context, ws resource.Workspace, tagger resource.Tagger) (*Result, error) {
	unconditional, err := t.CollectUnconditional(ctx, ws)
	if err != nil {
		return nil, err
	}

	nonBundled, preserved, err := t.CollectNonBundledCandidates(ctx, ws)
	if err != nil {
		return nil, err
	}

	res := &Result{Preserved: resource.Paths(preserved)}
	reasons := make(map[string]string)
	protected := make(map[string]string)

	rules := make(map[string]string, len(unconditional))
	guarded := make(map[string]bool)
	resources := make([]*resource.Resource, 0, len(unconditional))

	for _, c := range unconditional {
		resources = append(resources, c.Resource)
		rules[c.Resource.Path()] = c.Rule

		if c.Guarded {
			guarded[c.Resource.Path()] = true
		}
	}

	ApplyOmission(tagger, resources, func(r *resource.Resource) bool {
		if guarded[r.Path()] && t.opts.Protected(r.Path()) {
			protected[r.Path()] = rules[r.Path()]
			return false
		}

		reasons[r.Path()] = rules[r.Path()]

		return true
	})

	tagged := ApplyOmission(tagger, nonBundled, func(r *resource.Resource) bool {
		if t.opts.Protected(r.Path()) {
			_, tagged := reasons[r.Path()]
			if _, ok := protected[r.Path()]; !ok && !tagged {
				protected[r.Path()] = NonBundledRule
			}

			return false
		}

		if _, ok := reasons[r.Path()]; !ok {
			reasons[r.Path()] = NonBundledRule
		}

		return true
	})

	for p, rule := range reasons {
		res.Omitted = append(res.Omitted, Omission{Path: p, Rule: rule})
	}

	for p, rule := range protected {
		res.Protected = append(res.Protected, Omission{Path: p, Rule: rule})
	}

	sortOmissions(res.Omitted)
	sortOmissions(res.Protected)

	t.logger.Info("omission pass finished",
		slog.Int("omitted", len(res.Omitted)),
		slog.Int("nonBundled", tagged),
		slog.Int("protected", len(res.Protected)),
		slog.Int("preserved", len(res.Preserved)),
	)

	return res, nil
}

// queryAll runs one query per pattern and returns the union, de-duplicated by
// path in first-seen order.
func queryAll(ctx context.Context, ws resource.Workspace, patterns []string) ([]*resource.Resource, error) {
	var out []*resource.Resource

	seen := make(map[string]bool)

	for _, p := range patterns {
		found, err := ws.ByGlob(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("querying %q: %w", p, err)
		}

		for _, r := range found {
			if !seen[r.Path()] {
				seen[r.Path()] = true
				out = append(out, r)
			}
		}
	}

	return out, nil
}

func containsAnyPath(p string, resources []*resource.Resource) bool {
	for _, r := range resources {
		if strings.Contains(p, r.Path()) {
			return true
		}
	}

	return false
}

func sortOmissions(o []Omission) {
	sort.Slice(o, func(i, j int) bool { return o[i].Path < o[j].Path })
}
