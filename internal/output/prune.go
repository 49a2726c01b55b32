package output

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/hupe1980/ui5omit/internal/resource"
)

// Options configures Prune and Export.
type Options struct {
	// DryRun reports what would change without touching the filesystem.
	DryRun bool

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}

	return o.Logger
}

// PruneResult lists the files and directories removed by Prune.
type PruneResult struct {
	Files []string
	Dirs  []string
}

// Prune removes the files at the given logical paths below root, then removes
// directories that became empty. Paths that no longer exist are skipped.
func Prune(ctx context.Context, fs afero.Fs, root string, paths []string, opts Options) (*PruneResult, error) {
	root = resource.AbsRoot(root)
	logger := opts.logger()
	res := &PruneResult{}
	touched := make(map[string]bool)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		full, err := resolve(root, p)
		if err != nil {
			return res, err
		}

		if _, statErr := fs.Stat(full); os.IsNotExist(statErr) {
			continue
		}

		if !opts.DryRun {
			if err := fs.Remove(full); err != nil {
				return res, fmt.Errorf("removing %s: %w", full, err)
			}
		}

		logger.Debug("omitted resource removed", slog.String("path", p), slog.Bool("dryRun", opts.DryRun))
		res.Files = append(res.Files, p)

		for dir := filepath.Dir(full); within(root, dir) && dir != root; dir = filepath.Dir(dir) {
			touched[dir] = true
		}
	}

	if opts.DryRun {
		return res, nil
	}

	dirs := make([]string, 0, len(touched))
	for d := range touched {
		dirs = append(dirs, d)
	}

	// Deepest first so parents are empty by the time they are checked.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	for _, d := range dirs {
		empty, err := afero.IsEmpty(fs, d)
		if err != nil || !empty {
			continue
		}

		if err := fs.Remove(d); err != nil {
			return res, fmt.Errorf("removing empty directory %s: %w", d, err)
		}

		rel, _ := filepath.Rel(root, d)
		res.Dirs = append(res.Dirs, "/"+filepath.ToSlash(rel))
	}

	sort.Strings(res.Dirs)

	return res, nil
}

// resolve maps a logical path onto root and rejects paths escaping it.
func resolve(root, p string) (string, error) {
	absRoot := resource.AbsRoot(root)
	full := filepath.Join(absRoot, filepath.FromSlash(strings.TrimLeft(p, "/")))

	if !within(absRoot, full) {
		return "", fmt.Errorf("path %q escapes output directory %s", p, root)
	}

	return full, nil
}

// within reports whether p is root or lies below it. Both must be absolute.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
