package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc is called each time the watcher triggers an omission pass.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult holds the outcome of a single pass so the watcher can report
// changes between runs.
type RunResult struct {
	Total   int
	Omitted []string
	// Pruned lists the logical paths of files and directories removed
	// during the run. Their Remove events do not trigger another run.
	Pruned []string
}

// Options configures the watch behaviour.
type Options struct {
	// Dir is the build output directory to watch recursively.
	Dir string

	// ExtraFiles are additional files to watch (e.g. ui5.yaml).
	ExtraFiles []string

	// Debounce is the quiet period before triggering a run.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 500 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// Run starts the file watcher and blocks until the context is cancelled
// or a SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, opts.Dir); err != nil {
		return fmt.Errorf("watching output directory: %w", err)
	}

	for _, f := range opts.ExtraFiles {
		abs, absErr := filepath.Abs(f)
		if absErr != nil {
			return fmt.Errorf("resolving extra file %q: %w", f, absErr)
		}

		if err := watcher.Add(abs); err != nil {
			return fmt.Errorf("watching file %q: %w", abs, err)
		}
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", opts.Dir, opts.Debounce)

	tracker := &tracker{}
	filter := &pruneFilter{}

	doRun(sigCtx, opts, runFn, tracker, filter, "(initial)")

	debouncer := NewDebouncer(opts.Debounce, func(path string, events int) {
		trigger := path
		if events > 1 {
			trigger = fmt.Sprintf("%s (+%d more)", path, events-1)
		}

		doRun(sigCtx, opts, runFn, tracker, filter, trigger)
	})
	defer debouncer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event) || filter.ignore(event) {
				continue
			}

			// New directories are watched too.
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name)
				}
			}

			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// doRun executes a single pass and prints the status line.
func doRun(ctx context.Context, opts Options, runFn RunFunc, t *tracker, f *pruneFilter, trigger string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().Format("15:04:05")

	result, err := runFn(ctx)
	if err != nil {
		f.record(opts.Dir, nil)
		fmt.Fprintf(opts.Out, "[%s] %s → ERROR: %v\n", now, trigger, err)

		return
	}

	f.record(opts.Dir, result.Pruned)

	fmt.Fprintf(opts.Out, "[%s] %s → OK (%d resources, %d omitted)\n",
		now, trigger, result.Total, len(result.Omitted))

	if len(result.Pruned) > 0 {
		fmt.Fprintf(opts.Out, "  pruned: %d\n", len(result.Pruned))
	}

	if delta := t.update(result.Omitted); delta.HasChanges() {
		fmt.Fprintf(opts.Out, "  changes: %s\n", delta.Summary())
	}

	t.forget(result.Pruned)
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			return watcher.Add(path)
		}

		return nil
	})
}

// isRelevant filters out events that cannot change the build output.
func isRelevant(event fsnotify.Event) bool {
	if event.Op == 0 {
		return false
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(event.Name)

	// Editor temporary files and hidden files.
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#") {
		return false
	}

	return true
}
