package watch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Debouncer
// ---------------------------------------------------------------------------

func TestDebouncer_SingleEvent(t *testing.T) {
	var callCount, events atomic.Int32
	var lastPath atomic.Value

	d := NewDebouncer(50*time.Millisecond, func(path string, n int) {
		callCount.Add(1)
		events.Store(int32(n))
		lastPath.Store(path)
	})
	defer d.Stop()

	d.Trigger("Component.js")
	assert.True(t, d.Pending())

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, int32(1), events.Load())
	assert.Equal(t, "Component.js", lastPath.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_MultipleEventsCoalesced(t *testing.T) {
	var callCount, events atomic.Int32

	d := NewDebouncer(100*time.Millisecond, func(_ string, n int) {
		callCount.Add(1)
		events.Store(int32(n))
	})
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger("Component.js")
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, int32(10), events.Load())
}

func TestDebouncer_LastEventWins(t *testing.T) {
	var lastPath atomic.Value

	d := NewDebouncer(50*time.Millisecond, func(path string, _ int) {
		lastPath.Store(path)
	})
	defer d.Stop()

	d.Trigger("first.js")
	time.Sleep(10 * time.Millisecond)
	d.Trigger("second.js")
	time.Sleep(10 * time.Millisecond)
	d.Trigger("third.js")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, "third.js", lastPath.Load())
}

func TestDebouncer_Stop(t *testing.T) {
	var callCount atomic.Int32

	d := NewDebouncer(50*time.Millisecond, func(string, int) {
		callCount.Add(1)
	})

	d.Trigger("Component.js")
	d.Stop()
	assert.False(t, d.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), callCount.Load())
}

// ---------------------------------------------------------------------------
// Delta
// ---------------------------------------------------------------------------

func TestComputeDelta_NoChanges(t *testing.T) {
	d := ComputeDelta([]string{"/a.js", "/b.js"}, []string{"/b.js", "/a.js"})
	assert.False(t, d.HasChanges())
	assert.Equal(t, "no changes", d.Summary())
}

func TestComputeDelta_Changes(t *testing.T) {
	d := ComputeDelta([]string{"/a.js", "/old.js"}, []string{"/a.js", "/z.js.map", "/new.js"})

	assert.True(t, d.HasChanges())
	assert.Equal(t, []string{"/new.js", "/z.js.map"}, d.NewlyOmitted)
	assert.Equal(t, []string{"/old.js"}, d.NoLongerOmitted)
	assert.Equal(t, "+2 omitted, -1 omitted", d.Summary())
}

func TestTracker_FirstRunHasNoDelta(t *testing.T) {
	tr := &tracker{}

	assert.False(t, tr.update([]string{"/a.js"}).HasChanges())
	assert.False(t, tr.update([]string{"/a.js"}).HasChanges())

	d := tr.update(nil)
	assert.Equal(t, []string{"/a.js"}, d.NoLongerOmitted)
}

// ---------------------------------------------------------------------------
// isRelevant
// ---------------------------------------------------------------------------

func TestTracker_ForgetPrunedPaths(t *testing.T) {
	tr := &tracker{}
	tr.update([]string{"/a.js", "/b.js.map"})
	tr.forget([]string{"/a.js"})

	d := tr.update([]string{"/b.js.map"})
	assert.False(t, d.HasChanges())
}

func TestPruneFilter_IgnoresOwnRemovals(t *testing.T) {
	f := &pruneFilter{}
	f.record("dist", []string{"/a-dbg.js", "/i18n"})

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"pruned file removed", fsnotify.Event{Name: filepath.Join("dist", "a-dbg.js"), Op: fsnotify.Remove}, true},
		{"pruned dir removed", fsnotify.Event{Name: "./dist/i18n", Op: fsnotify.Remove}, true},
		{"pruned file written", fsnotify.Event{Name: filepath.Join("dist", "a-dbg.js"), Op: fsnotify.Write}, false},
		{"other file removed", fsnotify.Event{Name: filepath.Join("dist", "b.js"), Op: fsnotify.Remove}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ignore(tt.event))
		})
	}

	f.record("dist", nil)
	assert.False(t, f.ignore(fsnotify.Event{Name: filepath.Join("dist", "a-dbg.js"), Op: fsnotify.Remove}))
}

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"js write", "Component.js", fsnotify.Write, true},
		{"ui5.yaml write", "ui5.yaml", fsnotify.Write, true},
		{"create event", "Component-dbg.js", fsnotify.Create, true},
		{"remove event", "Component.js.map", fsnotify.Remove, true},
		{"rename event", "renamed.js", fsnotify.Rename, true},
		{"hidden file", ".hidden", fsnotify.Write, false},
		{"swap file", "file.swp", fsnotify.Write, false},
		{"backup tilde", "file~", fsnotify.Write, false},
		{"emacs hash", "#file#", fsnotify.Write, false},
		{"zero op", "file.yaml", 0, false},
		{"chmod only", "file.yaml", fsnotify.Chmod, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := fsnotify.Event{Name: tt.path, Op: tt.op}
			assert.Equal(t, tt.want, isRelevant(event))
		})
	}
}

// ---------------------------------------------------------------------------
// addRecursive
// ---------------------------------------------------------------------------

func TestAddRecursive_SkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()

	// Create directory structure with visible and hidden dirs.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "controller"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "test", "unit"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Component.js"), []byte("sap.ui.define([])"), 0o644))

	// Create a real fsnotify watcher and call addRecursive.
	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, addRecursive(watcher, dir))

	watchList := watcher.WatchList()

	watched := make(map[string]bool)
	for _, p := range watchList {
		watched[p] = true
	}

	assert.True(t, watched[dir], "root should be watched")
	assert.True(t, watched[filepath.Join(dir, "controller")], "controller should be watched")
	assert.True(t, watched[filepath.Join(dir, "test")], "test should be watched")
	assert.True(t, watched[filepath.Join(dir, "test", "unit")], "test/unit should be watched")
	assert.False(t, watched[filepath.Join(dir, ".git")], ".git should NOT be watched")
	assert.False(t, watched[filepath.Join(dir, ".git", "objects")], ".git/objects should NOT be watched")
	assert.False(t, watched[filepath.Join(dir, ".hidden")], ".hidden should NOT be watched")
}

func TestAddRecursive_NonExistentDir(t *testing.T) {
	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	err = addRecursive(watcher, "/nonexistent/dir/12345")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Run (integration)
// ---------------------------------------------------------------------------

func TestRun_GracefulShutdown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Component.js"), []byte("sap.ui.define([])"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())

	var runCount atomic.Int32

	opts := DefaultOptions()
	opts.Dir = dir
	opts.Debounce = 50 * time.Millisecond
	opts.Out = io.Discard

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			runCount.Add(1)
			return &RunResult{Total: 1, Omitted: []string{"/Component.js"}}, nil
		})
	}()

	// Let initial run complete.
	time.Sleep(200 * time.Millisecond)
	assert.GreaterOrEqual(t, runCount.Load(), int32(1))

	// Cancel → should shut down gracefully.
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not shut down in time")
	}
}

func TestRun_FileChangeTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	componentFile := filepath.Join(dir, "Component.js")
	mapFile := filepath.Join(dir, "Component.js.map")
	require.NoError(t, os.WriteFile(componentFile, []byte("sap.ui.define([])"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runCount atomic.Int32

	opts := DefaultOptions()
	opts.Dir = dir
	opts.Debounce = 50 * time.Millisecond
	opts.Out = io.Discard

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			runCount.Add(1)
			return &RunResult{Total: 1, Omitted: []string{"/Component.js"}}, nil
		})
	}()

	// Wait for initial run.
	time.Sleep(200 * time.Millisecond)
	initialRuns := runCount.Load()

	// A new file in the output should trigger another pass.
	require.NoError(t, os.WriteFile(mapFile, []byte("{}"), 0o644))

	// Wait for debounce + processing.
	time.Sleep(300 * time.Millisecond)
	assert.Greater(t, runCount.Load(), initialRuns, "file change should trigger another pass")

	cancel()
	<-done
}

// ---------------------------------------------------------------------------
// DefaultOptions
// ---------------------------------------------------------------------------

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 500*time.Millisecond, opts.Debounce)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Out)
}

// ---------------------------------------------------------------------------
// Run error paths
// ---------------------------------------------------------------------------

func TestRun_InvalidDir(t *testing.T) {
	opts := DefaultOptions()
	opts.Dir = "/nonexistent/dist/dir/12345"
	opts.Out = io.Discard

	err := Run(context.Background(), opts, func(_ context.Context) (*RunResult, error) {
		return &RunResult{}, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watching output directory")
}

func TestRun_RunFuncError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Component.js"), []byte("sap.ui.define([])"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())

	opts := DefaultOptions()
	opts.Dir = dir
	opts.Debounce = 50 * time.Millisecond
	opts.Out = io.Discard

	var callCount atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			callCount.Add(1)
			return nil, fmt.Errorf("query failed")
		})
	}()

	// Initial run will produce an error, but watcher continues.
	time.Sleep(200 * time.Millisecond)
	assert.GreaterOrEqual(t, callCount.Load(), int32(1))

	cancel()
	<-done
}

func TestRun_ExtraFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Component.js"), []byte("sap.ui.define([])"), 0o644))

	extraFile := filepath.Join(t.TempDir(), "ui5.yaml")
	require.NoError(t, os.WriteFile(extraFile, []byte("specVersion: \"3.0\""), 0o644))

	ctx, cancel := context.WithCancel(context.Background())

	opts := DefaultOptions()
	opts.Dir = dir
	opts.ExtraFiles = []string{extraFile}
	opts.Debounce = 50 * time.Millisecond
	opts.Out = io.Discard

	var runCount atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			runCount.Add(1)
			return &RunResult{Total: 1, Omitted: []string{"/Component.js"}}, nil
		})
	}()

	time.Sleep(200 * time.Millisecond)
	assert.GreaterOrEqual(t, runCount.Load(), int32(1))

	cancel()
	<-done
}

// syncBuffer is a bytes.Buffer safe for the watcher goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestRun_ReportsStatus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Component.js"), []byte("sap.ui.define([])"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())

	out := &syncBuffer{}

	opts := DefaultOptions()
	opts.Dir = dir
	opts.Debounce = 50 * time.Millisecond
	opts.Out = out

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			return &RunResult{Total: 3, Omitted: []string{"/Component.js"}, Pruned: []string{"/Component.js"}}, nil
		})
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Contains(t, out.String(), "watching "+dir)
	assert.Contains(t, out.String(), "(initial) → OK (3 resources, 1 omitted)")
	assert.Contains(t, out.String(), "pruned: 1")
}

func TestRun_PruneDoesNotRetrigger(t *testing.T) {
	dir := t.TempDir()
	dbgFile := filepath.Join(dir, "Component-dbg.js")
	require.NoError(t, os.WriteFile(dbgFile, []byte("sap.ui.define([])"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runCount atomic.Int32

	out := &syncBuffer{}

	opts := DefaultOptions()
	opts.Dir = dir
	opts.Debounce = 50 * time.Millisecond
	opts.Out = out

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			if runCount.Add(1) > 1 {
				return &RunResult{Total: 1}, nil
			}

			if err := os.Remove(dbgFile); err != nil {
				return nil, err
			}

			return &RunResult{
				Total:   2,
				Omitted: []string{"/Component-dbg.js"},
				Pruned:  []string{"/Component-dbg.js"},
			}, nil
		})
	}()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), runCount.Load(), "removing pruned files must not trigger another pass")

	// A genuine change still triggers a pass, without reporting the pruned
	// file as no longer omitted.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{}"), 0o644))
	time.Sleep(300 * time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int32(2), runCount.Load())
	assert.Contains(t, out.String(), "pruned: 1")
	assert.NotContains(t, out.String(), "-1 omitted")
}
