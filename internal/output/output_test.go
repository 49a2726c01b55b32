package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ui5omit/internal/logging"
)

func newDist(t *testing.T, files ...string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, "/dist/"+f, []byte("content of "+f), 0o644))
	}

	return fs
}

// writeOSDist writes files below dir on disk.
func writeOSDist(t *testing.T, dir string, files ...string) {
	t.Helper()

	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte("content of "+f), 0o600))
	}
}

// ---------------------------------------------------------------------------
// Prune
// ---------------------------------------------------------------------------

func TestPrune_RemovesFilesAndEmptyDirs(t *testing.T) {
	fs := newDist(t, "Component.js", "Component-preload.js", "i18n/messages.properties", "test/unit/AllTests.js")

	res, err := Prune(context.Background(), fs, "/dist",
		[]string{"/Component.js", "/i18n/messages.properties", "/test/unit/AllTests.js"},
		Options{Logger: logging.Discard()})
	require.NoError(t, err)

	assert.Equal(t, []string{"/Component.js", "/i18n/messages.properties", "/test/unit/AllTests.js"}, res.Files)
	assert.Equal(t, []string{"/i18n", "/test", "/test/unit"}, res.Dirs)

	exists, _ := afero.Exists(fs, "/dist/Component-preload.js")
	assert.True(t, exists)

	for _, gone := range []string{"/dist/Component.js", "/dist/i18n", "/dist/test"} {
		exists, _ := afero.Exists(fs, gone)
		assert.False(t, exists, gone)
	}

	exists, _ = afero.Exists(fs, "/dist")
	assert.True(t, exists)
}

func TestPrune_KeepsNonEmptyDirs(t *testing.T) {
	fs := newDist(t, "controller/Main.controller.js", "controller/Main.controller.ts")

	res, err := Prune(context.Background(), fs, "/dist", []string{"/controller/Main.controller.ts"}, Options{Logger: logging.Discard()})
	require.NoError(t, err)
	assert.Empty(t, res.Dirs)

	exists, _ := afero.Exists(fs, "/dist/controller/Main.controller.js")
	assert.True(t, exists)
}

func TestPrune_DryRun(t *testing.T) {
	fs := newDist(t, "a.js.map")

	res, err := Prune(context.Background(), fs, "/dist", []string{"/a.js.map"}, Options{DryRun: true, Logger: logging.Discard()})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a.js.map"}, res.Files)

	exists, _ := afero.Exists(fs, "/dist/a.js.map")
	assert.True(t, exists)
}

func TestPrune_SkipsMissing(t *testing.T) {
	fs := newDist(t, "a.js")

	res, err := Prune(context.Background(), fs, "/dist", []string{"/missing.js"}, Options{Logger: logging.Discard()})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
}

func TestPrune_RejectsEscapingPath(t *testing.T) {
	fs := newDist(t, "a.js")

	_, err := Prune(context.Background(), fs, "/dist", []string{"/../etc/passwd"}, Options{Logger: logging.Discard()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes output directory")
}

func TestPrune_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Prune(ctx, newDist(t, "a.js"), "/dist", []string{"/a.js"}, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

func TestExport_CopiesKeptResources(t *testing.T) {
	src := newDist(t, "Component-preload.js", "manifest.json", "Component.js")
	dest := afero.NewMemMapFs()

	n, err := Export(context.Background(), src, "/dist", dest, "/out",
		[]string{"/Component-preload.js", "/manifest.json"}, Options{Logger: logging.Discard()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := afero.ReadFile(dest, "/out/manifest.json")
	require.NoError(t, err)
	assert.Equal(t, "content of manifest.json", string(data))

	exists, _ := afero.Exists(dest, "/out/Component.js")
	assert.False(t, exists)
}

func TestExport_Overwrites(t *testing.T) {
	src := newDist(t, "nested/a.js")
	dest := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(dest, "/out/nested/a.js", []byte("old"), 0o644))

	_, err := Export(context.Background(), src, "/dist", dest, "/out", []string{"/nested/a.js"}, Options{Logger: logging.Discard()})
	require.NoError(t, err)

	data, err := afero.ReadFile(dest, "/out/nested/a.js")
	require.NoError(t, err)
	assert.Equal(t, "content of nested/a.js", string(data))
}

func TestExport_DryRun(t *testing.T) {
	src := newDist(t, "a.js")
	dest := afero.NewMemMapFs()

	n, err := Export(context.Background(), src, "/dist", dest, "/out", []string{"/a.js"}, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	exists, _ := afero.Exists(dest, "/out/a.js")
	assert.False(t, exists)
}

func TestExport_MissingSource(t *testing.T) {
	_, err := Export(context.Background(), afero.NewMemMapFs(), "/dist", afero.NewMemMapFs(), "/out",
		[]string{"/nope.js"}, Options{Logger: logging.Discard()})
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Relative and root directories
// ---------------------------------------------------------------------------

func TestPrune_CurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	writeOSDist(t, dir, "Component.js", "Component-dbg.js", "i18n/messages.properties", "test/unit/AllTests.js")
	t.Chdir(dir)

	res, err := Prune(context.Background(), afero.NewOsFs(), ".",
		[]string{"/Component-dbg.js", "/i18n/messages.properties", "/test/unit/AllTests.js"},
		Options{Logger: logging.Discard()})
	require.NoError(t, err)

	assert.Len(t, res.Files, 3)
	assert.Equal(t, []string{"/i18n", "/test", "/test/unit"}, res.Dirs)
	assert.FileExists(t, filepath.Join(dir, "Component.js"))
	assert.NoFileExists(t, filepath.Join(dir, "Component-dbg.js"))
	assert.NoDirExists(t, filepath.Join(dir, "test"))
}

func TestPrune_RelativeSubdirectory(t *testing.T) {
	tmp := t.TempDir()
	writeOSDist(t, filepath.Join(tmp, "dist"), "controller/Main-dbg.controller.js", "controller/Main.controller.js")
	t.Chdir(tmp)

	res, err := Prune(context.Background(), afero.NewOsFs(), "dist",
		[]string{"/controller/Main-dbg.controller.js"}, Options{Logger: logging.Discard()})
	require.NoError(t, err)

	assert.Equal(t, []string{"/controller/Main-dbg.controller.js"}, res.Files)
	assert.Empty(t, res.Dirs)
	assert.FileExists(t, filepath.Join(tmp, "dist", "controller", "Main.controller.js"))
}

func TestPrune_RelativeRootStillRejectsEscapingPath(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Prune(context.Background(), afero.NewOsFs(), ".", []string{"/../outside.js"}, Options{Logger: logging.Discard()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes output directory")
}

func TestPrune_FilesystemRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.js.map", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/sub/b.js.map", []byte("x"), 0o644))

	res, err := Prune(context.Background(), fs, "/", []string{"/a.js.map", "/sub/b.js.map"}, Options{Logger: logging.Discard()})
	require.NoError(t, err)

	assert.Equal(t, []string{"/a.js.map", "/sub/b.js.map"}, res.Files)
	assert.Equal(t, []string{"/sub"}, res.Dirs)
}

func TestExport_RelativeDirectories(t *testing.T) {
	tmp := t.TempDir()
	writeOSDist(t, filepath.Join(tmp, "dist"), "manifest.json", "controller/Main.controller.js")
	t.Chdir(tmp)

	fs := afero.NewOsFs()

	n, err := Export(context.Background(), fs, "./dist", fs, "out",
		[]string{"/manifest.json", "/controller/Main.controller.js"}, Options{Logger: logging.Discard()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.FileExists(t, filepath.Join(tmp, "out", "manifest.json"))
	assert.FileExists(t, filepath.Join(tmp, "out", "controller", "Main.controller.js"))
}
