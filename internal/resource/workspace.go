package resource

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Workspace is a read view over the resources of the build in progress.
type Workspace interface {
	// ByGlob returns every resource whose path matches pattern.
	ByGlob(ctx context.Context, pattern string) ([]*Resource, error)
}

// MemoryWorkspace is a Workspace over a fixed set of resources.
type MemoryWorkspace struct {
	resources []*Resource
}

// NewMemoryWorkspace creates a workspace holding one resource per path.
func NewMemoryWorkspace(paths ...string) *MemoryWorkspace {
	resources := make([]*Resource, 0, len(paths))
	for _, p := range paths {
		resources = append(resources, New(p))
	}

	return &MemoryWorkspace{resources: resources}
}

// Add appends resources to the workspace.
func (w *MemoryWorkspace) Add(resources ...*Resource) {
	w.resources = append(w.resources, resources...)
}

// ByGlob returns the resources matching pattern in insertion order.
func (w *MemoryWorkspace) ByGlob(ctx context.Context, pattern string) ([]*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*Resource

	for _, r := range w.resources {
		ok, err := Match(pattern, r.Path())
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, r)
		}
	}

	return out, nil
}

// FSWorkspace exposes the files below a root directory as resources.
// Resource paths are slash-separated, relative to root, with a leading slash.
type FSWorkspace struct {
	fs   afero.Fs
	root string
	iofs fs.FS
}

// NewFSWorkspace creates a workspace rooted at root on the given filesystem.
// A relative root is resolved against the working directory.
func NewFSWorkspace(fsys afero.Fs, root string) *FSWorkspace {
	root = AbsRoot(root)
	base := afero.NewBasePathFs(fsys, root)

	return &FSWorkspace{
		fs:   fsys,
		root: root,
		iofs: afero.NewIOFS(base),
	}
}

// AbsRoot returns root as a clean absolute path. afero.BasePathFs only
// accepts paths that keep the base as a prefix, which "." never is.
func AbsRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}

	return abs
}

// Fs returns the underlying filesystem.
func (w *FSWorkspace) Fs() afero.Fs {
	return w.fs
}

// Root returns the workspace root directory.
func (w *FSWorkspace) Root() string {
	return w.root
}

// ByGlob walks the filesystem and returns the files matching pattern, sorted
// by path.
func (w *FSWorkspace) ByGlob(ctx context.Context, pattern string) ([]*Resource, error) {
	var out []*Resource

	err := doublestar.GlobWalk(w.iofs, relative(pattern), func(p string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		r := New(path.Join("/", p))

		if info, infoErr := d.Info(); infoErr == nil {
			r.Size = info.Size()
		}

		out = append(out, r)

		return nil
	}, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("querying %q in %s: %w", pattern, w.root, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })

	return out, nil
}

// List returns every resource in the workspace.
func List(ctx context.Context, ws Workspace) ([]*Resource, error) {
	return ws.ByGlob(ctx, "**")
}
