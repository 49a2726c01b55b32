// Package resource provides the build workspace abstractions the omission
// task operates on: resources identified by a logical path, glob queries over
// a workspace, and tags attached to resources.
package resource

import (
	"path"
	"strings"
)

// Tag marks a resource for special treatment by later build stages.
type Tag string

// OmitFromBuildResult tells the packaging stage to leave a resource out of
// the final build output.
const OmitFromBuildResult Tag = "ui5:OmitFromBuildResult"

// Resource is a build output artifact identified by its logical path
// (e.g. "/resources/my/app/Component.js").
type Resource struct {
	path string

	// Size is the content length in bytes, or -1 when unknown.
	Size int64
}

// New creates a resource for the given logical path. Backslashes are
// normalised to forward slashes.
func New(p string) *Resource {
	return &Resource{path: normalize(p), Size: -1}
}

// Path returns the logical path of the resource.
func (r *Resource) Path() string {
	return r.path
}

// Name returns the last path element.
func (r *Resource) Name() string {
	return path.Base(r.path)
}

// String implements fmt.Stringer.
func (r *Resource) String() string {
	return r.path
}

// Paths returns the paths of the given resources in order.
func Paths(resources []*Resource) []string {
	out := make([]string, 0, len(resources))
	for _, r := range resources {
		out = append(out, r.Path())
	}

	return out
}

func normalize(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// relative strips the leading slash so a logical path can be matched
// against patterns like "**/*.js".
func relative(p string) string {
	return strings.TrimLeft(normalize(p), "/")
}
