// Package omit implements the resource omission task: after a project has
// been built, it tags debug variants, source maps, non-compiled sources,
// excluded directories and non-bundled originals with
// [resource.OmitFromBuildResult] so the packaging stage leaves them out.
//
// The task is a single pass driven by [Options]. Every category is described
// by one entry of a rule table; rules marked as guarded never tag a resource
// whose path contains a protected substring such as "preload".
package omit
