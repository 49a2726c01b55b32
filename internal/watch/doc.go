// Package watch re-runs the omission pass whenever a build output directory
// or the task configuration changes. Rapid events are debounced, and each run
// reports which resources started or stopped being omitted.
package watch
