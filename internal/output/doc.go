// Package output applies the result of an omission pass to a build output
// directory. It stands in for the packaging stage of a build pipeline:
//
//   - Pruning (prune.go): remove tagged resources from the output directory
//     in place and clean up directories left empty.
//
//   - Exporting (export.go): copy every untagged resource to a separate
//     destination directory, leaving the source untouched.
package output
