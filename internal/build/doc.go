// Package build runs passes over a LaTeX source tree.
//
// A pass records the source tree, converts graphics, finds the main documents,
// builds every requested target and copies the results into the output
// directory. Files created in the source tree are removed afterwards unless
// clean up is disabled. Every pass yields a report that is persisted, recorded in
// the build history and published if configured.
package build
