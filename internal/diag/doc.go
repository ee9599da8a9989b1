// Package diag holds the diagnostics collected from tool output and the
// Report they are appended to while steps run.
//
// A Report is written by the two stream drains of a running step and read
// only after every tool has finished, so Add is the only method that takes
// the lock on the hot path.
package diag
