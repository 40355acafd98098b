// Package diff implements the change-detection engine.
//
// Compute is a pure function over two snapshots. It performs no I/O and
// emits events in lexicographic symbol order so that identical inputs
// always produce identical output, which is what makes re-emission after
// a crash safe to reason about.
package diff
