// Package tracker drives the poll cycle: fetch, diff, dispatch, commit.
//
// Exactly one cycle runs at a time. The store is committed strictly after
// dispatch, so a crash between the two re-detects and re-emits on the next
// run instead of silently losing events. Fetch failures skip the cycle and
// leave the store untouched; dispatch failures are reported but never block
// the commit.
package tracker
