// Package notify delivers change events to the configured sinks.
//
// Dispatch is at-least-once: a failed send is reported but never blocks
// the cycle's commit, so a sink outage costs duplicate suppression, not
// forward progress.
package notify
