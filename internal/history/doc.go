// Package history persists dispatched change events to PostgreSQL.
//
// The writer batches events and inserts them with ON CONFLICT DO NOTHING
// on the event ID, so re-emitted events after a crash deduplicate in the
// table instead of the notification path. It implements notify.Sink;
// enqueueing never blocks a cycle.
package history
