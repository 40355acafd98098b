// Package stream watches the MEXC contract WebSocket for symbols that are
// not in the last committed snapshot and asks the tracker for an early
// check, cutting detection latency from the poll interval to seconds.
//
// The watch is purely advisory: any connection failure degrades to
// poll-only operation, and the watcher reconnects with backoff in the
// background.
package stream
