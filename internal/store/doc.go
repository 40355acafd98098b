// Package store owns the persisted state record.
//
// The record lives in a single JSON file under the data directory and is
// replaced atomically (write to temp file, fsync, rename) on every commit.
// No other component touches the file. A checksum over the entries payload
// lets Load distinguish a corrupt record from a merely missing one.
package store
