// Package model defines the core data types shared across the tracker.
//
// A Snapshot is a point-in-time mapping from MEXC symbol to the observed
// Contract value for every perpetual that is listed on MEXC but not on
// Binance. Change events are derived by diffing two snapshots; they are
// never stored independently.
package model
