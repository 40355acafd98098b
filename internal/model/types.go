package model

import (
	"time"

	"github.com/google/uuid"
)

// Contract is the observed value for a single MEXC perpetual contract.
type Contract struct {
	Symbol      string `json:"symbol"`       // MEXC symbol (e.g., "XYZ_USDT")
	DisplayName string `json:"display_name"` // Human-readable name
	BaseCoin    string `json:"base_coin"`    // Base asset (e.g., "XYZ")
	QuoteCoin   string `json:"quote_coin"`   // Quote asset (always "USDT" for tracked contracts)
	State       int    `json:"state"`        // MEXC listing state (0 = enabled)
	MaxLeverage int    `json:"max_leverage"` // Maximum leverage offered
}

// Equal reports whether two contract values are observably identical.
// A change in any field produces a Modified event.
func (c Contract) Equal(other Contract) bool {
	return c == other
}

// Snapshot is a point-in-time capture of all MEXC-unique perpetuals.
// Entries is keyed by MEXC symbol; symbols are unique by construction.
// Snapshots are treated as immutable once built.
type Snapshot struct {
	Entries    map[string]Contract `json:"entries"`
	CapturedAt time.Time           `json:"captured_at"`
}

// Len returns the number of tracked contracts.
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Symbols returns the snapshot's symbols in unspecified order.
func (s Snapshot) Symbols() []string {
	out := make([]string, 0, len(s.Entries))
	for sym := range s.Entries {
		out = append(out, sym)
	}
	return out
}

// ChangeKind classifies a change event.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// Change is a single detected difference between two snapshots.
type Change struct {
	ID         uuid.UUID  // Event ID, assigned at diff time
	Kind       ChangeKind // added, removed, modified
	Symbol     string     // MEXC symbol
	Old        *Contract  // Previous value (nil for added)
	New        *Contract  // Current value (nil for removed)
	CapturedAt time.Time  // Capture time of the snapshot that produced this event
}

// Stats tracks run statistics persisted alongside the snapshot.
type Stats struct {
	ChecksPerformed int64     `json:"checks_performed"` // Committed cycles
	MaxUnique       int       `json:"max_unique"`       // Largest unique-set size observed
	StartedAt       time.Time `json:"started_at"`       // First commit time (tracking epoch)
}
