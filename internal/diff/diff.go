package diff

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rmoroz/mexc-tracker/internal/model"
)

// eventNamespace is the UUIDv5 namespace for change event IDs. An ID is
// derived from (kind, symbol, capture time): re-detecting the same change
// after a crash or failed commit reproduces the same event ID.
var eventNamespace = uuid.MustParse("3f9a6e0c-52b1-4f6e-9d27-8c41d3b0aa15")

func eventID(kind model.ChangeKind, symbol string, capturedAt time.Time) uuid.UUID {
	name := string(kind) + "|" + symbol + "|" + capturedAt.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(eventNamespace, []byte(name))
}

// Compute diffs the current snapshot against the previous one and returns
// the ordered change events.
//
// A nil previous snapshot means first run: the current snapshot is the
// baseline and no events are emitted, so a fresh deployment never causes
// a notification storm.
//
// Events are ordered lexicographically by symbol across all kinds. Inputs
// are never mutated.
func Compute(previous *model.Snapshot, current model.Snapshot) []model.Change {
	if previous == nil {
		return nil
	}

	symbols := make([]string, 0, len(previous.Entries)+len(current.Entries))
	seen := make(map[string]struct{}, len(previous.Entries)+len(current.Entries))
	for sym := range previous.Entries {
		symbols = append(symbols, sym)
		seen[sym] = struct{}{}
	}
	for sym := range current.Entries {
		if _, ok := seen[sym]; !ok {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)

	var changes []model.Change
	for _, sym := range symbols {
		oldVal, inOld := previous.Entries[sym]
		newVal, inNew := current.Entries[sym]

		switch {
		case !inOld && inNew:
			v := newVal
			changes = append(changes, model.Change{
				ID:         eventID(model.ChangeAdded, sym, current.CapturedAt),
				Kind:       model.ChangeAdded,
				Symbol:     sym,
				New:        &v,
				CapturedAt: current.CapturedAt,
			})
		case inOld && !inNew:
			v := oldVal
			changes = append(changes, model.Change{
				ID:         eventID(model.ChangeRemoved, sym, current.CapturedAt),
				Kind:       model.ChangeRemoved,
				Symbol:     sym,
				Old:        &v,
				CapturedAt: current.CapturedAt,
			})
		case !oldVal.Equal(newVal):
			o, n := oldVal, newVal
			changes = append(changes, model.Change{
				ID:         eventID(model.ChangeModified, sym, current.CapturedAt),
				Kind:       model.ChangeModified,
				Symbol:     sym,
				Old:        &o,
				New:        &n,
				CapturedAt: current.CapturedAt,
			})
		}
	}

	return changes
}
