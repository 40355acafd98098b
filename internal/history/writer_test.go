package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rmoroz/mexc-tracker/internal/model"
	"github.com/rmoroz/mexc-tracker/internal/notify"
)

func TestTransform(t *testing.T) {
	old := model.Contract{Symbol: "ABC_USDT", State: 0}
	updated := model.Contract{Symbol: "ABC_USDT", State: 2}
	change := model.Change{
		ID:         uuid.New(),
		Kind:       model.ChangeModified,
		Symbol:     "ABC_USDT",
		Old:        &old,
		New:        &updated,
		CapturedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	row, err := transform(change)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if row.EventID != change.ID || row.Kind != "modified" || row.Symbol != "ABC_USDT" {
		t.Errorf("row = %+v", row)
	}

	var oldVal model.Contract
	if err := json.Unmarshal(row.OldValue, &oldVal); err != nil {
		t.Fatalf("old value not valid JSON: %v", err)
	}
	if oldVal.State != 0 {
		t.Errorf("old state = %d, want 0", oldVal.State)
	}

	var newVal model.Contract
	if err := json.Unmarshal(row.NewValue, &newVal); err != nil {
		t.Fatalf("new value not valid JSON: %v", err)
	}
	if newVal.State != 2 {
		t.Errorf("new state = %d, want 2", newVal.State)
	}
}

func TestTransform_AddedHasNoOldValue(t *testing.T) {
	val := model.Contract{Symbol: "XYZ_USDT"}
	change := model.Change{
		ID:     uuid.New(),
		Kind:   model.ChangeAdded,
		Symbol: "XYZ_USDT",
		New:    &val,
	}

	row, err := transform(change)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if row.OldValue != nil {
		t.Errorf("OldValue = %s, want nil", row.OldValue)
	}
	if row.NewValue == nil {
		t.Error("NewValue is nil")
	}
}

func TestSend_FullBufferRejects(t *testing.T) {
	w := NewWriter(Config{BatchSize: 10, FlushInterval: time.Hour, BufferSize: 1}, nil, nil)
	// Not started: nothing consumes the input channel.

	change := model.Change{ID: uuid.New(), Kind: model.ChangeAdded, Symbol: "A_USDT", New: &model.Contract{}}
	if err := w.Send(context.Background(), change); err != nil {
		t.Fatalf("first Send failed: %v", err)
	}

	err := w.Send(context.Background(), model.Change{ID: uuid.New(), Kind: model.ChangeAdded, Symbol: "B_USDT", New: &model.Contract{}})
	var de *notify.DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want *notify.DispatchError", err)
	}
	if de.Kind != notify.SinkRejected {
		t.Errorf("kind = %s, want %s", de.Kind, notify.SinkRejected)
	}
	if got := w.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}
