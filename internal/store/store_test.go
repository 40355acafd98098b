package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rmoroz/mexc-tracker/internal/model"
)

func testRecord(cycle int64) Record {
	return Record{
		Cycle:       cycle,
		CommittedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Snapshot: model.Snapshot{
			Entries: map[string]model.Contract{
				"AAA_USDT": {Symbol: "AAA_USDT", BaseCoin: "AAA", QuoteCoin: "USDT"},
				"BBB_USDT": {Symbol: "BBB_USDT", BaseCoin: "BBB", QuoteCoin: "USDT", State: 1},
			},
			CapturedAt: time.Date(2025, 6, 1, 11, 59, 0, 0, time.UTC),
		},
		Stats: model.Stats{
			ChecksPerformed: cycle,
			MaxUnique:       2,
			StartedAt:       time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestLoad_FirstRun(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec != nil {
		t.Errorf("Load on first run = %+v, want nil", rec)
	}
}

func TestCommitLoad_RoundTrip(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	want := testRecord(7)
	if err := s.Commit(want); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil {
		t.Fatal("Load returned nil after commit")
	}
	if got.Cycle != 7 {
		t.Errorf("Cycle = %d, want 7", got.Cycle)
	}
	if got.Snapshot.Len() != 2 {
		t.Errorf("snapshot has %d entries, want 2", got.Snapshot.Len())
	}
	if got.Snapshot.Entries["BBB_USDT"].State != 1 {
		t.Errorf("BBB_USDT state = %d, want 1", got.Snapshot.Entries["BBB_USDT"].State)
	}
	if got.Stats.MaxUnique != 2 {
		t.Errorf("Stats.MaxUnique = %d, want 2", got.Stats.MaxUnique)
	}
}

func TestCommit_ReplacesPrevious(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Commit(testRecord(1)); err != nil {
		t.Fatalf("first Commit failed: %v", err)
	}
	second := testRecord(2)
	second.Snapshot.Entries["CCC_USDT"] = model.Contract{Symbol: "CCC_USDT", BaseCoin: "CCC", QuoteCoin: "USDT"}
	if err := s.Commit(second); err != nil {
		t.Fatalf("second Commit failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Cycle != 2 || got.Snapshot.Len() != 3 {
		t.Errorf("got cycle %d with %d entries, want cycle 2 with 3 entries", got.Cycle, got.Snapshot.Len())
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err = s.Load()
	if err == nil {
		t.Fatal("Load on corrupt file succeeded, want error")
	}
	if !IsCorrupt(err) {
		t.Errorf("error = %v, want corrupt StorageError", err)
	}
}

func TestLoad_ChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Commit(testRecord(3)); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Tamper with an entry without updating the checksum.
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	if !strings.Contains(string(data), `"state": 1`) {
		t.Fatal("expected state field in persisted record")
	}
	tampered := strings.Replace(string(data), `"state": 1`, `"state": 9`, 1)
	if err := os.WriteFile(s.Path(), []byte(tampered), 0o644); err != nil {
		t.Fatalf("write tampered file: %v", err)
	}

	_, err = s.Load()
	if !IsCorrupt(err) {
		t.Errorf("Load on tampered file = %v, want corrupt StorageError", err)
	}
}

func TestCommit_CrashMidWriteLeavesOldRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Commit(testRecord(5)); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Simulate a crash after the temp file was partially written but before
	// the rename: the temp file holds garbage, the real file is untouched.
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, []byte(`{"version":1,"cyc`), 0o644); err != nil {
		t.Fatalf("write partial temp file: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load after simulated crash failed: %v", err)
	}
	if got.Cycle != 5 {
		t.Errorf("Cycle = %d, want pre-crash 5", got.Cycle)
	}

	// Reopening the store clears the stale temp file.
	if _, err := New(dir, nil); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("stale temp file survived reopen")
	}
}

func TestNew_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Commit(testRecord(1)); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}
