package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rmoroz/mexc-tracker/internal/model"
)

// Current on-disk schema version.
const schemaVersion = 1

const (
	stateFileName = "state.json"
	tempSuffix    = ".tmp"
)

// StorageOp classifies a storage failure.
type StorageOp string

const (
	OpUnreadable  StorageOp = "unreadable"
	OpCorrupt     StorageOp = "corrupt"
	OpWriteFailed StorageOp = "write_failed"
)

// StorageError is a typed failure from the snapshot store.
type StorageError struct {
	Op   StorageOp
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is a corrupt-record storage error.
func IsCorrupt(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == OpCorrupt
}

// Record is the persisted state: the last committed snapshot plus the cycle
// counter and run statistics.
type Record struct {
	Version     int            `json:"version"`
	Cycle       int64          `json:"cycle"`
	CommittedAt time.Time      `json:"committed_at"`
	Snapshot    model.Snapshot `json:"snapshot"`
	Stats       model.Stats    `json:"stats"`
	Checksum    string         `json:"checksum"` // SHA-256 hex over canonical entries JSON
}

// Store persists the state record to a file under the data directory.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a store rooted at dataDir. The directory is created if it
// does not exist. Any stale temp file from an interrupted commit is removed.
func New(dataDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dataDir, stateFileName)

	// An interrupted commit may leave a temp file behind; the rename never
	// happened, so the temp content was never the committed record.
	tmp := path + tempSuffix
	if _, err := os.Stat(tmp); err == nil {
		logger.Warn("removing stale temp state file from interrupted commit", "path", tmp)
		os.Remove(tmp)
	}

	return &Store{path: path, logger: logger}, nil
}

// Path returns the state file path.
func (s *Store) Path() string { return s.path }

// Load reads the last committed record. It returns (nil, nil) when no record
// exists yet (first run). Unreadable or corrupt data returns a *StorageError;
// callers degrade to baseline behavior rather than crash.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: OpUnreadable, Path: s.path, Err: err}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &StorageError{Op: OpCorrupt, Path: s.path, Err: err}
	}

	if rec.Version != schemaVersion {
		return nil, &StorageError{
			Op:   OpCorrupt,
			Path: s.path,
			Err:  fmt.Errorf("unsupported schema version %d", rec.Version),
		}
	}

	sum, err := entriesChecksum(rec.Snapshot.Entries)
	if err != nil {
		return nil, &StorageError{Op: OpCorrupt, Path: s.path, Err: err}
	}
	if sum != rec.Checksum {
		return nil, &StorageError{
			Op:   OpCorrupt,
			Path: s.path,
			Err:  fmt.Errorf("checksum mismatch: file %s, computed %s", rec.Checksum, sum),
		}
	}

	return &rec, nil
}

// Commit atomically replaces the state record. The record is written to a
// temp file, synced, then renamed over the previous record so that a crash
// mid-write never leaves a hybrid on disk.
func (s *Store) Commit(rec Record) error {
	rec.Version = schemaVersion

	sum, err := entriesChecksum(rec.Snapshot.Entries)
	if err != nil {
		return &StorageError{Op: OpWriteFailed, Path: s.path, Err: err}
	}
	rec.Checksum = sum

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return &StorageError{Op: OpWriteFailed, Path: s.path, Err: err}
	}

	tmp := s.path + tempSuffix
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &StorageError{Op: OpWriteFailed, Path: tmp, Err: err}
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return &StorageError{Op: OpWriteFailed, Path: tmp, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &StorageError{Op: OpWriteFailed, Path: tmp, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &StorageError{Op: OpWriteFailed, Path: tmp, Err: err}
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return &StorageError{Op: OpWriteFailed, Path: s.path, Err: err}
	}

	return nil
}

// entriesChecksum hashes the entries in canonical (sorted-symbol) order so
// the checksum is independent of map iteration order.
func entriesChecksum(entries map[string]model.Contract) (string, error) {
	symbols := make([]string, 0, len(entries))
	for sym := range entries {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, sym := range symbols {
		if err := enc.Encode(entries[sym]); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
