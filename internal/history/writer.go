package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rmoroz/mexc-tracker/internal/model"
	"github.com/rmoroz/mexc-tracker/internal/notify"
)

// Schema is the DDL for the change-history table.
const Schema = `
CREATE TABLE IF NOT EXISTS futures_changes (
    event_id    UUID PRIMARY KEY,
    kind        TEXT NOT NULL,
    symbol      TEXT NOT NULL,
    old_value   JSONB,
    new_value   JSONB,
    captured_at TIMESTAMPTZ NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS futures_changes_symbol_idx ON futures_changes (symbol, captured_at);
`

// Config holds batch writer settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
	}
}

// WriterMetrics counts writer activity.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64
}

// changeRow is the table representation of one event.
type changeRow struct {
	EventID    uuid.UUID
	Kind       string
	Symbol     string
	OldValue   []byte
	NewValue   []byte
	CapturedAt time.Time
}

// Writer batches change events into the futures_changes table.
type Writer struct {
	cfg    Config
	db     *pgxpool.Pool
	logger *slog.Logger

	input chan changeRow

	batchMu sync.Mutex
	batch   []changeRow
	metrics WriterMetrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter creates a history writer over the given pool.
func NewWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan changeRow, cfg.BufferSize),
		batch:  make([]changeRow, 0, cfg.BatchSize),
	}
}

// EnsureSchema creates the history table when missing.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	_, err := w.db.Exec(ctx, Schema)
	return err
}

// Start begins consuming events and writing batches.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run()

	w.logger.Info("history writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the buffer, writes the final batch and shuts down.
func (w *Writer) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("history writer stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("history writer stop timed out")
		return ctx.Err()
	}
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// Name implements notify.Sink.
func (w *Writer) Name() string { return "history" }

// Send implements notify.Sink. It enqueues without blocking; a full buffer
// is a rejected dispatch, never a stalled cycle.
func (w *Writer) Send(_ context.Context, change model.Change) error {
	row, err := transform(change)
	if err != nil {
		return &notify.DispatchError{Kind: notify.SinkRejected, Sink: w.Name(), Err: err}
	}

	select {
	case w.input <- row:
		return nil
	default:
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		return &notify.DispatchError{
			Kind: notify.SinkRejected,
			Sink: w.Name(),
			Err:  errors.New("buffer full"),
		}
	}
}

// transform converts a change event to its table row.
func transform(change model.Change) (changeRow, error) {
	row := changeRow{
		EventID:    change.ID,
		Kind:       string(change.Kind),
		Symbol:     change.Symbol,
		CapturedAt: change.CapturedAt,
	}

	if change.Old != nil {
		b, err := json.Marshal(change.Old)
		if err != nil {
			return changeRow{}, err
		}
		row.OldValue = b
	}
	if change.New != nil {
		b, err := json.Marshal(change.New)
		if err != nil {
			return changeRow{}, err
		}
		row.NewValue = b
	}

	return row, nil
}

// run consumes events, flushing on size or interval, with a final drain
// and flush on shutdown.
func (w *Writer) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			w.flush()
			return
		case row := <-w.input:
			w.add(row)
		case <-ticker.C:
			w.flush()
		}
	}
}

// drain moves anything left in the input channel into the batch.
func (w *Writer) drain() {
	for {
		select {
		case row := <-w.input:
			w.add(row)
		default:
			return
		}
	}
}

// add appends a row and flushes when the batch is full.
func (w *Writer) add(row changeRow) {
	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]changeRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("history batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed change history",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(rows []changeRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO futures_changes (event_id, kind, symbol, old_value, new_value, captured_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (event_id) DO NOTHING
		`, r.EventID, r.Kind, r.Symbol, r.OldValue, r.NewValue, r.CapturedAt)
	}

	// Use a background-derived context: a cancelled run context must not
	// abort the final flush.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(w.ctx), 30*time.Second)
	defer cancel()

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
