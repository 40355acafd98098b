package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rmoroz/mexc-tracker/internal/diff"
	"github.com/rmoroz/mexc-tracker/internal/model"
	"github.com/rmoroz/mexc-tracker/internal/notify"
	"github.com/rmoroz/mexc-tracker/internal/store"
)

// State is the cycle state machine position.
type State string

const (
	StateIdle         State = "idle"
	StateFetching     State = "fetching"
	StateDiffing      State = "diffing"
	StateDispatching  State = "dispatching"
	StateCommitting   State = "committing"
	StateShuttingDown State = "shutting_down"
)

// ErrShuttingDown is returned by TriggerCheck after Stop.
var ErrShuttingDown = errors.New("tracker shutting down")

// Fetcher produces one snapshot per poll cycle.
type Fetcher interface {
	Fetch(ctx context.Context) (model.Snapshot, error)
}

// StateStore persists the committed record.
type StateStore interface {
	Load() (*store.Record, error)
	Commit(store.Record) error
}

// Config holds tracker settings.
type Config struct {
	Interval        time.Duration // Poll cadence, start to start
	DispatchTimeout time.Duration // Bound on delivering one cycle's events
	CommitTimeout   time.Duration // Bound on the store commit
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:        60 * time.Minute,
		DispatchTimeout: 2 * time.Minute,
		CommitTimeout:   10 * time.Second,
	}
}

// CycleResult summarizes one completed cycle.
type CycleResult struct {
	Cycle      int64
	Baseline   bool // First run: snapshot committed, no events
	Unique     int  // Size of the committed unique set
	Changes    int  // Events detected
	Dispatched int  // Events delivered to all sinks
	Failed     int  // Events with at least one sink failure
}

// Status is a point-in-time view for the bot and health endpoint.
type Status struct {
	State        State
	Cycle        int64
	UniqueCount  int
	LastCommitAt time.Time
	LastError    string
	Stats        model.Stats
}

// Tracker owns the poll loop.
type Tracker struct {
	cfg     Config
	fetcher Fetcher
	store   StateStore
	sink    notify.Sink
	logger  *slog.Logger

	// cycleMu serializes cycles: scheduled ticks and on-demand checks
	// never overlap.
	cycleMu sync.Mutex

	mu           sync.RWMutex
	state        State
	prev         *model.Snapshot // last committed snapshot
	cycle        int64
	stats        model.Stats
	lastCommitAt time.Time
	lastErr      string

	onCommit func(model.Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Tracker.
func New(cfg Config, fetcher Fetcher, st StateStore, sink notify.Sink, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = notify.NewLogSink(logger)
	}
	return &Tracker{
		cfg:     cfg,
		fetcher: fetcher,
		store:   st,
		sink:    sink,
		logger:  logger,
		state:   StateIdle,
	}
}

// OnCommit registers a callback invoked with every committed snapshot.
// Must be called before Start.
func (t *Tracker) OnCommit(fn func(model.Snapshot)) {
	t.onCommit = fn
}

// Start seeds the previous snapshot from the store and begins the loop.
// An unreadable or corrupt record degrades to baseline behavior: the next
// cycle emits no events, at the accepted risk of one duplicate storm later.
func (t *Tracker) Start(ctx context.Context) error {
	rec, err := t.store.Load()
	if err != nil {
		t.logger.Error("state record unreadable, degrading to baseline; duplicate notifications possible",
			"error", err,
		)
	}
	if rec != nil {
		t.mu.Lock()
		snap := rec.Snapshot
		t.prev = &snap
		t.cycle = rec.Cycle
		t.stats = rec.Stats
		t.lastCommitAt = rec.CommittedAt
		t.mu.Unlock()

		t.logger.Info("state loaded",
			"cycle", rec.Cycle,
			"unique", rec.Snapshot.Len(),
			"committed_at", rec.CommittedAt,
		)
	}

	t.ctx, t.cancel = context.WithCancel(ctx)

	t.wg.Add(1)
	go t.run()

	t.logger.Info("tracker started", "interval", t.cfg.Interval)
	return nil
}

// Stop cancels the loop and waits for any in-flight cycle to reach its
// commit boundary.
func (t *Tracker) Stop(ctx context.Context) error {
	if t.cancel != nil {
		t.cancel()
	}
	t.setState(StateShuttingDown)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("tracker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerCheck runs one cycle immediately, serialized with scheduled
// cycles. Used by the bot's /check command and the live watch.
func (t *Tracker) TriggerCheck() (CycleResult, error) {
	if t.ctx == nil || t.ctx.Err() != nil {
		return CycleResult{}, ErrShuttingDown
	}
	return t.runCycle(t.ctx)
}

// Status returns the current tracker view.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Status{
		State:        t.state,
		Cycle:        t.cycle,
		LastCommitAt: t.lastCommitAt,
		LastError:    t.lastErr,
		Stats:        t.stats,
	}
	if t.prev != nil {
		s.UniqueCount = t.prev.Len()
	}
	return s
}

// UniqueSymbols returns the committed unique set, sorted use is up to the
// caller. Returns nil before the first commit.
func (t *Tracker) UniqueSymbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.prev == nil {
		return nil
	}
	return t.prev.Symbols()
}

// run is the scheduled poll loop. The ticker measures start to start; a
// cycle that overruns the interval defers the queued tick until it ends.
func (t *Tracker) run() {
	defer t.wg.Done()

	// Poll immediately on start.
	t.runScheduled()

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.runScheduled()
		}
	}
}

// runScheduled runs one cycle and logs the outcome.
func (t *Tracker) runScheduled() {
	res, err := t.runCycle(t.ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		t.logger.Error("cycle failed", "error", err)
		return
	}
	t.logger.Info("cycle complete",
		"cycle", res.Cycle,
		"unique", res.Unique,
		"changes", res.Changes,
		"dispatched", res.Dispatched,
		"failed", res.Failed,
		"baseline", res.Baseline,
	)
}

// runCycle executes fetch, diff, dispatch, commit.
func (t *Tracker) runCycle(ctx context.Context) (CycleResult, error) {
	t.cycleMu.Lock()
	defer t.cycleMu.Unlock()
	defer t.setState(StateIdle)

	// Fetching. A cancelled or failed fetch skips the cycle; the store is
	// untouched, so nothing is lost.
	t.setState(StateFetching)
	current, err := t.fetcher.Fetch(ctx)
	if err != nil {
		t.setError(err)
		return CycleResult{}, err
	}

	// Diffing.
	t.setState(StateDiffing)
	t.mu.RLock()
	prev := t.prev
	cycle := t.cycle
	t.mu.RUnlock()

	changes := diff.Compute(prev, current)

	// Dispatching. Shutdown no longer aborts the cycle past this point:
	// a half-dispatched, uncommitted cycle would re-emit everything on
	// restart, so finishing is strictly cheaper.
	t.setState(StateDispatching)
	tail := context.WithoutCancel(ctx)

	dispatched, failed := 0, 0
	if len(changes) > 0 {
		dctx, cancel := context.WithTimeout(tail, t.cfg.DispatchTimeout)
		for _, change := range changes {
			if err := t.sink.Send(dctx, change); err != nil {
				failed++
				continue
			}
			dispatched++
		}
		cancel()
	}

	// Committing. At-least-once dispatch, commit-after-attempt: failed
	// notifications are reported above but do not hold the snapshot back.
	t.setState(StateCommitting)

	now := time.Now().UTC()
	t.mu.RLock()
	stats := t.stats
	t.mu.RUnlock()

	if stats.StartedAt.IsZero() {
		stats.StartedAt = now
	}
	stats.ChecksPerformed++
	if current.Len() > stats.MaxUnique {
		stats.MaxUnique = current.Len()
	}

	rec := store.Record{
		Cycle:       cycle + 1,
		CommittedAt: now,
		Snapshot:    current,
		Stats:       stats,
	}

	if err := t.store.Commit(rec); err != nil {
		// Prior state stays in memory and on disk; the next cycle
		// re-detects the same changes and retries the commit.
		t.setError(err)
		return CycleResult{}, err
	}

	t.mu.Lock()
	t.prev = &current
	t.cycle = rec.Cycle
	t.stats = stats
	t.lastCommitAt = now
	t.lastErr = ""
	t.mu.Unlock()

	if t.onCommit != nil {
		t.onCommit(current)
	}

	return CycleResult{
		Cycle:      rec.Cycle,
		Baseline:   prev == nil,
		Unique:     current.Len(),
		Changes:    len(changes),
		Dispatched: dispatched,
		Failed:     failed,
	}, nil
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Tracker) setError(err error) {
	t.mu.Lock()
	t.lastErr = err.Error()
	t.mu.Unlock()
}
