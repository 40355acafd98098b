package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rmoroz/mexc-tracker/internal/model"
)

// DispatchKind classifies a dispatch failure.
type DispatchKind string

const (
	SinkUnreachable DispatchKind = "sink_unreachable"
	SinkRejected    DispatchKind = "sink_rejected"
)

// DispatchError is a typed failure from a notification sink.
type DispatchError struct {
	Kind DispatchKind
	Sink string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s (%s): %v", e.Sink, e.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Sink receives one message per change event.
type Sink interface {
	Name() string
	Send(ctx context.Context, change model.Change) error
}

// Fanout delivers each event to every sink, collecting failures instead of
// short-circuiting: one bad sink must not starve the others.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanout creates a fanout over the given sinks.
func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

// Name implements Sink.
func (f *Fanout) Name() string { return "fanout" }

// Send delivers the change to all sinks and joins their errors.
func (f *Fanout) Send(ctx context.Context, change model.Change) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Send(ctx, change); err != nil {
			f.logger.Error("sink send failed",
				"sink", s.Name(),
				"symbol", change.Symbol,
				"kind", change.Kind,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink logs events without delivering them anywhere. Used when no
// notification target is configured (dry-run operation).
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-only sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (l *LogSink) Name() string { return "log" }

// Send implements Sink.
func (l *LogSink) Send(_ context.Context, change model.Change) error {
	l.logger.Info("change event",
		"event_id", change.ID,
		"kind", change.Kind,
		"symbol", change.Symbol,
	)
	return nil
}
