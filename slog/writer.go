package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/dumpit"
)

// Ensure LoggingRunWriter implements dumpit.RunWriter.
var _ dumpit.RunWriter = (*LoggingRunWriter)(nil)

// LoggingRunWriter wraps a RunWriter with debug logging.
type LoggingRunWriter struct {
	next   dumpit.RunWriter
	name   string
	logger *slog.Logger
}

// NewLoggingRunWriter creates a new LoggingRunWriter. name identifies the
// destination in log records.
func NewLoggingRunWriter(next dumpit.RunWriter, name string, logger *slog.Logger) *LoggingRunWriter {
	return &LoggingRunWriter{next: next, name: name, logger: logger}
}

// WriteRun delegates to the wrapped writer and logs the operation.
func (w *LoggingRunWriter) WriteRun(ctx context.Context, run *dumpit.Run) (err error) {
	defer func(begin time.Time) {
		var pages int
		if run != nil && run.Result != nil {
			pages = run.Result.TotalPages
		}
		w.logger.Info("write run",
			"dest", w.name,
			"pages", pages,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return w.next.WriteRun(ctx, run)
}
