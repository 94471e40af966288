// Package slog provides logging decorators for dumpit services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/dumpit"
)

// Ensure LoggingFetcher implements dumpit.Fetcher.
var _ dumpit.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with debug logging.
type LoggingFetcher struct {
	next   dumpit.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next dumpit.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the operation.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (resp *dumpit.Response, err error) {
	defer func(begin time.Time) {
		var status, size int
		if resp != nil {
			status = resp.StatusCode
			size = len(resp.Body)
		}
		f.logger.Info("fetch",
			"url", url,
			"status", status,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}
