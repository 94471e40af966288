package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/dumpit"
)

// Ensure LoggingSitemapResolver implements dumpit.SitemapResolver.
var _ dumpit.SitemapResolver = (*LoggingSitemapResolver)(nil)

// LoggingSitemapResolver wraps a SitemapResolver with debug logging.
type LoggingSitemapResolver struct {
	next   dumpit.SitemapResolver
	logger *slog.Logger
}

// NewLoggingSitemapResolver creates a new LoggingSitemapResolver.
func NewLoggingSitemapResolver(next dumpit.SitemapResolver, logger *slog.Logger) *LoggingSitemapResolver {
	return &LoggingSitemapResolver{next: next, logger: logger}
}

// Resolve delegates to the wrapped resolver and logs the operation.
func (r *LoggingSitemapResolver) Resolve(ctx context.Context, seedURL string) (outcome *dumpit.SitemapOutcome, err error) {
	defer func(begin time.Time) {
		var found bool
		var location string
		var count int
		if outcome != nil {
			found = outcome.Found
			location = outcome.Location
			count = len(outcome.URLs)
		}
		r.logger.Info("sitemap resolution",
			"url", seedURL,
			"sitemap", location,
			"found", found,
			"count", count,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Resolve(ctx, seedURL)
}
