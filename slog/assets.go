package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/dumpit"
)

// Ensure LoggingAssetStore implements dumpit.AssetStore.
var _ dumpit.AssetStore = (*LoggingAssetStore)(nil)

// LoggingAssetStore wraps an AssetStore with debug logging.
type LoggingAssetStore struct {
	next   dumpit.AssetStore
	logger *slog.Logger
}

// NewLoggingAssetStore creates a new LoggingAssetStore.
func NewLoggingAssetStore(next dumpit.AssetStore, logger *slog.Logger) *LoggingAssetStore {
	return &LoggingAssetStore{next: next, logger: logger}
}

// Store delegates to the wrapped store and logs the operation.
func (s *LoggingAssetStore) Store(ctx context.Context, hash, ext string, data []byte) (path string, created bool, err error) {
	defer func(begin time.Time) {
		s.logger.Info("store image",
			"hash", hash,
			"path", path,
			"bytes", len(data),
			"created", created,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Store(ctx, hash, ext, data)
}
