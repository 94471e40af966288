package mock

import (
	"context"

	"github.com/fwojciec/dumpit"
)

var _ dumpit.SitemapResolver = (*SitemapResolver)(nil)

// SitemapResolver is a mock implementation of dumpit.SitemapResolver.
type SitemapResolver struct {
	ResolveFn func(ctx context.Context, seedURL string) (*dumpit.SitemapOutcome, error)
}

func (s *SitemapResolver) Resolve(ctx context.Context, seedURL string) (*dumpit.SitemapOutcome, error) {
	return s.ResolveFn(ctx, seedURL)
}
