package mock

import (
	"context"

	"github.com/fwojciec/dumpit"
)

var _ dumpit.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of dumpit.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*dumpit.Response, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*dumpit.Response, error) {
	return f.FetchFn(ctx, url)
}
