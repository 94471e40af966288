package mock

import (
	"context"

	"github.com/fwojciec/dumpit"
)

var _ dumpit.ImagePipeline = (*ImagePipeline)(nil)

// ImagePipeline is a mock implementation of dumpit.ImagePipeline.
type ImagePipeline struct {
	AcquireFn func(ctx context.Context, img *dumpit.Image, pageURL string) (*dumpit.ImageAsset, bool)
}

func (p *ImagePipeline) Acquire(ctx context.Context, img *dumpit.Image, pageURL string) (*dumpit.ImageAsset, bool) {
	return p.AcquireFn(ctx, img, pageURL)
}

var _ dumpit.AssetStore = (*AssetStore)(nil)

// AssetStore is a mock implementation of dumpit.AssetStore.
type AssetStore struct {
	StoreFn func(ctx context.Context, hash, ext string, data []byte) (string, bool, error)
}

func (s *AssetStore) Store(ctx context.Context, hash, ext string, data []byte) (string, bool, error) {
	return s.StoreFn(ctx, hash, ext, data)
}
