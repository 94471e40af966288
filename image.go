package dumpit

import "context"

// ImageAsset is a downloaded image stored under its content address.
type ImageAsset struct {
	OriginalURL string
	Hash        string
	LocalPath   string
	Size        int64
}

// ImagePipeline downloads, filters and stores images.
type ImagePipeline interface {
	// Acquire returns the stored asset for img, trying its sources in
	// order. The bool result is false if every source was rejected or
	// failed to download.
	Acquire(ctx context.Context, img *Image, pageURL string) (*ImageAsset, bool)
}

// AssetStore persists image bytes under their content hash.
type AssetStore interface {
	// Store writes data under hash unless an asset with that hash already
	// exists. It returns the asset's local path and whether this call
	// wrote it. Concurrent calls for the same hash write at most once.
	Store(ctx context.Context, hash, ext string, data []byte) (path string, created bool, err error)
}
