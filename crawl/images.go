package crawl

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	// Decoders for the dimension check.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/fwojciec/dumpit"
	"golang.org/x/sync/singleflight"
)

// Image filter thresholds.
const (
	MinImageBytes     = 1024
	MinImageDimension = 2
)

// trackingPatterns mark analytics and pixel URLs that never hold content.
var trackingPatterns = []string{
	"googletagmanager",
	"google-analytics",
	"facebook.com/tr",
	"doubleclick",
	"analytics",
	"tracking",
	"pixel",
	"beacon",
}

// imageExtensions maps accepted image media types to file extensions.
var imageExtensions = map[string]string{
	"image/jpeg":               "jpg",
	"image/png":                "png",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/svg+xml":            "svg",
	"image/avif":               "avif",
	"image/bmp":                "bmp",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
	"image/tiff":               "tiff",
}

// Ensure ImagePipeline implements dumpit.ImagePipeline at compile time.
var _ dumpit.ImagePipeline = (*ImagePipeline)(nil)

// ImagePipeline downloads images, drops tracking pixels and other noise,
// and stores what is left under its content hash.
//
// Results are cached per URL for the lifetime of the pipeline, so an image
// referenced from many pages is fetched once. Concurrent acquisitions of
// the same URL share a single download.
type ImagePipeline struct {
	fetcher dumpit.Fetcher
	store   dumpit.AssetStore

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]*dumpit.ImageAsset

	acquired     atomic.Int64
	created      atomic.Int64
	createdBytes atomic.Int64
}

// NewImagePipeline creates a pipeline that downloads through fetcher and
// writes accepted images to store.
func NewImagePipeline(fetcher dumpit.Fetcher, store dumpit.AssetStore) *ImagePipeline {
	return &ImagePipeline{
		fetcher: fetcher,
		store:   store,
		cache:   make(map[string]*dumpit.ImageAsset),
	}
}

// Acquire tries img's sources in order and returns the first one that
// downloads and passes the filters. Relative sources are resolved against
// pageURL.
func (p *ImagePipeline) Acquire(ctx context.Context, img *dumpit.Image, pageURL string) (*dumpit.ImageAsset, bool) {
	if tooSmall(img.Width) || tooSmall(img.Height) {
		return nil, false
	}

	sources := img.Sources
	if len(sources) == 0 && img.OriginalURL != "" {
		sources = []string{img.OriginalURL}
	}

	for _, src := range sources {
		src = resolveImageURL(pageURL, src)
		if src == "" || RejectImageURL(src) {
			continue
		}
		if asset := p.acquireURL(ctx, src); asset != nil {
			p.acquired.Add(1)
			return asset, true
		}
	}
	return nil, false
}

// Created returns the number of assets written by this pipeline.
func (p *ImagePipeline) Created() int {
	return int(p.created.Load())
}

// CreatedBytes returns the total size of the assets written by this
// pipeline.
func (p *ImagePipeline) CreatedBytes() int64 {
	return p.createdBytes.Load()
}

// Reused returns the number of acquisitions served by an asset that
// already existed.
func (p *ImagePipeline) Reused() int {
	return int(p.acquired.Load() - p.created.Load())
}

// acquireURL returns the stored asset for src, or nil if src was rejected.
func (p *ImagePipeline) acquireURL(ctx context.Context, src string) *dumpit.ImageAsset {
	p.mu.Lock()
	asset, ok := p.cache[src]
	p.mu.Unlock()
	if ok {
		return asset
	}

	v, _, _ := p.group.Do(src, func() (any, error) {
		asset := p.download(ctx, src)
		// A cancelled download says nothing about the image.
		if ctx.Err() == nil {
			p.mu.Lock()
			p.cache[src] = asset
			p.mu.Unlock()
		}
		return asset, nil
	})
	asset, _ = v.(*dumpit.ImageAsset)
	return asset
}

func (p *ImagePipeline) download(ctx context.Context, src string) *dumpit.ImageAsset {
	resp, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil
	}

	ext, ok := imageExtension(resp.ContentType, resp.Body)
	if !ok {
		return nil
	}
	if len(resp.Body) < MinImageBytes {
		return nil
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(resp.Body)); err == nil {
		if tooSmall(cfg.Width) || tooSmall(cfg.Height) {
			return nil
		}
	}

	sum := sha256.Sum256(resp.Body)
	hash := hex.EncodeToString(sum[:])

	path, created, err := p.store.Store(ctx, hash, ext, resp.Body)
	if err != nil {
		return nil
	}
	if created {
		p.created.Add(1)
		p.createdBytes.Add(int64(len(resp.Body)))
	}

	return &dumpit.ImageAsset{
		OriginalURL: src,
		Hash:        hash,
		LocalPath:   path,
		Size:        int64(len(resp.Body)),
	}
}

// RejectImageURL reports URLs that are skipped without fetching: inline
// data URIs, placeholders, spacer images and known tracking endpoints.
func RejectImageURL(src string) bool {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "data:") {
		return true
	}
	if strings.Contains(lower, "1x1") || strings.Contains(lower, "placeholder") {
		return true
	}
	for _, pattern := range trackingPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// imageExtension returns the file extension for an accepted image type.
// Missing or generic content types are sniffed from the body.
func imageExtension(contentType string, body []byte) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" || mediaType == "binary/octet-stream" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(body))
	}
	ext, ok := imageExtensions[strings.ToLower(mediaType)]
	return ext, ok
}

// tooSmall reports a known dimension under the minimum. Zero means unknown.
func tooSmall(n int) bool {
	return n > 0 && n < MinImageDimension
}

func resolveImageURL(pageURL, src string) string {
	if strings.HasPrefix(strings.ToLower(src), "data:") {
		return src
	}
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		base, err := url.Parse(pageURL)
		if err != nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
