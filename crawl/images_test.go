package crawl_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/dumpit"
	"github.com/fwojciec/dumpit/crawl"
	"github.com/fwojciec/dumpit/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyPNG encodes a w x h image of pseudo-random pixels, which keeps the
// file from compressing below the byte threshold.
func noisyPNG(t *testing.T, w, h int, seed uint64) []byte {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed+1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(r.IntN(256)), uint8(r.IntN(256)), uint8(r.IntN(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// memStore is an in-memory dumpit.AssetStore that counts writes per hash.
type memStore struct {
	mu     sync.Mutex
	writes map[string]int
}

func newMemStore() *memStore {
	return &memStore{writes: make(map[string]int)}
}

func (s *memStore) Store(_ context.Context, hash, ext string, _ []byte) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := "images/" + hash + "." + ext
	if s.writes[hash] > 0 {
		return path, false, nil
	}
	s.writes[hash]++
	return path, true, nil
}

func servingFetcher(files map[string]*dumpit.Response, calls *atomic.Int64) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (*dumpit.Response, error) {
			if calls != nil {
				calls.Add(1)
			}
			resp, ok := files[url]
			if !ok {
				return nil, &dumpit.FetchError{Kind: dumpit.FetchStatus, URL: url, StatusCode: 404}
			}
			return resp, nil
		},
	}
}

func TestImagePipeline_Acquire(t *testing.T) {
	t.Parallel()

	t.Run("stores accepted image under its content hash", func(t *testing.T) {
		t.Parallel()

		data := noisyPNG(t, 32, 32, 1)
		store := newMemStore()
		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/a.png": {ContentType: "image/png", Body: data},
		}, nil), store)

		asset, ok := p.Acquire(context.Background(), &dumpit.Image{
			OriginalURL: "https://example.com/a.png",
			Sources:     []string{"https://example.com/a.png"},
		}, "https://example.com/")

		require.True(t, ok)
		assert.Len(t, asset.Hash, 64)
		assert.Equal(t, "images/"+asset.Hash+".png", asset.LocalPath)
		assert.Equal(t, int64(len(data)), asset.Size)
		assert.Equal(t, "https://example.com/a.png", asset.OriginalURL)
		assert.Equal(t, 1, p.Created())
		assert.Equal(t, int64(len(data)), p.CreatedBytes())
	})

	t.Run("writes identical content from different urls once", func(t *testing.T) {
		t.Parallel()

		data := noisyPNG(t, 32, 32, 2)
		store := newMemStore()
		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/a.png":     {ContentType: "image/png", Body: data},
			"https://example.com/copy.png":  {ContentType: "image/png", Body: data},
			"https://example.com/other.png": {ContentType: "image/png", Body: noisyPNG(t, 32, 32, 3)},
		}, nil), store)

		a, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/a.png"}}, "")
		require.True(t, ok)
		b, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/copy.png"}}, "")
		require.True(t, ok)
		c, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/other.png"}}, "")
		require.True(t, ok)

		assert.Equal(t, a.LocalPath, b.LocalPath)
		assert.NotEqual(t, a.LocalPath, c.LocalPath)
		assert.Equal(t, 1, store.writes[a.Hash])
		assert.Equal(t, 2, p.Created())
		assert.Equal(t, 1, p.Reused())
	})

	t.Run("fetches a url once across acquisitions", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/a.png": {ContentType: "image/png", Body: noisyPNG(t, 32, 32, 4)},
		}, &calls), newMemStore())

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/a.png"}}, "")
				assert.True(t, ok)
			}()
		}
		wg.Wait()

		_, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/a.png"}}, "")
		assert.True(t, ok)
		assert.LessOrEqual(t, calls.Load(), int64(20))
		assert.Equal(t, 1, p.Created())

		before := calls.Load()
		_, _ = p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/a.png"}}, "")
		assert.Equal(t, before, calls.Load(), "cached URL must not be fetched again")
	})

	t.Run("falls back to later sources", func(t *testing.T) {
		t.Parallel()

		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/lazy.png": {ContentType: "image/png", Body: noisyPNG(t, 32, 32, 5)},
		}, nil), newMemStore())

		asset, ok := p.Acquire(context.Background(), &dumpit.Image{
			Sources: []string{
				"data:image/gif;base64,R0lGODlhAQABAAAAACw=",
				"https://example.com/missing.png",
				"https://example.com/lazy.png",
			},
		}, "")

		require.True(t, ok)
		assert.Equal(t, "https://example.com/lazy.png", asset.OriginalURL)
	})

	t.Run("resolves relative sources against page url", func(t *testing.T) {
		t.Parallel()

		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/docs/a.png": {ContentType: "image/png", Body: noisyPNG(t, 32, 32, 6)},
		}, nil), newMemStore())

		_, ok := p.Acquire(context.Background(), &dumpit.Image{OriginalURL: "a.png"}, "https://example.com/docs/page")

		assert.True(t, ok)
	})

	t.Run("rejects image below byte threshold", func(t *testing.T) {
		t.Parallel()

		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/small.png": {ContentType: "image/png", Body: noisyPNG(t, 4, 4, 7)},
		}, nil), newMemStore())

		_, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/small.png"}}, "")

		assert.False(t, ok)
	})

	t.Run("rejects image below pixel threshold", func(t *testing.T) {
		t.Parallel()

		data := noisyPNG(t, 1, 2000, 8)
		require.Greater(t, len(data), crawl.MinImageBytes)
		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/strip.png": {ContentType: "image/png", Body: data},
		}, nil), newMemStore())

		_, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/strip.png"}}, "")

		assert.False(t, ok)
	})

	t.Run("rejects declared tiny dimensions without fetching", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{}, &calls), newMemStore())

		_, ok := p.Acquire(context.Background(), &dumpit.Image{
			Sources: []string{"https://example.com/spacer.gif"},
			Width:   1,
			Height:  1,
		}, "")

		assert.False(t, ok)
		assert.Zero(t, calls.Load())
	})

	t.Run("rejects non-image content", func(t *testing.T) {
		t.Parallel()

		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/page.png": {ContentType: "text/html", Body: []byte(strings.Repeat("<p>x</p>", 500))},
		}, nil), newMemStore())

		_, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/page.png"}}, "")

		assert.False(t, ok)
	})

	t.Run("sniffs missing content type", func(t *testing.T) {
		t.Parallel()

		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/noext": {ContentType: "application/octet-stream", Body: noisyPNG(t, 32, 32, 9)},
		}, nil), newMemStore())

		asset, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/noext"}}, "")

		require.True(t, ok)
		assert.True(t, strings.HasSuffix(asset.LocalPath, ".png"))
	})

	t.Run("drops image when store fails", func(t *testing.T) {
		t.Parallel()

		store := &mock.AssetStore{
			StoreFn: func(context.Context, string, string, []byte) (string, bool, error) {
				return "", false, errors.New("disk full")
			},
		}
		p := crawl.NewImagePipeline(servingFetcher(map[string]*dumpit.Response{
			"https://example.com/a.png": {ContentType: "image/png", Body: noisyPNG(t, 32, 32, 10)},
		}, nil), store)

		_, ok := p.Acquire(context.Background(), &dumpit.Image{Sources: []string{"https://example.com/a.png"}}, "")

		assert.False(t, ok)
	})
}

func TestRejectImageURL(t *testing.T) {
	t.Parallel()

	rejected := []string{
		"data:image/png;base64,AAAA",
		"https://example.com/img/1x1.gif",
		"https://example.com/Placeholder.png",
		"https://www.googletagmanager.com/ns.html",
		"https://www.google-analytics.com/collect",
		"https://www.facebook.com/tr?id=1",
		"https://ad.doubleclick.net/x.gif",
		"https://cdn.example.com/analytics/logo.png",
		"https://example.com/tracking/open.gif",
		"https://example.com/pixel.gif",
		"https://example.com/beacon.png",
	}
	for _, u := range rejected {
		assert.True(t, crawl.RejectImageURL(u), u)
	}

	assert.False(t, crawl.RejectImageURL("https://example.com/images/hero.jpg"))
}
