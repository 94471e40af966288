// Package http provides net/http implementations of dumpit.Fetcher and
// dumpit.SitemapResolver. Only static markup is retrieved; no scripts are
// executed.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/dumpit"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = dumpit.DefaultTimeout

// Ensure Fetcher implements dumpit.Fetcher at compile time.
var _ dumpit.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves URLs with plain HTTP GET requests.
// It is safe for concurrent use and keeps no per-request state.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBodyBytes caps the response body size. Larger responses fail
// with a FetchTooLarge error. Zero or less disables the cap.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithClient sets the underlying HTTP client. The client's own Timeout is
// left untouched; the fetcher timeout is applied per request.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:      DefaultFetchTimeout,
		maxBodyBytes: dumpit.DefaultMaxBodyBytes,
		userAgent:    dumpit.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{}
	}

	return f
}

// Fetch retrieves the given URL. The whole exchange, including reading the
// body, must complete within the fetcher timeout.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*dumpit.Response, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &dumpit.FetchError{Kind: dumpit.FetchConnection, URL: url, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, dumpit.NewFetchError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &dumpit.FetchError{Kind: dumpit.FetchStatus, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := f.readBody(resp.Body)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return nil, &dumpit.FetchError{Kind: dumpit.FetchTooLarge, URL: url, StatusCode: resp.StatusCode}
		}
		return nil, dumpit.NewFetchError(url, err)
	}

	return &dumpit.Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

var errTooLarge = errors.New("body exceeds limit")

func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBodyBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, f.maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, errTooLarge
	}
	return body, nil
}
