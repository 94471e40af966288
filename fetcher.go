package dumpit

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Response is a successful HTTP response with its body read in full.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher issues single HTTP GET requests.
type Fetcher interface {
	// Fetch retrieves url. Any non-2xx status is returned as a *FetchError
	// of kind FetchStatus. The context controls cancellation; the fetcher
	// applies its own per-request timeout on top of it.
	Fetch(ctx context.Context, url string) (*Response, error)
}

// FetchErrorKind classifies a failed fetch.
type FetchErrorKind string

// Fetch failure kinds.
const (
	FetchTimeout    FetchErrorKind = "timeout"
	FetchConnection FetchErrorKind = "connection"
	FetchStatus     FetchErrorKind = "status"
	FetchTooLarge   FetchErrorKind = "too_large"
)

// FetchError is returned by Fetcher implementations. A fetch failure only
// affects the URL it belongs to.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchStatus:
		return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
	case FetchTooLarge:
		return fmt.Sprintf("response too large for %s", e.URL)
	case FetchTimeout:
		return fmt.Sprintf("timeout fetching %s", e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s failed", e.URL)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError classifies err as a timeout or a connection failure.
func NewFetchError(url string, err error) *FetchError {
	kind := FetchConnection
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = FetchTimeout
	}
	return &FetchError{Kind: kind, URL: url, Err: err}
}

// FetchErrorKindOf returns the kind of a *FetchError in err's chain, or the
// empty string if there is none.
func FetchErrorKindOf(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
