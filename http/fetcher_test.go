package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/dumpit"
	dumpithttp "github.com/fwojciec/dumpit/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body and content type from server", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>Hello World</body></html>"))
		}))
		defer server.Close()

		fetcher := dumpithttp.NewFetcher()

		resp, err := fetcher.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "<html><body>Hello World</body></html>", string(resp.Body))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)
	})

	t.Run("reports final URL after redirect", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("moved"))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		resp, err := dumpithttp.NewFetcher().Fetch(context.Background(), server.URL+"/old")
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/new", resp.URL)
	})

	t.Run("sends configured user agent", func(t *testing.T) {
		t.Parallel()

		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("User-Agent")
		}))
		defer server.Close()

		fetcher := dumpithttp.NewFetcher(dumpithttp.WithUserAgent("test-agent/1.0"))
		_, err := fetcher.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "test-agent/1.0", got)
	})

	t.Run("sends default user agent", func(t *testing.T) {
		t.Parallel()

		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("User-Agent")
		}))
		defer server.Close()

		_, err := dumpithttp.NewFetcher().Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, dumpit.DefaultUserAgent, got)
	})

	t.Run("classifies slow response as timeout", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		fetcher := dumpithttp.NewFetcher(dumpithttp.WithTimeout(10 * time.Millisecond))

		_, err := fetcher.Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Equal(t, dumpit.FetchTimeout, dumpit.FetchErrorKindOf(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := dumpithttp.NewFetcher().Fetch(ctx, server.URL)
		require.Error(t, err)
	})

	t.Run("returns status error for non-2xx response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := dumpithttp.NewFetcher().Fetch(context.Background(), server.URL)
		require.Error(t, err)

		var fe *dumpit.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, dumpit.FetchStatus, fe.Kind)
		assert.Equal(t, http.StatusNotFound, fe.StatusCode)
		assert.Contains(t, err.Error(), "HTTP 404")
	})

	t.Run("rejects body larger than limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
		}))
		defer server.Close()

		fetcher := dumpithttp.NewFetcher(dumpithttp.WithMaxBodyBytes(1024))
		_, err := fetcher.Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Equal(t, dumpit.FetchTooLarge, dumpit.FetchErrorKindOf(err))
	})

	t.Run("accepts body exactly at limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
		}))
		defer server.Close()

		fetcher := dumpithttp.NewFetcher(dumpithttp.WithMaxBodyBytes(1024))
		resp, err := fetcher.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Len(t, resp.Body, 1024)
	})

	t.Run("classifies refused connection", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := dumpithttp.NewFetcher().Fetch(context.Background(), url)
		require.Error(t, err)
		assert.Equal(t, dumpit.FetchConnection, dumpit.FetchErrorKindOf(err))
	})
}
