package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/dumpit"
	main "github.com/fwojciec/dumpit/cmd/dumpit"
	"github.com/fwojciec/dumpit/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--help"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "dumpit")
	assert.Contains(t, stdout.String(), "--max-depth")
	assert.Contains(t, stdout.String(), "--max-pages")
	assert.Contains(t, stdout.String(), "runs|show|delete")
}

func TestMain_Run_NoArgs(t *testing.T) {
	t.Parallel()

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{}, &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, stdout.String(), "dumpit")
}

func TestMain_Run_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	t.Run("non-http seed", func(t *testing.T) {
		t.Parallel()

		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), []string{"-u", "ftp://example.com"}, &stdout, &stderr)

		require.Error(t, err)
		assert.Equal(t, dumpit.EINVALID, dumpit.ErrorCode(err))
		assert.Contains(t, stderr.String(), "http or https")
	})

	t.Run("zero concurrency", func(t *testing.T) {
		t.Parallel()

		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), []string{"-u", "https://example.com", "-c", "0"}, &stdout, &stderr)

		require.Error(t, err)
		assert.Equal(t, dumpit.EINVALID, dumpit.ErrorCode(err))
	})

	t.Run("unparsable timeout", func(t *testing.T) {
		t.Parallel()

		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), []string{"-u", "https://example.com", "-t", "soon"}, &stdout, &stderr)

		require.Error(t, err)
	})
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	r := rand.New(rand.NewPCG(7, 8))
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			img.Set(x, y, color.RGBA{uint8(r.IntN(256)), uint8(r.IntN(256)), uint8(r.IntN(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMain_Run_ScrapesSite(t *testing.T) {
	t.Parallel()

	logo := testPNG(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Home</title></head><body>
			<h1>Welcome</h1><p>Hello world</p><img src="/logo.png" alt="Logo">
			<a href="/about">About</a></body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>About</title></head><body>
			<h2>About us</h2><img src="/logo.png" alt="Logo again"></body></html>`))
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(logo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	output := filepath.Join(dir, "out", "scraped.json")
	dbPath := filepath.Join(dir, "archive.db")

	var stdout, stderr bytes.Buffer
	err := main.NewMain().Run(context.Background(), []string{
		"-u", srv.URL, "-o", output, "-d", "1", "-t", "5", "--db", dbPath,
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Scraped 2/2 pages")
	assert.Contains(t, out, "Mode: crawl")
	assert.Contains(t, out, "Images: 1 written (")
	assert.Contains(t, out, "), 1 reused")
	assert.Contains(t, out, "Archived as run ")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var result dumpit.ScrapeResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Equal(t, 2, result.TotalPages)
	assert.Equal(t, "Home", result.Pages[0].Title)
	assert.Equal(t, "About", result.Pages[1].Title)

	var img *dumpit.Image
	for _, b := range result.Pages[0].Blocks {
		if i, ok := b.(*dumpit.Image); ok {
			img = i
		}
	}
	require.NotNil(t, img)
	assert.True(t, strings.HasPrefix(img.LocalPath, "images/"))
	assert.True(t, strings.HasSuffix(img.LocalPath, ".png"))
	assert.FileExists(t, filepath.Join(filepath.Dir(output), filepath.FromSlash(img.LocalPath)))

	entries, err := os.ReadDir(filepath.Join(dir, "out", "images"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	db := sqlite.NewDB(dbPath)
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	runs, err := sqlite.NewRunStore(db).FindRuns(context.Background(), dumpit.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, srv.URL, runs[0].Seed)
	assert.Equal(t, dumpit.ModeCrawl, runs[0].Mode)

	stdout.Reset()
	require.NoError(t, main.NewMain().Run(context.Background(), []string{"runs", "--db", dbPath}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), runs[0].ID)
	assert.Contains(t, stdout.String(), srv.URL)

	stdout.Reset()
	require.NoError(t, main.NewMain().Run(context.Background(), []string{"show", runs[0].ID, "--db", dbPath, "--full"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Home")
	assert.Contains(t, stdout.String(), srv.URL+"/about")
	assert.Contains(t, stdout.String(), "h2 About us")

	stdout.Reset()
	require.NoError(t, main.NewMain().Run(context.Background(), []string{"delete", runs[0].ID, "--db", dbPath}, &stdout, &stderr))
	runs, err = sqlite.NewRunStore(db).FindRuns(context.Background(), dumpit.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMain_Run_ArchiveRequiresDB(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := main.NewMain().Run(context.Background(), []string{"runs"}, &stdout, &stderr)

	require.Error(t, err)
}
