package fs_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/dumpit"
	"github.com/fwojciec/dumpit/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultWriter_WriteRun(t *testing.T) {
	t.Parallel()

	t.Run("writes result json with relative image paths", func(t *testing.T) {
		t.Parallel()

		outDir := filepath.Join(t.TempDir(), "output")
		output := filepath.Join(outDir, "scraped.json")
		imgPath := filepath.Join(fs.ImagesDir(output), "abc.png")

		img := &dumpit.Image{OriginalURL: "https://example.com/a.png", LocalPath: imgPath, AltText: "A"}
		run := &dumpit.Run{Result: dumpit.NewScrapeResult([]*dumpit.Page{{
			URL:    "https://example.com/",
			Title:  "Home",
			Blocks: []dumpit.Block{&dumpit.Heading{Level: 1, Text: "Hi"}, img},
		}})}

		err := fs.NewResultWriter(output).WriteRun(context.Background(), run)
		require.NoError(t, err)

		data, err := os.ReadFile(output)
		require.NoError(t, err)

		var got struct {
			TotalPages int `json:"total_pages"`
			Pages      []struct {
				URL    string           `json:"url"`
				Blocks []map[string]any `json:"content_blocks"`
			} `json:"pages"`
		}
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, 1, got.TotalPages)
		require.Len(t, got.Pages, 1)
		require.Len(t, got.Pages[0].Blocks, 2)
		assert.Equal(t, "heading", got.Pages[0].Blocks[0]["type"])
		assert.Equal(t, "image", got.Pages[0].Blocks[1]["type"])
		assert.Equal(t, "images/abc.png", got.Pages[0].Blocks[1]["local_path"])

		assert.Equal(t, imgPath, img.LocalPath, "the run must not be modified")
	})

	t.Run("creates missing directories", func(t *testing.T) {
		t.Parallel()

		output := filepath.Join(t.TempDir(), "a", "b", "out.json")
		run := &dumpit.Run{Result: dumpit.NewScrapeResult(nil)}

		require.NoError(t, fs.NewResultWriter(output).WriteRun(context.Background(), run))

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.JSONEq(t, `{"total_pages": 0, "pages": []}`, string(data))
	})

	t.Run("rejects run without result", func(t *testing.T) {
		t.Parallel()

		err := fs.NewResultWriter(filepath.Join(t.TempDir(), "out.json")).WriteRun(context.Background(), &dumpit.Run{})
		require.Error(t, err)
		assert.Equal(t, dumpit.EINVALID, dumpit.ErrorCode(err))
	})
}
