// Package fs provides file-based storage for scrape results and image assets.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/dumpit"
)

// Ensure ResultWriter implements dumpit.RunWriter at compile time.
var _ dumpit.RunWriter = (*ResultWriter)(nil)

// ResultWriter writes a run's result as indented JSON to a file.
type ResultWriter struct {
	path string
}

// NewResultWriter creates a ResultWriter that writes to path.
func NewResultWriter(path string) *ResultWriter {
	return &ResultWriter{path: path}
}

// WriteRun writes run's result. Image local paths are rewritten relative to
// the output file's directory; run itself is not modified.
func (w *ResultWriter) WriteRun(ctx context.Context, run *dumpit.Run) error {
	if run == nil || run.Result == nil {
		return dumpit.Errorf(dumpit.EINVALID, "run has no result")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := w.relativize(run.Result)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return writeFileAtomic(w.path, data)
}

// relativize returns a copy of result whose image paths are relative to the
// output directory, using forward slashes.
func (w *ResultWriter) relativize(result *dumpit.ScrapeResult) (*dumpit.ScrapeResult, error) {
	outDir, err := filepath.Abs(filepath.Dir(w.path))
	if err != nil {
		return nil, err
	}

	pages := make([]*dumpit.Page, len(result.Pages))
	for i, p := range result.Pages {
		page := *p
		page.Blocks = make([]dumpit.Block, len(p.Blocks))
		for j, b := range p.Blocks {
			img, ok := b.(*dumpit.Image)
			if !ok || img.LocalPath == "" {
				page.Blocks[j] = b
				continue
			}
			abs, err := filepath.Abs(img.LocalPath)
			if err != nil {
				return nil, err
			}
			rel, err := filepath.Rel(outDir, abs)
			if err != nil {
				return nil, err
			}
			cp := *img
			cp.LocalPath = filepath.ToSlash(rel)
			page.Blocks[j] = &cp
		}
		pages[i] = &page
	}
	return dumpit.NewScrapeResult(pages), nil
}
