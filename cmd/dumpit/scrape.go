package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/dumpit"
	"github.com/fwojciec/dumpit/crawl"
)

// Run executes the scrape command.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	started := deps.Now()

	progress := func(e crawl.ProgressEvent) {
		switch e.Type {
		case crawl.ProgressStarted:
			fmt.Fprintf(deps.Stdout, "Scraping %s\n", c.URL)
		case crawl.ProgressCompleted:
			fmt.Fprintf(deps.Stdout, "\r[%d/%d] %s", e.Completed, e.Total, crawl.TruncateURL(e.URL, 60))
		case crawl.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "skip %s: %v\n", e.URL, e.Error)
		case crawl.ProgressFinished:
			// Clear progress line
			fmt.Fprintf(deps.Stdout, "\r%80s\r", "")
		}
	}

	result, scrapeErr := deps.Scraper.Scrape(deps.Ctx, c.URL, progress)
	if result == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dumpit.ErrorMessage(scrapeErr))
		return scrapeErr
	}

	run := &dumpit.Run{
		Seed:       c.URL,
		Mode:       result.Mode,
		Discovered: result.Discovered,
		Failed:     len(result.Failures),
		StartedAt:  started,
		FinishedAt: deps.Now(),
		Result:     result.ScrapeResult(),
	}

	// Partial results of an interrupted run are still written.
	ctx := context.WithoutCancel(deps.Ctx)
	for _, w := range deps.Writers {
		if err := w.WriteRun(ctx, run); err != nil {
			fmt.Fprintf(deps.Stderr, "error saving: %v\n", err)
			return err
		}
	}

	fmt.Fprintln(deps.Stdout, crawl.FormatSummary(result))
	fmt.Fprintf(deps.Stdout, "Mode: %s\n", result.Mode)
	if deps.Images != nil {
		fmt.Fprintf(deps.Stdout, "Images: %d written (%s), %d reused\n",
			deps.Images.Created(), crawl.FormatBytes(deps.Images.CreatedBytes()), deps.Images.Reused())
	}
	if c.Output != "" {
		fmt.Fprintf(deps.Stdout, "Saved to %s\n", c.Output)
	}
	if run.ID != "" {
		fmt.Fprintf(deps.Stdout, "Archived as run %s\n", run.ID)
	}

	return scrapeErr
}
