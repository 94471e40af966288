package main

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/dumpit"
	"github.com/fwojciec/dumpit/crawl"
)

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	URL         string  `short:"u" required:"" help:"Website URL to scrape"`
	Concurrency int     `short:"c" default:"10" help:"Number of pages fetched at once"`
	Timeout     Timeout `short:"t" default:"30" help:"Request timeout, in seconds or as a duration (e.g. 10s)"`
	Output      string  `short:"o" default:"output/scraped.json" help:"Output JSON file; images are saved next to it"`
	MaxDepth    int     `short:"d" default:"3" help:"Maximum link depth in crawl mode"`
	MaxPages    int     `short:"m" default:"1000" help:"Maximum number of pages to scrape"`
	UserAgent   string  `default:"Mozilla/5.0 (compatible; DumpIt/0.1)" help:"User-Agent header"`
	DB          string  `help:"Also archive the run in this SQLite database"`
	Debug       bool    `help:"Log every request and write to stderr"`
}

// Config returns the run configuration described by the flags.
func (c *CLI) Config() dumpit.Config {
	cfg := dumpit.NewConfig(c.URL)
	cfg.Concurrency = c.Concurrency
	cfg.Timeout = time.Duration(c.Timeout)
	cfg.Output = c.Output
	cfg.MaxDepth = c.MaxDepth
	cfg.MaxPages = c.MaxPages
	if c.UserAgent != "" {
		cfg.UserAgent = c.UserAgent
	}
	return cfg
}

// Timeout is a duration flag that also accepts a bare number of seconds.
type Timeout time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timeout) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		*t = Timeout(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return dumpit.Errorf(dumpit.EINVALID, "invalid timeout %q", s)
	}
	*t = Timeout(d)
	return nil
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time

	Scraper *crawl.Scraper
	// Images is the scraper's image pipeline, read for the summary.
	Images *crawl.ImagePipeline
	// Writers receive the finished run in order.
	Writers []dumpit.RunWriter

	// Runs reads the archive for the archive commands.
	Runs dumpit.RunService
}

// archiveCommands names the subcommands that read a --db archive instead of
// scraping.
var archiveCommands = map[string]bool{"runs": true, "show": true, "delete": true}

// ArchiveCLI defines the commands that work on an archive written by --db.
type ArchiveCLI struct {
	DB string `required:"" help:"SQLite archive written by a scrape with --db"`

	Runs   RunsCmd   `cmd:"" help:"List archived runs, newest first"`
	Show   ShowCmd   `cmd:"" help:"Print the pages of an archived run"`
	Delete DeleteCmd `cmd:"" help:"Delete an archived run"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	Seed   string `help:"Only list runs of this seed URL"`
	Limit  int    `short:"n" default:"20" help:"Maximum number of runs listed"`
	Offset int    `help:"Number of runs skipped"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	ID   string `arg:"" help:"Run ID"`
	Full bool   `help:"Print every content block"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	ID string `arg:"" help:"Run ID"`
}

// ScrapeCmd handles the scrape operation.
type ScrapeCmd struct {
	URL    string
	Output string
}
