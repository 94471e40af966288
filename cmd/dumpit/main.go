package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/dumpit"
	"github.com/fwojciec/dumpit/crawl"
	"github.com/fwojciec/dumpit/fs"
	"github.com/fwojciec/dumpit/goquery"
	dhttp "github.com/fwojciec/dumpit/http"
	dslog "github.com/fwojciec/dumpit/slog"
	"github.com/fwojciec/dumpit/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Now returns the current time. Replaced in tests.
	Now func() time.Time
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Now: time.Now}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && archiveCommands[args[0]] {
		return m.runArchive(ctx, args, stdout, stderr)
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("dumpit"),
		kong.Description("Scrape a website into structured content blocks.\n\n"+
			"Archived runs are read with 'dumpit runs|show|delete --db PATH'."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle no arguments
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no arguments provided")
	}

	// Handle help flags
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	cfg := cli.Config()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", dumpit.ErrorMessage(err))
		return err
	}

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Now:    m.Now,
	}

	var logger *slog.Logger
	if cli.Debug {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var fetcher dumpit.Fetcher = dhttp.NewFetcher(
		dhttp.WithTimeout(cfg.Timeout),
		dhttp.WithMaxBodyBytes(cfg.MaxBodyBytes),
		dhttp.WithUserAgent(cfg.UserAgent),
	)
	var store dumpit.AssetStore = fs.NewAssetStore(fs.ImagesDir(cfg.Output))
	var result dumpit.RunWriter = fs.NewResultWriter(cfg.Output)
	if logger != nil {
		fetcher = dslog.NewLoggingFetcher(fetcher, logger)
		store = dslog.NewLoggingAssetStore(store, logger)
		result = dslog.NewLoggingRunWriter(result, "json", logger)
	}

	var sitemaps dumpit.SitemapResolver = dhttp.NewSitemapResolver(fetcher)
	if logger != nil {
		sitemaps = dslog.NewLoggingSitemapResolver(sitemaps, logger)
	}

	deps.Images = crawl.NewImagePipeline(fetcher, store)
	deps.Scraper = &crawl.Scraper{
		Sitemaps:    sitemaps,
		Fetcher:     fetcher,
		Extractor:   goquery.NewExtractor(),
		Images:      deps.Images,
		Concurrency: cfg.Concurrency,
		MaxDepth:    cfg.MaxDepth,
		MaxPages:    cfg.MaxPages,
	}
	deps.Writers = []dumpit.RunWriter{result}

	if cli.DB != "" {
		db := sqlite.NewDB(cli.DB)
		if err := db.Open(); err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer db.Close()

		var archive dumpit.RunWriter = sqlite.NewRunStore(db)
		if logger != nil {
			archive = dslog.NewLoggingRunWriter(archive, "sqlite", logger)
		}
		deps.Writers = append(deps.Writers, archive)
	}

	cmd := &ScrapeCmd{
		URL:    cfg.Seed,
		Output: cfg.Output,
	}
	return cmd.Run(deps)
}

// runArchive executes one of the archive commands against the --db archive.
func (m *Main) runArchive(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Now:    m.Now,
	}

	cli := &ArchiveCLI{}
	parser, err := kong.New(cli,
		kong.Name("dumpit"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	db := sqlite.NewDB(cli.DB)
	if err := db.Open(); err != nil {
		return fmt.Errorf("failed to open archive at %q: %w", cli.DB, err)
	}
	defer db.Close()
	deps.Runs = sqlite.NewRunStore(db)

	return kongCtx.Run(deps)
}
