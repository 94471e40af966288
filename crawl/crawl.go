// Package crawl coordinates a scrape: it chooses between sitemap and crawl
// mode, fetches pages with bounded concurrency, extracts their content and
// runs their images through the image pipeline.
package crawl

import (
	"context"
	"mime"

	"github.com/fwojciec/dumpit"
	"golang.org/x/sync/errgroup"
)

// Scraper orchestrates one run over a site.
type Scraper struct {
	Sitemaps  dumpit.SitemapResolver
	Fetcher   dumpit.Fetcher
	Extractor dumpit.Extractor
	// Images processes image blocks. When nil, image blocks are dropped.
	Images dumpit.ImagePipeline

	Concurrency int
	MaxDepth    int
	MaxPages    int
}

// Result holds the outcome of a run.
type Result struct {
	Mode dumpit.Mode
	// Pages are the successfully scraped pages. In sitemap mode they follow
	// sitemap order; in crawl mode they follow depth, then admission order.
	Pages []*dumpit.Page
	// Discovered is the number of URLs scheduled for fetching.
	Discovered int
	Failures   []Failure
}

// Failure records a URL that produced no page.
type Failure struct {
	URL string
	Err error
}

// ScrapeResult returns the serializable form of r.
func (r *Result) ScrapeResult() *dumpit.ScrapeResult {
	return dumpit.NewScrapeResult(r.Pages)
}

// ProgressEvent reports progress during a run.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	URL       string
	Depth     int
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting run progress. It is always
// called from the goroutine that called Scrape.
type ProgressFunc func(event ProgressEvent)

// pageResult holds the outcome of processing a single URL.
type pageResult struct {
	position int
	url      string
	final    string
	page     *dumpit.Page
	links    []string
	err      error
}

// Scrape scrapes the site at seedURL. Per-page failures are recorded in the
// result and never abort the run; an error is returned only for an invalid
// seed or a cancelled context.
func (s *Scraper) Scrape(ctx context.Context, seedURL string, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(ProgressEvent) {}
	}

	// Validate the seed before any request is made.
	frontier, err := NewFrontier(seedURL, s.MaxDepth, s.MaxPages)
	if err != nil {
		return nil, err
	}

	if s.Sitemaps != nil {
		outcome, err := s.Sitemaps.Resolve(ctx, seedURL)
		if err != nil {
			return nil, err
		}
		if outcome != nil && outcome.Found && len(outcome.URLs) > 0 {
			return s.scrapeSitemap(ctx, outcome.URLs, progress)
		}
	}

	return s.scrapeCrawl(ctx, frontier, progress)
}

// scrapeSitemap processes the sitemap's URLs as one flat batch.
func (s *Scraper) scrapeSitemap(ctx context.Context, urls []string, progress ProgressFunc) (*Result, error) {
	if s.MaxPages > 0 && len(urls) > s.MaxPages {
		urls = urls[:s.MaxPages]
	}

	result := &Result{Mode: dumpit.ModeSitemap, Discovered: len(urls)}
	total := len(urls)
	var completed int

	progress(ProgressEvent{Type: ProgressStarted, Total: total})

	results := s.processBatch(ctx, urls, func(r pageResult) {
		completed++
		report(progress, r, ProgressEvent{Completed: completed, Total: total})
	})
	result.add(dropRedirectDuplicates(results, sitemapAliases(urls)))

	progress(ProgressEvent{Type: ProgressFinished, Completed: completed, Total: total})
	return result, ctx.Err()
}

// scrapeCrawl explores the site breadth first, one depth level at a time.
// Links found on a level are admitted only after the whole level is done,
// in the order of the pages they were found on.
func (s *Scraper) scrapeCrawl(ctx context.Context, frontier *Frontier, progress ProgressFunc) (*Result, error) {
	result := &Result{Mode: dumpit.ModeCrawl}
	var completed int

	progress(ProgressEvent{Type: ProgressStarted, Total: frontier.Claimed()})

	for {
		if ctx.Err() != nil {
			break
		}
		urls, depth, ok := frontier.Next()
		if !ok {
			break
		}

		results := s.processBatch(ctx, urls, func(r pageResult) {
			completed++
			report(progress, r, ProgressEvent{Completed: completed, Total: frontier.Claimed(), Depth: depth})
		})
		// Level barrier: every page of this level is done.
		results = dropRedirectDuplicates(results, frontier.Alias)
		result.add(results)
		for _, r := range results {
			if r.err == nil {
				frontier.Admit(r.links)
			}
		}
	}

	result.Discovered = frontier.Claimed()
	progress(ProgressEvent{Type: ProgressFinished, Completed: completed, Total: result.Discovered})
	return result, ctx.Err()
}

// dropRedirectDuplicates removes successful results that were redirected to
// a URL alias has already seen, keeping the order of the rest. alias is
// called, in order, with the final URL of every result that was redirected.
func dropRedirectDuplicates(results []pageResult, alias func(string) bool) []pageResult {
	out := results[:0]
	for _, r := range results {
		if r.err == nil && r.final != "" && !sameURL(r.url, r.final) && !alias(r.final) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sitemapAliases returns an alias func that treats every URL in urls as
// already seen.
func sitemapAliases(urls []string) func(string) bool {
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if n, err := Normalize(u); err == nil {
			seen[n] = true
		}
	}
	return func(rawURL string) bool {
		n, err := Normalize(rawURL)
		if err != nil {
			return true
		}
		if seen[n] {
			return false
		}
		seen[n] = true
		return true
	}
}

// sameURL reports whether a and b normalize to the same URL.
func sameURL(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return na == nb
}

// add appends results to r in order.
func (r *Result) add(results []pageResult) {
	for _, pr := range results {
		if pr.err != nil {
			r.Failures = append(r.Failures, Failure{URL: pr.url, Err: pr.err})
			continue
		}
		r.Pages = append(r.Pages, pr.page)
	}
}

// report sends the completion event for r.
func report(progress ProgressFunc, r pageResult, event ProgressEvent) {
	event.URL = r.url
	event.Type = ProgressCompleted
	if r.err != nil {
		event.Type = ProgressFailed
		event.Error = r.err
	}
	progress(event)
}

// processBatch fetches and extracts urls with at most Concurrency requests
// in flight. done is called for each result as it arrives, on the calling
// goroutine. Results are returned in the order of urls.
func (s *Scraper) processBatch(ctx context.Context, urls []string, done func(pageResult)) []pageResult {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = dumpit.DefaultConcurrency
	}

	resultCh := make(chan pageResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for i, url := range urls {
			g.Go(func() error {
				resultCh <- s.processURL(gctx, i, url)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	results := make([]pageResult, len(urls))
	for r := range resultCh {
		results[r.position] = r
		done(r)
	}
	return results
}

// processURL fetches and extracts a single page.
func (s *Scraper) processURL(ctx context.Context, position int, url string) pageResult {
	result := pageResult{position: position, url: url}

	resp, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		result.err = err
		return result
	}
	if !isHTML(resp.ContentType) {
		result.err = dumpit.Errorf(dumpit.EINVALID, "not an HTML document: %s", resp.ContentType)
		return result
	}

	base := resp.URL
	if base == "" {
		base = url
	}
	result.final = base
	extraction := s.Extractor.Extract(resp.Body, base)

	blocks := make([]dumpit.Block, 0, len(extraction.Blocks))
	for _, b := range extraction.Blocks {
		img, ok := b.(*dumpit.Image)
		if !ok {
			blocks = append(blocks, b)
			continue
		}
		if s.Images == nil {
			continue
		}
		asset, ok := s.Images.Acquire(ctx, img, base)
		if !ok {
			continue
		}
		img.OriginalURL = asset.OriginalURL
		img.LocalPath = asset.LocalPath
		blocks = append(blocks, img)
	}

	result.page = &dumpit.Page{
		URL:             url,
		Title:           extraction.Title,
		MetaTitle:       extraction.MetaTitle,
		MetaDescription: extraction.MetaDescription,
		Blocks:          blocks,
		TotalWords:      dumpit.CountWords(blocks),
	}
	result.links = extraction.Links
	return result
}

// isHTML reports whether contentType can hold an HTML document. A missing
// content type is given the benefit of the doubt.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain":
		return true
	}
	return false
}
