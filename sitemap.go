package dumpit

import "context"

// MinSitemapURLs is the number of distinct URLs a discovered sitemap must
// list to be used instead of crawling. A sitemap the seed URL names
// explicitly is used as long as it lists any URL.
const MinSitemapURLs = 2

// SitemapOutcome is the result of sitemap resolution.
type SitemapOutcome struct {
	// Found reports whether a usable sitemap was found. When true, URLs is
	// not empty.
	Found bool

	// Location is the sitemap URL that was tried.
	Location string

	// URLs are the absolute page URLs in first-seen order, without
	// duplicates. Empty unless Found.
	URLs []string
}

// SitemapResolver locates and parses a site's sitemap.
type SitemapResolver interface {
	// Resolve fetches the sitemap for the site of seedURL. A missing,
	// unreachable, malformed or too small sitemap is reported as an outcome
	// with Found false, never as an error. An error is only returned when
	// ctx is done.
	Resolve(ctx context.Context, seedURL string) (*SitemapOutcome, error)
}
