package http

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/dumpit"
)

// maxSitemapNesting caps how many sitemap indexes deep resolution follows.
const maxSitemapNesting = 3

// Ensure SitemapResolver implements dumpit.SitemapResolver.
var _ dumpit.SitemapResolver = (*SitemapResolver)(nil)

// SitemapResolver discovers page URLs from a site's sitemap.xml.
type SitemapResolver struct {
	fetcher dumpit.Fetcher
}

// NewSitemapResolver creates a new SitemapResolver that fetches through
// fetcher, so sitemap requests share the run's timeout and user agent.
func NewSitemapResolver(fetcher dumpit.Fetcher) *SitemapResolver {
	return &SitemapResolver{fetcher: fetcher}
}

// Resolve fetches the sitemap for seedURL's site.
//
// The sitemap location is {scheme}://{host}/sitemap.xml, unless seedURL
// itself points at an .xml document. A discovered sitemap must list at least
// dumpit.MinSitemapURLs URLs; one named by the seed needs only one. Sitemap
// indexes are followed up to three levels deep; child sitemaps that fail are
// skipped.
func (s *SitemapResolver) Resolve(ctx context.Context, seedURL string) (*dumpit.SitemapOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	location, err := SitemapLocation(seedURL)
	if err != nil {
		return nil, err
	}
	outcome := &dumpit.SitemapOutcome{Location: location}

	seenSitemaps := make(map[string]bool)
	urls, err := s.processSitemap(ctx, location, seenSitemaps, 0)
	if err != nil {
		// A missing or broken sitemap is an outcome, not a failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return outcome, nil
	}

	urls = dedupe(urls)
	minURLs := dumpit.MinSitemapURLs
	if explicitSitemap(seedURL) {
		minURLs = 1
	}
	if len(urls) < minURLs {
		return outcome, nil
	}

	outcome.Found = true
	outcome.URLs = urls
	return outcome, nil
}

// SitemapLocation returns the sitemap URL tried for seedURL.
func SitemapLocation(seedURL string) (string, error) {
	base, err := url.Parse(seedURL)
	if err != nil {
		return "", dumpit.Errorf(dumpit.EINVALID, "invalid seed URL: %v", err)
	}
	if base.Host == "" {
		return "", dumpit.Errorf(dumpit.EINVALID, "seed URL has no host: %q", seedURL)
	}
	if explicitSitemap(seedURL) {
		return base.String(), nil
	}
	loc := url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/sitemap.xml"}
	return loc.String(), nil
}

// explicitSitemap reports whether seedURL points at an .xml document.
func explicitSitemap(seedURL string) bool {
	u, err := url.Parse(seedURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".xml")
}

// processSitemap fetches and parses a sitemap, handling both urlset and sitemapindex.
func (s *SitemapResolver) processSitemap(ctx context.Context, sitemapURL string, seen map[string]bool, depth int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Avoid processing the same sitemap twice
	if seen[sitemapURL] {
		return nil, nil
	}
	seen[sitemapURL] = true

	resp, err := s.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(resp.Body); err != nil {
		return nil, fmt.Errorf("parsing sitemap XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty sitemap XML")
	}

	base, err := url.Parse(sitemapURL)
	if err != nil {
		return nil, err
	}

	switch root.Tag {
	case "sitemapindex":
		if depth >= maxSitemapNesting {
			return nil, nil
		}
		return s.processSitemapIndex(ctx, root, base, seen, depth)
	case "urlset":
		return parseURLSet(root, base), nil
	default:
		return nil, fmt.Errorf("unexpected sitemap root element <%s>", root.Tag)
	}
}

// processSitemapIndex processes a <sitemapindex> element recursively.
func (s *SitemapResolver) processSitemapIndex(ctx context.Context, root *etree.Element, base *url.URL, seen map[string]bool, depth int) ([]string, error) {
	var allURLs []string

	for _, sitemap := range root.SelectElements("sitemap") {
		sitemapURL := locOf(sitemap, base)
		if sitemapURL == "" {
			continue
		}

		urls, err := s.processSitemap(ctx, sitemapURL, seen, depth+1)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		allURLs = append(allURLs, urls...)
	}

	return allURLs, nil
}

// parseURLSet extracts URLs from a <urlset> element.
func parseURLSet(root *etree.Element, base *url.URL) []string {
	var urls []string
	for _, urlEl := range root.SelectElements("url") {
		if u := locOf(urlEl, base); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// locOf returns the absolute http(s) URL in el's <loc> child, or "".
func locOf(el *etree.Element, base *url.URL) string {
	loc := el.SelectElement("loc")
	if loc == nil {
		return ""
	}
	raw := strings.TrimSpace(loc.Text())
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// dedupe removes repeated URLs, keeping first-seen order.
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
