package crawl

import (
	"fmt"
	"strings"
)

// TruncateURL shortens a page URL for the progress line. The scheme is
// dropped and, when the rest is still longer than maxLen, only its tail is
// kept behind a "..." marker since the path end names the page.
func TruncateURL(pageURL string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if i := strings.Index(pageURL, "://"); i >= 0 {
		pageURL = pageURL[i+3:]
	}
	if len(pageURL) <= maxLen {
		return pageURL
	}
	if maxLen <= 3 {
		return pageURL[len(pageURL)-maxLen:]
	}
	return "..." + pageURL[len(pageURL)-maxLen+3:]
}

// FormatBytes renders a byte count of downloaded images, e.g. "1.5 MB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	size := float64(n) / unit
	for _, suffix := range []string{"KB", "MB"} {
		if size < unit {
			return fmt.Sprintf("%.1f %s", size, suffix)
		}
		size /= unit
	}
	return fmt.Sprintf("%.1f GB", size)
}

// FormatSummary renders the end-of-run line, e.g. "Scraped 9/10 pages (1 failed)".
func FormatSummary(r *Result) string {
	line := fmt.Sprintf("Scraped %d/%d pages", len(r.Pages), r.Discovered)
	if n := len(r.Failures); n > 0 {
		line += fmt.Sprintf(" (%d failed)", n)
	}
	return line
}
