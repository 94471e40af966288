package dumpit

import (
	"net/url"
	"strings"
	"time"
)

// Defaults for Config fields.
const (
	DefaultConcurrency  = 10
	DefaultTimeout      = 30 * time.Second
	DefaultMaxDepth     = 3
	DefaultMaxPages     = 1000
	DefaultOutput       = "output/scraped.json"
	DefaultMaxBodyBytes = 10 << 20
	DefaultUserAgent    = "Mozilla/5.0 (compatible; DumpIt/0.1)"
)

// Config holds the settings of one run. It is immutable once the run starts.
type Config struct {
	// Seed is the URL the run starts from. If its path ends in ".xml" it is
	// used as the sitemap location.
	Seed string

	// Concurrency caps the number of pages fetched and extracted at once.
	Concurrency int

	// Timeout applies to every individual request.
	Timeout time.Duration

	// MaxDepth is the number of link hops followed in crawl mode.
	// Zero scrapes the seed page only.
	MaxDepth int

	// MaxPages caps the number of pages admitted for fetching.
	MaxPages int

	// Output is the path of the JSON result file. Images are written to
	// an "images" directory next to it.
	Output string

	// MaxBodyBytes caps the size of a single response body.
	MaxBodyBytes int64

	// UserAgent is sent with every request.
	UserAgent string
}

// NewConfig returns a Config for seed with default settings.
func NewConfig(seed string) Config {
	return Config{
		Seed:         seed,
		Concurrency:  DefaultConcurrency,
		Timeout:      DefaultTimeout,
		MaxDepth:     DefaultMaxDepth,
		MaxPages:     DefaultMaxPages,
		Output:       DefaultOutput,
		MaxBodyBytes: DefaultMaxBodyBytes,
		UserAgent:    DefaultUserAgent,
	}
}

// Validate returns an error if the config cannot start a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Seed) == "" {
		return Errorf(EINVALID, "seed URL required")
	}
	u, err := url.Parse(c.Seed)
	if err != nil {
		return Errorf(EINVALID, "invalid seed URL %q: %v", c.Seed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Errorf(EINVALID, "seed URL must use http or https: %q", c.Seed)
	}
	if u.Host == "" {
		return Errorf(EINVALID, "seed URL has no host: %q", c.Seed)
	}
	if c.Concurrency < 1 {
		return Errorf(EINVALID, "concurrency must be at least 1")
	}
	if c.Timeout <= 0 {
		return Errorf(EINVALID, "timeout must be positive")
	}
	if c.MaxDepth < 0 {
		return Errorf(EINVALID, "max depth must not be negative")
	}
	if c.MaxPages < 1 {
		return Errorf(EINVALID, "max pages must be at least 1")
	}
	return nil
}
