package crawl

import (
	"sync"

	"github.com/fwojciec/dumpit/bloom"
)

// visitedFPRate is the false positive rate of the visited set's Bloom filter.
const visitedFPRate = 0.01

// Frontier drives a breadth-first crawl one depth level at a time.
//
// URLs are claimed when they are admitted to a level, before they are
// fetched: a claimed URL is never admitted again, and the number of claimed
// URLs never exceeds the page budget. Links admitted while level d is
// processed form level d+1; nothing deeper than the maximum depth is ever
// admitted. Redirect targets recorded with Alias are never admitted either.
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu       sync.Mutex
	scope    *Scope
	visited  *bloom.Set
	claimed  int
	maxDepth int
	maxPages int

	depth   int
	started bool
	current []string
	next    []string
}

// NewFrontier creates a frontier whose first level holds only seedURL.
func NewFrontier(seedURL string, maxDepth, maxPages int) (*Frontier, error) {
	scope, err := NewScope(seedURL)
	if err != nil {
		return nil, err
	}
	seed, err := Normalize(seedURL)
	if err != nil {
		return nil, err
	}

	f := &Frontier{
		scope:    scope,
		visited:  bloom.NewSet(uint(max(maxPages, 1)), visitedFPRate),
		maxDepth: maxDepth,
		maxPages: maxPages,
	}
	if maxPages > 0 {
		f.visited.Add(seed)
		f.claimed = 1
		f.current = []string{seed}
	}
	return f, nil
}

// Next advances to the next depth level and returns its URLs in admission
// order. The first call returns the seed at depth 0. The bool result is
// false once a level comes up empty.
func (f *Frontier) Next() ([]string, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		f.current, f.next = f.next, nil
		f.depth++
	}
	f.started = true

	if len(f.current) == 0 {
		return nil, f.depth, false
	}
	urls := make([]string, len(f.current))
	copy(urls, f.current)
	return urls, f.depth, true
}

// Admit claims links discovered on the current level for the next one.
// Links are normalized; links that are out of scope, already claimed,
// beyond the maximum depth or over the page budget are dropped. It returns
// the number of links admitted.
func (f *Frontier) Admit(links []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.depth+1 > f.maxDepth {
		return 0
	}

	var admitted int
	for _, link := range links {
		if f.claimed >= f.maxPages {
			break
		}
		if !f.scope.Contains(link) {
			continue
		}
		u, err := Normalize(link)
		if err != nil {
			continue
		}
		if !f.visited.Add(u) {
			continue
		}
		f.next = append(f.next, u)
		f.claimed++
		admitted++
	}
	return admitted
}

// Seen reports whether rawURL has been claimed.
func (f *Frontier) Seen(rawURL string) bool {
	u, err := Normalize(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Has(u)
}

// Alias records rawURL, the final location of a fetched page after
// redirects, as visited so it is never admitted. It reports false when
// rawURL was already visited, meaning the page duplicates one that is
// already part of the crawl. Aliases do not count toward the page budget.
func (f *Frontier) Alias(rawURL string) bool {
	u, err := Normalize(rawURL)
	if err != nil {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Add(u)
}

// Claimed returns the number of URLs admitted so far, including the seed.
func (f *Frontier) Claimed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claimed
}
