package mock

import "github.com/fwojciec/dumpit"

var _ dumpit.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of dumpit.Extractor.
type Extractor struct {
	ExtractFn func(html []byte, pageURL string) *dumpit.Extraction
}

func (e *Extractor) Extract(html []byte, pageURL string) *dumpit.Extraction {
	return e.ExtractFn(html, pageURL)
}
