package dumpit

// Extraction is the structured content of one HTML document.
type Extraction struct {
	Title           string
	MetaTitle       string
	MetaDescription string

	// Blocks are in document order. Image blocks carry their candidate
	// sources and have no LocalPath yet.
	Blocks []Block

	// Links are the absolute http(s) targets of every anchor in the
	// document, fragments removed, in document order.
	Links []string
}

// Extractor turns HTML into content blocks.
type Extractor interface {
	// Extract parses html fetched from pageURL. It never fails: malformed
	// input degrades to partial output.
	Extract(html []byte, pageURL string) *Extraction
}
