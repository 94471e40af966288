package dumpit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// BlockType discriminates content block variants in serialized output.
type BlockType string

// Content block types.
const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockList      BlockType = "list"
	BlockImage     BlockType = "image"
	BlockForm      BlockType = "form"
)

// Block is one structural unit of a page body. The set of implementations
// is closed: *Heading, *Paragraph, *List, *Image and *Form.
type Block interface {
	Type() BlockType
	block()
}

// Heading is an h1-h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Paragraph is a run of body text.
type Paragraph struct {
	Text string `json:"text"`
}

// List is a ul or ol element. Nested lists are flattened into the text of
// their parent item.
type List struct {
	Items []string `json:"items"`
}

// Image is an img element whose asset was downloaded.
type Image struct {
	OriginalURL string `json:"original_url"`
	LocalPath   string `json:"local_path"`
	AltText     string `json:"alt_text"`

	// Sources lists absolute candidate URLs in preference order
	// (src, data-src, first srcset entry). Set by the extractor.
	Sources []string `json:"-"`

	// Width and Height are the declared dimensions, zero when absent.
	Width  int `json:"-"`
	Height int `json:"-"`
}

// Form is a form element with its input fields.
type Form struct {
	Action     string      `json:"action"`
	Method     string      `json:"method"`
	Fields     []FormField `json:"fields"`
	SubmitText string      `json:"submit_text"`
}

// FormField is a single input, select or textarea within a Form.
type FormField struct {
	FieldType   string   `json:"field_type"`
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder"`
	Required    bool     `json:"required"`
	Options     []string `json:"options"`
}

func (*Heading) Type() BlockType   { return BlockHeading }
func (*Paragraph) Type() BlockType { return BlockParagraph }
func (*List) Type() BlockType      { return BlockList }
func (*Image) Type() BlockType     { return BlockImage }
func (*Form) Type() BlockType      { return BlockForm }

func (*Heading) block()   {}
func (*Paragraph) block() {}
func (*List) block()      {}
func (*Image) block()     {}
func (*Form) block()      {}

// MarshalJSON encodes the heading with its type discriminator.
func (b *Heading) MarshalJSON() ([]byte, error) {
	type alias Heading
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		*alias
	}{BlockHeading, (*alias)(b)})
}

// MarshalJSON encodes the paragraph with its type discriminator.
func (b *Paragraph) MarshalJSON() ([]byte, error) {
	type alias Paragraph
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		*alias
	}{BlockParagraph, (*alias)(b)})
}

// MarshalJSON encodes the list with its type discriminator.
func (b *List) MarshalJSON() ([]byte, error) {
	type alias List
	a := *(*alias)(b)
	if a.Items == nil {
		a.Items = []string{}
	}
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{BlockList, a})
}

// MarshalJSON encodes the image with its type discriminator.
func (b *Image) MarshalJSON() ([]byte, error) {
	type alias Image
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		*alias
	}{BlockImage, (*alias)(b)})
}

// MarshalJSON encodes the form with its type discriminator.
// Nil field and option slices are encoded as empty arrays.
func (b *Form) MarshalJSON() ([]byte, error) {
	type alias Form
	a := *(*alias)(b)
	fields := make([]FormField, len(a.Fields))
	for i, f := range a.Fields {
		if f.Options == nil {
			f.Options = []string{}
		}
		fields[i] = f
	}
	a.Fields = fields
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{BlockForm, a})
}

// UnmarshalBlock decodes a single type-tagged block.
func UnmarshalBlock(data []byte) (Block, error) {
	var head struct {
		Type BlockType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var b Block
	switch head.Type {
	case BlockHeading:
		b = &Heading{}
	case BlockParagraph:
		b = &Paragraph{}
	case BlockList:
		b = &List{}
	case BlockImage:
		b = &Image{}
	case BlockForm:
		b = &Form{}
	default:
		return nil, Errorf(EINVALID, "unknown block type %q", head.Type)
	}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("decoding %s block: %w", head.Type, err)
	}
	return b, nil
}

// Page is the extracted content of one successfully fetched page.
type Page struct {
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	MetaTitle       string  `json:"meta_title"`
	MetaDescription string  `json:"meta_description"`
	Blocks          []Block `json:"content_blocks"`
	TotalWords      int     `json:"total_words"`
}

// MarshalJSON encodes the page, writing a nil block sequence as an empty array.
func (p *Page) MarshalJSON() ([]byte, error) {
	type alias Page
	a := *(*alias)(p)
	if a.Blocks == nil {
		a.Blocks = []Block{}
	}
	return json.Marshal(a)
}

// UnmarshalJSON decodes a page and its type-tagged blocks.
func (p *Page) UnmarshalJSON(data []byte) error {
	type alias Page
	var aux struct {
		alias
		Blocks []json.RawMessage `json:"content_blocks"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Page(aux.alias)
	p.Blocks = make([]Block, 0, len(aux.Blocks))
	for _, raw := range aux.Blocks {
		b, err := UnmarshalBlock(raw)
		if err != nil {
			return err
		}
		p.Blocks = append(p.Blocks, b)
	}
	return nil
}

// CountWords returns the number of whitespace-delimited words in the
// heading, paragraph and list item text of blocks. Image alt text and
// form labels are not counted.
func CountWords(blocks []Block) int {
	var n int
	for _, b := range blocks {
		switch b := b.(type) {
		case *Heading:
			n += len(strings.Fields(b.Text))
		case *Paragraph:
			n += len(strings.Fields(b.Text))
		case *List:
			for _, item := range b.Items {
				n += len(strings.Fields(item))
			}
		case *Image, *Form:
		}
	}
	return n
}

// ScrapeResult is the output of a run.
type ScrapeResult struct {
	TotalPages int     `json:"total_pages"`
	Pages      []*Page `json:"pages"`
}

// NewScrapeResult returns a result holding pages in order.
func NewScrapeResult(pages []*Page) *ScrapeResult {
	if pages == nil {
		pages = []*Page{}
	}
	return &ScrapeResult{
		TotalPages: len(pages),
		Pages:      pages,
	}
}

// Mode is the discovery strategy selected for a run.
type Mode string

// Discovery modes.
const (
	ModeSitemap Mode = "sitemap"
	ModeCrawl   Mode = "crawl"
)

// Run describes a finished run and its result.
type Run struct {
	ID         string
	Seed       string
	Mode       Mode
	Discovered int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
	Result     *ScrapeResult
}

// RunWriter persists a finished run.
type RunWriter interface {
	WriteRun(ctx context.Context, run *Run) error
}

// RunFilter selects archived runs.
type RunFilter struct {
	Seed *string

	Limit  int
	Offset int
}

// RunService reads back and removes archived runs.
type RunService interface {
	// FindRunByID returns the run without its pages. Returns ENOTFOUND if
	// no run has id.
	FindRunByID(ctx context.Context, id string) (*Run, error)

	// FindRuns returns runs matching filter, newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	// FindPages returns the pages of a run in their original order.
	FindPages(ctx context.Context, runID string) ([]*Page, error)

	// DeleteRun removes a run with its pages and blocks.
	DeleteRun(ctx context.Context, id string) error
}
