// Package goquery implements dumpit.Extractor on top of goquery and the
// golang.org/x/net/html node tree.
package goquery

import (
	"bytes"
	"io"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/dumpit"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// Ensure Extractor implements dumpit.Extractor at compile time.
var _ dumpit.Extractor = (*Extractor)(nil)

// Extractor turns static HTML into an ordered sequence of content blocks.
// It holds no state and is safe for concurrent use.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses html fetched from pageURL. Parsing is tolerant: malformed
// markup yields whatever blocks the parser could recover.
func (e *Extractor) Extract(data []byte, pageURL string) *dumpit.Extraction {
	out := &dumpit.Extraction{}

	// Input that is not UTF-8 is decoded using its meta charset, falling
	// back to windows-1252.
	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		if decoded, err := charset.NewReader(r, ""); err == nil {
			r = decoded
		}
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return out
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = &url.URL{}
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = ref
		}
	}

	out.Title = normalizeSpace(doc.Find("title").First().Text())
	out.MetaTitle, out.MetaDescription = metaTags(doc)
	if out.MetaTitle == "" {
		out.MetaTitle = out.Title
	}

	w := &walker{
		base:       base,
		pageURL:    pageURL,
		labels:     labelsByID(doc),
		seenLinks:  make(map[string]bool),
		seenImages: make(map[string]bool),
	}

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	for _, n := range root.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.visit(c)
		}
	}
	w.flush()

	out.Blocks = w.blocks
	out.Links = w.links
	return out
}

// metaTags returns the meta title (Open Graph title first, then
// name="title") and the meta description.
func metaTags(doc *goquery.Document) (title, description string) {
	var ogTitle, nameTitle string
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content := normalizeSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		property := strings.ToLower(strings.TrimSpace(s.AttrOr("property", "")))
		switch {
		case property == "og:title" || name == "og:title":
			if ogTitle == "" {
				ogTitle = content
			}
		case name == "title":
			if nameTitle == "" {
				nameTitle = content
			}
		case name == "description":
			if description == "" {
				description = content
			}
		}
	})
	if ogTitle != "" {
		return ogTitle, description
	}
	return nameTitle, description
}

// labelsByID maps element ids to the text of the first label[for] naming them.
func labelsByID(doc *goquery.Document) map[string]string {
	labels := make(map[string]string)
	doc.Find("label[for]").Each(func(_ int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr("for", ""))
		if id == "" {
			return
		}
		if _, ok := labels[id]; ok {
			return
		}
		labels[id] = labelText(s.Nodes[0])
	})
	return labels
}

// walker accumulates blocks while visiting the body in document order.
//
// Inline content is gathered into a pending paragraph that is flushed when a
// block-level element starts or ends. Images met while a paragraph is pending,
// and images or forms met inside a heading or list, are deferred until after
// that block so block order follows reading order.
type walker struct {
	base    *url.URL
	pageURL string
	labels  map[string]string

	blocks   []dumpit.Block
	pending  strings.Builder
	deferred []dumpit.Block
	// inBlock is set while the text of a heading or list is gathered.
	inBlock bool

	links      []string
	seenLinks  map[string]bool
	seenImages map[string]bool
}

func (w *walker) visit(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.pending.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	if skipped(n) {
		return
	}
	if hidden(n) {
		w.collectLinks(n)
		return
	}

	switch n.DataAtom {
	case atom.A:
		w.addLink(n)
	case atom.Img:
		w.addImage(n)
		return
	case atom.Br:
		w.pending.WriteByte(' ')
		return
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.flush()
		var buf strings.Builder
		w.inBlock = true
		w.inlineText(n, &buf)
		w.inBlock = false
		if text := normalizeSpace(buf.String()); text != "" {
			w.blocks = append(w.blocks, &dumpit.Heading{Level: headingLevel(n.DataAtom), Text: text})
		}
		w.flushImages()
		return
	case atom.Ul, atom.Ol:
		w.flush()
		w.inBlock = true
		w.list(n)
		w.inBlock = false
		w.flushImages()
		return
	case atom.Form:
		w.flush()
		w.blocks = append(w.blocks, w.form(n))
		w.collectLinks(n)
		w.collectImages(n)
		return
	case atom.Select, atom.Textarea, atom.Input, atom.Button:
		// Controls outside a form carry no readable content.
		return
	}

	if blockLevel(n.DataAtom) {
		w.flush()
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.visit(c)
		}
		w.flush()
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}
}

// flush emits the pending paragraph, if any, followed by deferred images.
func (w *walker) flush() {
	text := normalizeSpace(w.pending.String())
	w.pending.Reset()
	if text != "" {
		w.blocks = append(w.blocks, &dumpit.Paragraph{Text: text})
	}
	w.flushImages()
}

func (w *walker) flushImages() {
	w.blocks = append(w.blocks, w.deferred...)
	w.deferred = w.deferred[:0]
}

// inlineText appends the visible text under n to buf, treating every
// descendant as inline. Nested block elements are separated by spaces.
// Links, images and forms found on the way are still recorded; forms are
// deferred as blocks of their own and contribute no text.
func (w *walker) inlineText(n *html.Node, buf *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			buf.WriteString(c.Data)
			continue
		case html.ElementNode:
		default:
			continue
		}
		if skipped(c) {
			continue
		}
		if hidden(c) {
			w.collectLinks(c)
			continue
		}
		switch c.DataAtom {
		case atom.A:
			w.addLink(c)
		case atom.Img:
			w.addImage(c)
			continue
		case atom.Br:
			buf.WriteByte(' ')
			continue
		case atom.Form:
			buf.WriteByte(' ')
			w.deferred = append(w.deferred, w.form(c))
			w.collectLinks(c)
			w.collectImages(c)
			continue
		case atom.Select, atom.Textarea, atom.Input, atom.Button:
			continue
		}
		sep := blockLevel(c.DataAtom) || c.DataAtom == atom.Ul || c.DataAtom == atom.Ol
		if sep {
			buf.WriteByte(' ')
		}
		w.inlineText(c, buf)
		if sep {
			buf.WriteByte(' ')
		}
	}
}

// list emits a List block built from the direct li children of n.
func (w *walker) list(n *html.Node) {
	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom != atom.Li || skipped(c) || hidden(c) {
			w.collectLinks(c)
			continue
		}
		var buf strings.Builder
		w.inlineText(c, &buf)
		if text := normalizeSpace(buf.String()); text != "" {
			items = append(items, text)
		}
	}
	if len(items) > 0 {
		w.blocks = append(w.blocks, &dumpit.List{Items: items})
	}
}

// form builds a Form block from n and its descendant controls.
func (w *walker) form(n *html.Node) *dumpit.Form {
	sel := goquery.NewDocumentFromNode(n).Selection

	action := strings.TrimSpace(attr(n, "action"))
	if action == "" {
		action = w.pageURL
	} else if ref, err := w.base.Parse(action); err == nil {
		ref.Fragment = ""
		action = ref.String()
	}

	method := strings.ToUpper(strings.TrimSpace(attr(n, "method")))
	if method == "" {
		method = "GET"
	}

	f := &dumpit.Form{Action: action, Method: method, Fields: []dumpit.FormField{}}

	sel.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		field, ok := w.field(s.Nodes[0])
		if ok {
			f.Fields = append(f.Fields, field)
		}
	})

	sel.Find("button, input").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text, ok := submitText(s.Nodes[0])
		if ok {
			f.SubmitText = text
		}
		return !ok
	})

	return f
}

// field describes a single form control. Controls that are not data
// entry fields report false.
func (w *walker) field(n *html.Node) (dumpit.FormField, bool) {
	var fieldType string
	switch n.DataAtom {
	case atom.Select:
		fieldType = "select"
	case atom.Textarea:
		fieldType = "textarea"
	default:
		fieldType = strings.ToLower(strings.TrimSpace(attr(n, "type")))
		if fieldType == "" {
			fieldType = "text"
		}
	}
	switch fieldType {
	case "hidden", "submit", "button", "reset", "image":
		return dumpit.FormField{}, false
	}

	field := dumpit.FormField{
		FieldType:   fieldType,
		Name:        attr(n, "name"),
		Label:       w.fieldLabel(n),
		Placeholder: attr(n, "placeholder"),
		Required:    hasAttr(n, "required"),
		Options:     []string{},
	}
	if n.DataAtom == atom.Select {
		goquery.NewDocumentFromNode(n).Find("option").Each(func(_ int, s *goquery.Selection) {
			if text := normalizeSpace(s.Text()); text != "" {
				field.Options = append(field.Options, text)
			}
		})
	}
	return field, true
}

// fieldLabel resolves a control's label from label[for=id], then from an
// enclosing label element.
func (w *walker) fieldLabel(n *html.Node) string {
	if id := strings.TrimSpace(attr(n, "id")); id != "" {
		if label, ok := w.labels[id]; ok && label != "" {
			return label
		}
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if p.DataAtom == atom.Label {
			return labelText(p)
		}
		if p.DataAtom == atom.Form {
			break
		}
	}
	return ""
}

// submitText reports the caption of n if it is a submit control.
func submitText(n *html.Node) (string, bool) {
	typ := strings.ToLower(strings.TrimSpace(attr(n, "type")))
	switch n.DataAtom {
	case atom.Input:
		if typ != "submit" {
			return "", false
		}
		if v, ok := attrOK(n, "value"); ok {
			return normalizeSpace(v), true
		}
		return "Submit", true
	case atom.Button:
		if typ != "" && typ != "submit" {
			return "", false
		}
		text := normalizeSpace(goquery.NewDocumentFromNode(n).Text())
		if text == "" {
			text = normalizeSpace(attr(n, "value"))
		}
		return text, true
	}
	return "", false
}

// labelText returns the text of a label element, leaving out the text of
// any controls it wraps.
func labelText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				buf.WriteString(c.Data)
			case html.ElementNode:
				switch c.DataAtom {
				case atom.Input, atom.Select, atom.Textarea, atom.Button, atom.Option:
					continue
				}
				if skipped(c) {
					continue
				}
				walk(c)
				buf.WriteByte(' ')
			}
		}
	}
	walk(n)
	return normalizeSpace(buf.String())
}

// addLink records the absolute http(s) target of an anchor.
func (w *walker) addLink(n *html.Node) {
	href, ok := attrOK(n, "href")
	if !ok {
		return
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return
	}
	u, err := w.base.Parse(href)
	if err != nil {
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return
	}
	u.Fragment = ""
	u.RawFragment = ""
	link := u.String()
	if w.seenLinks[link] {
		return
	}
	w.seenLinks[link] = true
	w.links = append(w.links, link)
}

// collectLinks records every anchor under n without producing blocks.
func (w *walker) collectLinks(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		w.addLink(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.collectLinks(c)
	}
}

// collectImages places an Image block for every visible img under n.
func (w *walker) collectImages(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || skipped(c) || hidden(c) {
			continue
		}
		if c.DataAtom == atom.Img {
			w.addImage(c)
			continue
		}
		w.collectImages(c)
	}
}

// addImage places an Image block for n, deferring it behind pending text
// or the heading or list being built.
// Repeats of an image already seen on the page are dropped.
func (w *walker) addImage(n *html.Node) {
	img := w.image(n)
	if img == nil {
		return
	}
	if w.seenImages[img.OriginalURL] {
		return
	}
	w.seenImages[img.OriginalURL] = true

	if w.inBlock || strings.TrimSpace(w.pending.String()) != "" {
		w.deferred = append(w.deferred, img)
		return
	}
	w.flushImages()
	w.blocks = append(w.blocks, img)
}

// image returns an Image block with candidate sources in preference order:
// src, data-src, then the first srcset entry.
func (w *walker) image(n *html.Node) *dumpit.Image {
	if zeroSize(attr(n, "width")) || zeroSize(attr(n, "height")) {
		return nil
	}

	var raw []string
	if v := strings.TrimSpace(attr(n, "src")); v != "" {
		raw = append(raw, v)
	}
	if v := strings.TrimSpace(attr(n, "data-src")); v != "" {
		raw = append(raw, v)
	}
	if v := firstSrcset(attr(n, "srcset")); v != "" {
		raw = append(raw, v)
	}

	var sources []string
	seen := make(map[string]bool)
	for _, r := range raw {
		src := r
		if !strings.HasPrefix(strings.ToLower(r), "data:") {
			u, err := w.base.Parse(r)
			if err != nil {
				continue
			}
			u.Fragment = ""
			src = u.String()
		}
		if seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil
	}

	return &dumpit.Image{
		OriginalURL: sources[0],
		AltText:     normalizeSpace(attr(n, "alt")),
		Sources:     sources,
		Width:       dimension(attr(n, "width")),
		Height:      dimension(attr(n, "height")),
	}
}

// firstSrcset returns the URL of the first candidate in a srcset value.
func firstSrcset(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// dimension parses a width or height attribute, returning 0 when absent or
// not a plain pixel count.
func dimension(v string) int {
	v = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(v)), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// zeroSize reports an explicit dimension of zero pixels.
func zeroSize(v string) bool {
	v = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(v)), "px")
	n, err := strconv.Atoi(v)
	return err == nil && n == 0
}

// skipped reports elements that never carry readable content.
func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Iframe, atom.Svg, atom.Head, atom.Object:
		return true
	}
	return n.Data == "svg"
}

// hidden reports elements the page hides from readers.
func hidden(n *html.Node) bool {
	if hasAttr(n, "hidden") {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(attr(n, "aria-hidden")), "true") {
		return true
	}
	style := strings.ToLower(strings.Join(strings.Fields(attr(n, "style")), ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func blockLevel(a atom.Atom) bool {
	switch a {
	case atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Body,
		atom.Caption, atom.Dd, atom.Details, atom.Dialog, atom.Div, atom.Dl,
		atom.Dt, atom.Fieldset, atom.Figcaption, atom.Figure, atom.Footer,
		atom.Header, atom.Hr, atom.Li, atom.Main, atom.Nav, atom.P, atom.Pre,
		atom.Section, atom.Summary, atom.Table, atom.Tbody, atom.Td,
		atom.Tfoot, atom.Th, atom.Thead, atom.Tr, atom.Legend, atom.Label:
		return true
	}
	return false
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	}
	return 6
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attrOK(n, key)
	return ok
}

// normalizeSpace collapses whitespace runs to single spaces and trims the ends.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
