package io

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Import formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "md"
	FormatText     = "txt"
	FormatJSON     = "json"
	FormatPDF      = "pdf"
)

// Importer converts external content into document trees.
type Importer struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
	sanitize bool
	logger   *zap.SugaredLogger
}

// NewImporter creates a new Importer. With sanitize set, HTML input is run
// through the import policy before it is parsed.
func NewImporter(sanitize bool, logger *zap.SugaredLogger) *Importer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Importer{
		policy:   importPolicy(),
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		sanitize: sanitize,
		logger:   logger,
	}
}

var (
	colorRegexp = regexp.MustCompile(`^(#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|rgba?\(\s*\d+\s*,\s*\d+\s*,\s*\d+\s*(,\s*[\d.]+\s*)?\)|[a-zA-Z]+)$`)
	sizeRegexp  = regexp.MustCompile(`^\d+(\.\d+)?(px|em|rem|pt|%)?$`)
)

func importPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	policy.SkipElementsContent("title")
	policy.AllowElements("del", "ins")
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^page-break$`)).OnElements("hr")
	policy.AllowAttrs("data-caption", "width", "height").OnElements("img")
	policy.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	policy.AllowAttrs("type").Matching(regexp.MustCompile(`^[1aAiI]$`)).OnElements("ol")
	policy.AllowAttrs("data-nest-level").Matching(bluemonday.Integer).OnElements("ul", "ol")
	policy.AllowAttrs("align").Matching(bluemonday.CellAlign).OnElements("td", "th", "p")
	policy.AllowStyles("margin-left").Matching(sizeRegexp).OnElements("p", "h1", "h2", "h3", "h4", "h5", "h6")
	policy.AllowStyles("text-align").Matching(bluemonday.CellAlign).Globally()
	policy.AllowStyles("color", "background-color").Matching(colorRegexp).Globally()
	return policy
}

// Import dispatches content to the converter for format.
func (i *Importer) Import(format string, content []byte) (*DocumentExport, error) {
	switch strings.ToLower(format) {
	case FormatHTML, "htm":
		root, err := i.FromHTML(string(content))
		if err != nil {
			return nil, err
		}
		return &DocumentExport{Doc: root}, nil
	case FormatMarkdown, "markdown":
		root, err := i.FromMarkdown(content)
		if err != nil {
			return nil, err
		}
		return &DocumentExport{Doc: root}, nil
	case FormatText, "text":
		return &DocumentExport{Doc: i.FromText(string(content))}, nil
	case FormatJSON:
		return i.FromJSON(content)
	case FormatPDF:
		return i.FromPDF(content)
	}
	return nil, exception.NewImportError(format, "unsupported import format "+strconv.Quote(format), nil)
}

// FromJSON reads a document previously written by ExportJSON.
func (i *Importer) FromJSON(content []byte) (*DocumentExport, error) {
	var export DocumentExport
	if err := json.Unmarshal(content, &export); err != nil {
		return nil, exception.NewImportError(FormatJSON, "invalid document JSON", err)
	}
	if export.Doc == nil {
		return nil, exception.NewImportError(FormatJSON, "document JSON has no doc", nil)
	}
	doc.Normalize(export.Doc)
	if err := doc.Check(export.Doc); err != nil {
		return nil, exception.NewImportError(FormatJSON, "document JSON is not a valid tree", err)
	}
	return &export, nil
}

// FromPDF reads the document.json attachment of a PDF written by ExportPDF.
// PDFs from other sources carry no attachment and are rejected.
func (i *Importer) FromPDF(content []byte) (*DocumentExport, error) {
	if !bytes.HasPrefix(content, []byte("%PDF")) {
		return nil, exception.NewImportError(FormatPDF, "invalid PDF file", nil)
	}

	tempDir, err := os.MkdirTemp("", "etherdoc-import-*")
	if err != nil {
		return nil, exception.NewImportError(FormatPDF, "could not create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	inputPath := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(inputPath, content, 0644); err != nil {
		return nil, exception.NewImportError(FormatPDF, "could not write pdf temp file", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractAttachmentsFile(inputPath, tempDir, []string{pdfAttachmentName}, conf); err != nil {
		i.logger.Debugf("extracting pdf attachment failed: %v", err)
		return nil, exception.NewImportError(FormatPDF, "PDF has no document attachment", err)
	}
	data, err := os.ReadFile(filepath.Join(tempDir, pdfAttachmentName))
	if err != nil {
		return nil, exception.NewImportError(FormatPDF, "PDF has no document attachment", err)
	}
	return i.FromJSON(data)
}

// FromMarkdown renders GFM markdown to HTML and imports the result.
func (i *Importer) FromMarkdown(content []byte) (*doc.Node, error) {
	var buf bytes.Buffer
	if err := i.markdown.Convert(content, &buf); err != nil {
		return nil, exception.NewImportError(FormatMarkdown, "error parsing markdown", err)
	}
	return i.FromHTML(buf.String())
}

// FromText imports plain text, one paragraph per line.
func (i *Importer) FromText(text string) *doc.Node {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	var blocks []*doc.Node
	for _, line := range strings.Split(text, "\n") {
		blocks = append(blocks, doc.NewParagraph(strings.ReplaceAll(line, "\t", "    ")))
	}
	return doc.NewDocument(blocks...)
}

// FromHTML parses HTML into a normalized tree. Marks come from inline
// elements, blocks from p, headings, lists, tables, hr and br.
func (i *Importer) FromHTML(htmlContent string) (*doc.Node, error) {
	if i.sanitize {
		htmlContent = i.policy.Sanitize(htmlContent)
	}
	parsed, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, exception.NewImportError(FormatHTML, "error parsing HTML", err)
	}

	w := newBlockWriter(doc.TypeParagraph, nil)
	i.walk(parsed, w, nil)
	root := doc.NewDocument(w.finish()...)
	doc.Normalize(root)
	if err := doc.Check(root); err != nil {
		return nil, exception.NewImportError(FormatHTML, "imported HTML is not a valid document", err)
	}
	return root, nil
}

// blockWriter collects the blocks of one container. Loose inline content
// goes into an implicit textblock built from kind and attrs.
type blockWriter struct {
	kind    doc.NodeType
	attrs   map[string]string
	out     []*doc.Node
	current *doc.Node
}

func newBlockWriter(kind doc.NodeType, attrs map[string]string) *blockWriter {
	return &blockWriter{kind: kind, attrs: attrs}
}

func (w *blockWriter) textblock() *doc.Node {
	if w.current == nil {
		w.current = doc.NewNode(w.kind, w.attrs)
		w.out = append(w.out, w.current)
	}
	return w.current
}

func (w *blockWriter) inline(n *doc.Node) {
	tb := w.textblock()
	tb.Content = append(tb.Content, n)
}

// text appends collapsed text. Leading spaces of a textblock are dropped.
func (w *blockWriter) text(s string, marks []doc.Mark) {
	s = whitespace.ReplaceAllString(s, " ")
	if w.current == nil || w.current.ContentSize() == 0 {
		s = strings.TrimLeft(s, " ")
	}
	if s == "" {
		return
	}
	if doc.HasMark(marks, doc.Link("")) {
		w.inline(doc.NewText(s, marks...))
		return
	}
	last := 0
	for _, u := range findURLs(s) {
		if u.start > last {
			w.inline(doc.NewText(s[last:u.start], marks...))
		}
		href := u.url
		if !strings.Contains(href, "://") && !strings.HasPrefix(href, "mailto:") {
			href = "http://" + href
		}
		w.inline(doc.NewText(u.url, append(doc.SortMarks(marks), doc.Link(href))...))
		last = u.start + len(u.url)
	}
	if last < len(s) {
		w.inline(doc.NewText(s[last:], marks...))
	}
}

// lineBreak ends the current textblock. A break with no open textblock
// stands for an empty line.
func (w *blockWriter) lineBreak() {
	if w.current == nil {
		w.textblock()
	}
	w.current = nil
}

func (w *blockWriter) block(nodes ...*doc.Node) {
	w.current = nil
	w.out = append(w.out, nodes...)
}

// finish trims trailing spaces and turns preserved spaces back into plain
// ones.
func (w *blockWriter) finish() []*doc.Node {
	for _, n := range w.out {
		if !n.Type.IsTextblock() {
			continue
		}
		for j := len(n.Content) - 1; j >= 0; j-- {
			run := n.Content[j]
			if run.Type != doc.TypeTextRun {
				break
			}
			run.Text = strings.TrimRight(run.Text, " ")
			if run.Text != "" {
				break
			}
		}
		for _, run := range n.Content {
			if run.Type == doc.TypeTextRun {
				run.Text = strings.ReplaceAll(run.Text, "\u00a0", " ")
			}
		}
	}
	return w.out
}

var whitespace = regexp.MustCompile(`[ \t\r\n\f]+`)

func (i *Importer) walk(n *html.Node, w *blockWriter, marks []doc.Mark) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		i.node(c, w, marks)
	}
}

func (i *Importer) node(n *html.Node, w *blockWriter, marks []doc.Mark) {
	if n.Type == html.TextNode {
		w.text(n.Data, marks)
		return
	}
	if n.Type != html.ElementNode {
		i.walk(n, w, marks)
		return
	}

	switch n.Data {
	case "script", "style", "head", "title", "template", "input", "button":
		return
	case "strong", "b":
		i.walk(n, w, doc.AddMark(marks, doc.Bold()))
	case "em", "i":
		i.walk(n, w, doc.AddMark(marks, doc.Italic()))
	case "u", "ins":
		i.walk(n, w, doc.AddMark(marks, doc.Underline()))
	case "s", "strike", "del":
		i.walk(n, w, doc.AddMark(marks, doc.Mark{Type: doc.MarkStrike}))
	case "a":
		if href := attr(n, "href"); href != "" {
			i.walk(n, w, doc.AddMark(marks, doc.Link(href)))
		} else {
			i.walk(n, w, marks)
		}
	case "span", "font":
		if color := styleOf(n)["color"]; color != "" {
			marks = doc.AddMark(marks, doc.Color(color))
		}
		i.walk(n, w, marks)
	case "br":
		w.lineBreak()
	case "img":
		if src := attr(n, "src"); src != "" {
			image := doc.NewImage(src, attr(n, "alt"), attr(n, "data-caption"))
			if v, err := strconv.Atoi(attr(n, "width")); err == nil && v > 0 {
				image.SetAttr(doc.AttrWidth, strconv.Itoa(v))
			}
			if v, err := strconv.Atoi(attr(n, "height")); err == nil && v > 0 {
				image.SetAttr(doc.AttrHeight, strconv.Itoa(v))
			}
			w.inline(image)
		}
	case "hr":
		w.block(doc.NewNode(doc.TypePageBreak, nil))
	case "p":
		w.block(i.textblocks(n, doc.TypeParagraph, paragraphAttrs(n), marks)...)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		attrs := paragraphAttrs(n)
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrs[doc.AttrLevel] = n.Data[1:]
		w.block(i.textblocks(n, doc.TypeHeading, attrs, marks)...)
	case "ul", "ol":
		if list := i.list(n, marks); list != nil {
			w.block(list)
		}
	case "li":
		// stray item outside a list
		w.block(i.textblocks(n, doc.TypeParagraph, nil, marks)...)
	case "table":
		if table := i.table(n, marks); table != nil {
			w.block(table)
		}
	case "div", "section", "article", "header", "footer", "main", "nav", "aside",
		"blockquote", "pre", "figure", "figcaption", "dl", "dt", "dd", "address":
		inner := newBlockWriter(doc.TypeParagraph, nil)
		i.walk(n, inner, marks)
		w.block(inner.finish()...)
	default:
		i.walk(n, w, marks)
	}
}

// textblocks converts a paragraph-like element. An empty element still
// yields one empty textblock.
func (i *Importer) textblocks(n *html.Node, kind doc.NodeType, attrs map[string]string, marks []doc.Mark) []*doc.Node {
	inner := newBlockWriter(kind, attrs)
	i.walk(n, inner, marks)
	blocks := inner.finish()
	if len(blocks) == 0 {
		blocks = append(blocks, doc.NewNode(kind, attrs))
	}
	return blocks
}

func (i *Importer) list(n *html.Node, marks []doc.Mark) *doc.Node {
	kind := doc.TypeBulletList
	var attrs map[string]string
	if n.Data == "ol" {
		kind = doc.TypeOrderedList
		if start, err := strconv.Atoi(attr(n, "start")); err == nil && start > 1 {
			attrs = map[string]string{doc.AttrStart: strconv.Itoa(start)}
		}
	}
	list := doc.NewNode(kind, attrs)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") && len(list.Content) > 0 {
			// nested list written as a sibling of its item
			if nested := i.list(c, marks); nested != nil {
				last := list.Content[len(list.Content)-1]
				last.Content = append(last.Content, nested)
			}
			continue
		}
		inner := newBlockWriter(doc.TypeParagraph, nil)
		if c.Type == html.ElementNode && c.Data == "li" {
			i.walk(c, inner, marks)
		} else {
			i.node(c, inner, marks)
		}
		list.Content = append(list.Content, i.listItem(inner.finish()))
	}
	if len(list.Content) == 0 {
		return nil
	}
	return list
}

// listItem keeps the blocks a list item may hold and makes sure it starts
// with a textblock.
func (i *Importer) listItem(blocks []*doc.Node) *doc.Node {
	item := doc.NewNode(doc.TypeListItem, nil)
	for _, b := range blocks {
		if b.Type.IsTextblock() || b.Type.IsList() {
			item.Content = append(item.Content, b)
			continue
		}
		i.logger.Debugw("dropping block inside list item", "type", b.Type)
	}
	if len(item.Content) == 0 || !item.Content[0].Type.IsTextblock() {
		item.Content = append([]*doc.Node{doc.NewParagraph("")}, item.Content...)
	}
	return item
}

func (i *Importer) table(n *html.Node, marks []doc.Mark) *doc.Node {
	table := doc.NewNode(doc.TypeTable, nil)
	var rows func(n *html.Node)
	rows = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "thead", "tbody", "tfoot":
				rows(c)
			case "tr":
				if row := i.tableRow(c, marks); row != nil {
					table.Content = append(table.Content, row)
				}
			}
		}
	}
	rows(n)
	if len(table.Content) == 0 {
		return nil
	}
	return table
}

func (i *Importer) tableRow(n *html.Node, marks []doc.Mark) *doc.Node {
	row := doc.NewNode(doc.TypeTableRow, nil)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		cellMarks := marks
		if c.Data == "th" {
			cellMarks = doc.AddMark(marks, doc.Bold())
		}
		inner := newBlockWriter(doc.TypeParagraph, nil)
		i.walk(c, inner, cellMarks)
		cell := doc.NewNode(doc.TypeTableCell, cellAttrs(c), inner.finish()...)
		if len(cell.Content) == 0 {
			cell.Content = []*doc.Node{doc.NewParagraph("")}
		}
		row.Content = append(row.Content, cell)
	}
	if len(row.Content) == 0 {
		return nil
	}
	return row
}

func paragraphAttrs(n *html.Node) map[string]string {
	style := styleOf(n)
	attrs := map[string]string{}
	if v := style["margin-left"]; v != "" {
		attrs[doc.AttrMarginLeft] = v
	}
	if v := style["text-align"]; v != "" {
		attrs[doc.AttrTextAlign] = v
	} else if v := attr(n, "align"); v != "" {
		attrs[doc.AttrTextAlign] = v
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func cellAttrs(n *html.Node) map[string]string {
	attrs := paragraphAttrs(n)
	delete(attrs, doc.AttrMarginLeft)
	if v := styleOf(n)["background-color"]; v != "" {
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrs[doc.AttrBackground] = v
	}
	return attrs
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// styleOf parses the inline style attribute into lower case properties.
func styleOf(n *html.Node) map[string]string {
	style := map[string]string{}
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		key, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			style[key] = value
		}
	}
	return style
}
