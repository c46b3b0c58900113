package io

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/lists"
	"github.com/ether/etherdoc/lib/models/doc"
	"golang.org/x/net/html"
	"mvdan.cc/xurls/v2"
)

type ExportHtml struct {
	Hooks *hooks.Hook
}

func NewExportHtml(hooks *hooks.Hook) *ExportHtml {
	return &ExportHtml{
		Hooks: hooks,
	}
}

// Tags of the marks in canonical mark order. Link, comment and color marks
// carry attributes and are opened by openMark.
var markTags = map[doc.MarkType]string{
	doc.MarkLink:      "a",
	doc.MarkComment:   "span",
	doc.MarkBold:      "strong",
	doc.MarkItalic:    "em",
	doc.MarkUnderline: "u",
	doc.MarkStrike:    "s",
	doc.MarkColor:     "span",
}

var orderedListTypes = map[lists.Marker]string{
	lists.MarkerDecimal: "1",
	lists.MarkerAlpha:   "a",
	lists.MarkerRoman:   "i",
}

const documentTemplate = `<!doctype html>
<html lang="en">
<head>
<title>{{title}}</title>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, height=device-height, initial-scale=1, maximum-scale=1">
<style>
ol { padding-left: 1.5em; }
ul { padding-left: 1.5em; }
hr.page-break { page-break-after: always; border: 0; }
span.comment { background-color: #fff3b0; }
td { border: 1px solid #ccc; padding: 0.25em 0.5em; }
table { border-collapse: collapse; }
</style>
</head>
<body>
{{body}}
</body>
</html>
`

// GetDocumentHTML returns the full HTML document for a tree.
func (e *ExportHtml) GetDocumentHTML(documentID string, root *doc.Node) string {
	body := e.GetHTML(documentID, root)
	return strings.NewReplacer(
		"{{title}}", escapeHTMLContent(documentID),
		"{{body}}", body,
	).Replace(documentTemplate)
}

// GetHTML returns the HTML content of a tree without document wrapper.
func (e *ExportHtml) GetHTML(documentID string, root *doc.Node) string {
	pieces := make([]string, 0, len(root.Content)*4)
	pieces = e.blocksHTML(pieces, documentID, root.Content)
	return strings.Join(pieces, "")
}

func (e *ExportHtml) blocksHTML(pieces []string, documentID string, blocks []*doc.Node) []string {
	for _, block := range blocks {
		switch block.Type {
		case doc.TypeParagraph:
			pieces = append(pieces, "<p"+blockStyle(block)+">", e.textblockHTML(documentID, block), "</p>")
		case doc.TypeHeading:
			tag := "h" + strconv.Itoa(headingLevel(block))
			pieces = append(pieces, "<"+tag+blockStyle(block)+">", e.textblockHTML(documentID, block), "</"+tag+">")
		case doc.TypeBulletList, doc.TypeOrderedList:
			pieces = append(pieces, listOpenTag(block))
			for _, item := range block.Content {
				pieces = append(pieces, "<li>")
				pieces = e.blocksHTML(pieces, documentID, item.Content)
				pieces = append(pieces, "</li>")
			}
			if block.Type == doc.TypeOrderedList {
				pieces = append(pieces, "</ol>")
			} else {
				pieces = append(pieces, "</ul>")
			}
		case doc.TypeTable:
			pieces = append(pieces, "<table><tbody>")
			for _, row := range block.Content {
				pieces = append(pieces, "<tr>")
				for _, cell := range row.Content {
					pieces = append(pieces, "<td"+cellStyle(cell)+">")
					pieces = e.blocksHTML(pieces, documentID, cell.Content)
					pieces = append(pieces, "</td>")
				}
				pieces = append(pieces, "</tr>")
			}
			pieces = append(pieces, "</tbody></table>")
		case doc.TypePageBreak:
			pieces = append(pieces, `<hr class="page-break">`)
		}
	}
	return pieces
}

func listOpenTag(list *doc.Node) string {
	level := list.IntAttr(doc.AttrNestLevel)
	if level < 1 {
		level = 1
	}
	nest := ` data-nest-level="` + strconv.Itoa(level) + `"`
	if list.Type != doc.TypeOrderedList {
		return "<ul" + nest + ">"
	}
	tag := `<ol type="` + orderedListTypes[lists.MarkerFor(list.Type, level)] + `"`
	if start := list.IntAttr(doc.AttrStart); start > 1 {
		tag += ` start="` + strconv.Itoa(start) + `"`
	}
	return tag + nest + ">"
}

func headingLevel(n *doc.Node) int {
	level := n.IntAttr(doc.AttrLevel)
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

func blockStyle(n *doc.Node) string {
	var styles []string
	if v := n.Attr(doc.AttrMarginLeft); v != "" {
		styles = append(styles, "margin-left: "+v)
	}
	if v := n.Attr(doc.AttrTextAlign); v != "" {
		styles = append(styles, "text-align: "+v)
	}
	return styleAttribute(styles)
}

func cellStyle(n *doc.Node) string {
	var styles []string
	if v := n.Attr(doc.AttrTextAlign); v != "" {
		styles = append(styles, "text-align: "+v)
	}
	if v := n.Attr(doc.AttrBackground); v != "" {
		styles = append(styles, "background-color: "+v)
	}
	return styleAttribute(styles)
}

func styleAttribute(styles []string) string {
	if len(styles) == 0 {
		return ""
	}
	return ` style="` + escapeHTMLAttribute(strings.Join(styles, "; ")) + `"`
}

// textblockHTML renders the inline content of a textblock and hands it to
// the getBlockHTMLForExport hooks.
func (e *ExportHtml) textblockHTML(documentID string, block *doc.Node) string {
	content := inlineHTML(block.Content)
	if content == "" {
		content = "<br>"
	}
	if e.Hooks == nil {
		return content
	}
	text := block.TextContent()
	hookContext := &events.BlockHTMLForExportContext{
		Block:        block,
		BlockContent: &content,
		Text:         &text,
		DocumentID:   &documentID,
	}
	e.Hooks.ExecuteGetBlockHtmlForExportHooks(hookContext)
	return *hookContext.BlockContent
}

// inlineHTML keeps marks shared by consecutive runs open, so a bold span
// crossing an italic one is written as a single strong element.
func inlineHTML(content []*doc.Node) string {
	var pieces []string
	var open []doc.Mark

	closeTo := func(n int) {
		for len(open) > n {
			pieces = append(pieces, "</"+markTags[open[len(open)-1].Type]+">")
			open = open[:len(open)-1]
		}
	}

	for _, node := range content {
		var marks []doc.Mark
		if node.Type == doc.TypeTextRun {
			marks = doc.SortMarks(node.Marks)
		}
		keep := 0
		for keep < len(open) && keep < len(marks) && open[keep].Equal(marks[keep]) {
			keep++
		}
		closeTo(keep)
		for _, m := range marks[keep:] {
			pieces = append(pieces, openMark(m))
			open = append(open, m)
		}

		switch node.Type {
		case doc.TypeTextRun:
			if doc.HasMark(marks, doc.Link("")) {
				pieces = append(pieces, escapeHTMLContent(encodeWhitespace(node.Text)))
			} else {
				pieces = append(pieces, autoLink(encodeWhitespace(node.Text)))
			}
		case doc.TypeImage:
			pieces = append(pieces, imageHTML(node))
		}
	}
	closeTo(0)
	return processSpaces(strings.Join(pieces, ""))
}

func openMark(m doc.Mark) string {
	switch m.Type {
	case doc.MarkLink:
		return `<a href="` + escapeHTMLAttribute(m.Attr("href")) + `" rel="noreferrer noopener">`
	case doc.MarkComment:
		return `<span class="comment" data-comment-id="` + escapeHTMLAttribute(m.Attr("id")) + `">`
	case doc.MarkColor:
		return `<span style="color: ` + escapeHTMLAttribute(m.Attr("value")) + `">`
	}
	return "<" + markTags[m.Type] + ">"
}

func imageHTML(n *doc.Node) string {
	tag := `<img src="` + escapeHTMLAttribute(n.Attr(doc.AttrSrc)) + `"`
	if v := n.Attr(doc.AttrAlt); v != "" {
		tag += ` alt="` + escapeHTMLAttribute(v) + `"`
	}
	if v := n.Attr(doc.AttrCaption); v != "" {
		tag += ` data-caption="` + escapeHTMLAttribute(v) + `"`
	}
	if v := n.Attr(doc.AttrWidth); v != "" {
		tag += ` width="` + escapeHTMLAttribute(v) + `"`
	}
	if v := n.Attr(doc.AttrHeight); v != "" {
		tag += ` height="` + escapeHTMLAttribute(v) + `"`
	}
	return tag + ">"
}

// autoLink escapes text and turns bare URLs into anchors.
func autoLink(text string) string {
	urls := findURLs(text)
	if len(urls) == 0 {
		return escapeHTMLContent(text)
	}
	var sb strings.Builder
	last := 0
	for _, u := range urls {
		sb.WriteString(escapeHTMLContent(text[last:u.start]))
		href := u.url
		if !strings.Contains(href, "://") && !strings.HasPrefix(href, "mailto:") {
			href = "http://" + href
		}
		sb.WriteString(`<a href="` + escapeHTMLAttribute(href) + `" rel="noreferrer noopener">`)
		sb.WriteString(escapeHTMLContent(u.url))
		sb.WriteString("</a>")
		last = u.start + len(u.url)
	}
	sb.WriteString(escapeHTMLContent(text[last:]))
	return sb.String()
}

type urlMatch struct {
	start int
	url   string
}

var urlPattern = xurls.Relaxed()

// findURLs finds URLs with a scheme or a www. prefix in text. Offsets are
// byte offsets.
func findURLs(text string) []urlMatch {
	var urls []urlMatch
	for _, match := range urlPattern.FindAllStringIndex(text, -1) {
		url := strings.TrimRight(text[match[0]:match[1]], ".,;:!?")
		if !strings.Contains(url, "://") && !strings.HasPrefix(strings.ToLower(url), "www.") {
			continue
		}
		urls = append(urls, urlMatch{start: match[0], url: url})
	}
	return urls
}

func escapeHTMLContent(s string) string {
	return html.EscapeString(s)
}

// escapeHTMLAttribute escapes an HTML attribute value. EscapeString already
// covers both quote characters.
func escapeHTMLAttribute(s string) string {
	return html.EscapeString(s)
}

// encodeWhitespace encodes whitespace for proper HTML display
func encodeWhitespace(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

var spacesPattern = regexp.MustCompile(`<[^>]*>?| |[^ <]+`)

// processSpaces keeps runs of spaces and spaces at the edges of a block
// visible by turning them into &nbsp;.
func processSpaces(s string) string {
	if !strings.Contains(s, " ") {
		return s
	}

	parts := spacesPattern.FindAllString(s, -1)
	if len(parts) == 0 {
		return s
	}

	endOfLine := true
	beforeSpace := false

	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		if p == " " {
			if endOfLine || beforeSpace {
				parts[i] = "&nbsp;"
			}
			endOfLine = false
			beforeSpace = true
		} else if len(p) > 0 && p[0] != '<' {
			endOfLine = false
			beforeSpace = false
		}
	}

	for i := 0; i < len(parts); i++ {
		p := parts[i]
		if p == " " {
			parts[i] = "&nbsp;"
			break
		} else if len(p) > 0 && p[0] != '<' {
			break
		}
	}

	return strings.Join(parts, "")
}
