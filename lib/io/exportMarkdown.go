package io

import (
	"strconv"
	"strings"

	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/doc"
)

type ExportMarkdown struct {
	Hooks *hooks.Hook
}

func NewExportMarkdown(hooksSystem *hooks.Hook) *ExportMarkdown {
	return &ExportMarkdown{
		Hooks: hooksSystem,
	}
}

// Marks without a markdown form (underline, color, comments) are dropped.
var markdownTags = map[doc.MarkType]string{
	doc.MarkBold:   "**",
	doc.MarkItalic: "*",
	doc.MarkStrike: "~~",
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	"|", `\|`,
)

// GetMarkdown renders a tree as GFM markdown.
func (em *ExportMarkdown) GetMarkdown(documentID string, root *doc.Node) string {
	pieces := em.blocksMarkdown(nil, documentID, root.Content)
	if len(pieces) == 0 {
		return ""
	}
	return strings.Join(pieces, "\n\n") + "\n"
}

func (em *ExportMarkdown) blocksMarkdown(pieces []string, documentID string, blocks []*doc.Node) []string {
	for _, block := range blocks {
		switch {
		case block.Type.IsTextblock():
			if line := em.textblockMarkdown(documentID, block); line != "" {
				pieces = append(pieces, line)
			}
		case block.Type.IsList():
			pieces = append(pieces, strings.Join(em.listMarkdown(documentID, block, 0), "\n"))
		case block.Type == doc.TypeTable:
			pieces = append(pieces, em.tableMarkdown(documentID, block))
		case block.Type == doc.TypePageBreak:
			pieces = append(pieces, "---")
		}
	}
	return pieces
}

func (em *ExportMarkdown) listMarkdown(documentID string, list *doc.Node, depth int) []string {
	var lines []string
	start := list.IntAttr(doc.AttrStart)
	if start < 1 {
		start = 1
	}
	prefix := spaces(depth * 4)
	for idx, item := range list.Content {
		marker := "* "
		if list.Type == doc.TypeOrderedList {
			marker = strconv.Itoa(start+idx) + ". "
		}
		first := true
		for _, child := range item.Content {
			switch {
			case child.Type.IsTextblock():
				line := em.textblockMarkdown(documentID, child)
				if first {
					lines = append(lines, prefix+marker+line)
					first = false
				} else if line != "" {
					lines = append(lines, prefix+spaces(4)+line)
				}
			case child.Type.IsList():
				lines = append(lines, em.listMarkdown(documentID, child, depth+1)...)
			}
		}
	}
	return lines
}

var markdownAlign = map[string]string{
	"left":   ":---",
	"center": ":---:",
	"right":  "---:",
}

// tableMarkdown writes a GFM table. The first row is the header; cells are
// flattened to one line.
func (em *ExportMarkdown) tableMarkdown(documentID string, table *doc.Node) string {
	var lines []string
	for r, row := range table.Content {
		cells := make([]string, 0, len(row.Content))
		for _, cell := range row.Content {
			var parts []string
			for _, tb := range cell.Content {
				if tb.Type.IsTextblock() {
					if line := em.textblockMarkdown(documentID, tb); line != "" {
						parts = append(parts, line)
					}
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if r == 0 {
			seps := make([]string, 0, len(row.Content))
			for _, cell := range row.Content {
				sep, ok := markdownAlign[cell.Attr(doc.AttrTextAlign)]
				if !ok {
					sep = "---"
				}
				seps = append(seps, sep)
			}
			lines = append(lines, "| "+strings.Join(seps, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n")
}

func (em *ExportMarkdown) textblockMarkdown(documentID string, block *doc.Node) string {
	content := inlineMarkdown(block.Content)
	if block.Type == doc.TypeHeading && content != "" {
		content = strings.Repeat("#", headingLevel(block)) + " " + content
	}
	if em.Hooks == nil {
		return content
	}
	text := block.TextContent()
	hookContext := &events.BlockMarkdownForExportContext{
		Block:        block,
		BlockContent: &content,
		Text:         &text,
		DocumentID:   &documentID,
	}
	em.Hooks.ExecuteGetBlockMarkdownForExportHooks(hookContext)
	return *hookContext.BlockContent
}

// inlineMarkdown mirrors inlineHTML: marks shared by consecutive runs stay
// open.
func inlineMarkdown(content []*doc.Node) string {
	var sb strings.Builder
	var open []doc.Mark

	closeTo := func(n int) {
		for len(open) > n {
			m := open[len(open)-1]
			if m.Type == doc.MarkLink {
				sb.WriteString("](" + m.Attr("href") + ")")
			} else {
				sb.WriteString(markdownTags[m.Type])
			}
			open = open[:len(open)-1]
		}
	}

	for _, node := range content {
		var marks []doc.Mark
		if node.Type == doc.TypeTextRun {
			for _, m := range doc.SortMarks(node.Marks) {
				if _, ok := markdownTags[m.Type]; ok || m.Type == doc.MarkLink {
					marks = append(marks, m)
				}
			}
		}
		keep := 0
		for keep < len(open) && keep < len(marks) && open[keep].Equal(marks[keep]) {
			keep++
		}
		closeTo(keep)
		for _, m := range marks[keep:] {
			if m.Type == doc.MarkLink {
				sb.WriteString("[")
			} else {
				sb.WriteString(markdownTags[m.Type])
			}
			open = append(open, m)
		}

		switch node.Type {
		case doc.TypeTextRun:
			if doc.HasMark(marks, doc.Link("")) {
				sb.WriteString(markdownEscaper.Replace(node.Text))
			} else {
				sb.WriteString(linkURLs(node.Text))
			}
		case doc.TypeImage:
			sb.WriteString(imageMarkdown(node))
		}
	}
	closeTo(0)
	return sb.String()
}

// linkURLs escapes text and writes bare URLs as links so escaping does not
// break them.
func linkURLs(text string) string {
	var sb strings.Builder
	last := 0
	for _, u := range findURLs(text) {
		sb.WriteString(markdownEscaper.Replace(text[last:u.start]))
		href := u.url
		if !strings.Contains(href, "://") && !strings.HasPrefix(href, "mailto:") {
			href = "http://" + href
		}
		sb.WriteString("[" + markdownEscaper.Replace(u.url) + "](" + href + ")")
		last = u.start + len(u.url)
	}
	sb.WriteString(markdownEscaper.Replace(text[last:]))
	return sb.String()
}

func imageMarkdown(n *doc.Node) string {
	out := "![" + markdownEscaper.Replace(n.Attr(doc.AttrAlt)) + "](" + n.Attr(doc.AttrSrc)
	if caption := n.Attr(doc.AttrCaption); caption != "" {
		out += ` "` + strings.ReplaceAll(caption, `"`, `\"`) + `"`
	}
	return out + ")"
}

func spaces(n int) string {
	return strings.Repeat(" ", n)
}
