package io

import (
	"strconv"
	"strings"

	"github.com/ether/etherdoc/lib/models/doc"
)

// GetText renders a tree as plain text. List items are prefixed with their
// marker, table cells are separated by tabs.
func GetText(root *doc.Node) string {
	lines := textLines(nil, root.Content, 0)
	return strings.Join(lines, "\n") + "\n"
}

func textLines(lines []string, blocks []*doc.Node, depth int) []string {
	for _, block := range blocks {
		switch {
		case block.Type.IsTextblock():
			lines = append(lines, blockText(block))
		case block.Type.IsList():
			start := block.IntAttr(doc.AttrStart)
			if start < 1 {
				start = 1
			}
			for idx, item := range block.Content {
				marker := "* "
				if block.Type == doc.TypeOrderedList {
					marker = strconv.Itoa(start+idx) + ". "
				}
				first := true
				for _, child := range item.Content {
					if child.Type.IsList() {
						lines = textLines(lines, []*doc.Node{child}, depth+1)
						continue
					}
					prefix := spaces(depth * 4)
					if first {
						prefix += marker
						first = false
					} else {
						prefix += spaces(len(marker))
					}
					lines = append(lines, prefix+blockText(child))
				}
			}
		case block.Type == doc.TypeTable:
			for _, row := range block.Content {
				cells := make([]string, 0, len(row.Content))
				for _, cell := range row.Content {
					var parts []string
					for _, tb := range cell.Content {
						if tb.Type.IsTextblock() {
							parts = append(parts, blockText(tb))
						}
					}
					cells = append(cells, strings.Join(parts, " "))
				}
				lines = append(lines, strings.Join(cells, "\t"))
			}
		case block.Type == doc.TypePageBreak:
			lines = append(lines, "")
		}
	}
	return lines
}

func blockText(block *doc.Node) string {
	return strings.ReplaceAll(block.TextContent(), string(doc.ObjectReplacement), "")
}
