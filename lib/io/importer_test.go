package io

import (
	"testing"

	"github.com/ether/etherdoc/lib/comments"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ignoreIDs = []cmp.Option{
	cmpopts.IgnoreFields(doc.Node{}, "ID"),
	cmpopts.EquateEmpty(),
}

func node(t doc.NodeType, attrs map[string]string, content ...*doc.Node) *doc.Node {
	return &doc.Node{Type: t, Attrs: attrs, Content: content}
}

func p(runs ...*doc.Node) *doc.Node {
	return node(doc.TypeParagraph, nil, runs...)
}

func text(s string, marks ...doc.Mark) *doc.Node {
	return doc.NewText(s, marks...)
}

func level(n string) map[string]string {
	return map[string]string{doc.AttrNestLevel: n}
}

func root(blocks ...*doc.Node) *doc.Node {
	return node(doc.TypeDocument, nil, blocks...)
}

func TestFromHTML(t *testing.T) {
	strike := doc.Mark{Type: doc.MarkStrike}
	testCases := []struct {
		name     string
		input    string
		expected *doc.Node
	}{
		{
			name:     "simple text",
			input:    "<html><body><p>Hello <strong>World</strong></p></body></html>",
			expected: root(p(text("Hello "), text("World", doc.Bold()))),
		},
		{
			name:     "empty input",
			input:    "",
			expected: root(p()),
		},
		{
			name:     "loose text becomes a paragraph",
			input:    "just text",
			expected: root(p(text("just text"))),
		},
		{
			name:     "break splits paragraphs",
			input:    "<p>a<br>b</p>",
			expected: root(p(text("a")), p(text("b"))),
		},
		{
			name:     "double break keeps an empty line",
			input:    "a<br><br>b",
			expected: root(p(text("a")), p(), p(text("b"))),
		},
		{
			name:     "whitespace is collapsed",
			input:    "<p>\n  a \n  b  </p>",
			expected: root(p(text("a b"))),
		},
		{
			name:     "non breaking spaces are kept",
			input:    "<p>a&nbsp;&nbsp;b&nbsp;</p>",
			expected: root(p(text("a  b "))),
		},
		{
			name:     "nested inline marks",
			input:    "<p><b>a<i>b</i></b><del>c</del><u>d</u></p>",
			expected: root(p(text("a", doc.Bold()), text("b", doc.Bold(), doc.Italic()), text("c", strike), text("d", doc.Underline()))),
		},
		{
			name:     "color span",
			input:    `<p><span style="color: #ff0000">red</span></p>`,
			expected: root(p(text("red", doc.Color("#ff0000")))),
		},
		{
			name:     "link",
			input:    `<p><a href="https://example.com/x">x</a></p>`,
			expected: root(p(text("x", doc.Link("https://example.com/x")))),
		},
		{
			name:     "bare URL is linked",
			input:    "<p>visit https://example.com now</p>",
			expected: root(p(text("visit "), text("https://example.com", doc.Link("https://example.com")), text(" now"))),
		},
		{
			name:  "heading",
			input: "<h3>Title</h3><p>Body</p>",
			expected: root(
				node(doc.TypeHeading, map[string]string{doc.AttrLevel: "3"}, text("Title")),
				p(text("Body")),
			),
		},
		{
			name:  "paragraph styles",
			input: `<p style="margin-left: 2em; text-align: center">x</p>`,
			expected: root(node(doc.TypeParagraph, map[string]string{
				doc.AttrMarginLeft: "2em",
				doc.AttrTextAlign:  "center",
			}, text("x"))),
		},
		{
			name:  "nested list",
			input: "<ul><li>one<ul><li>two</li></ul></li><li>three</li></ul>",
			expected: root(node(doc.TypeBulletList, level("1"),
				node(doc.TypeListItem, nil,
					p(text("one")),
					node(doc.TypeBulletList, level("2"), node(doc.TypeListItem, nil, p(text("two"))))),
				node(doc.TypeListItem, nil, p(text("three"))),
			)),
		},
		{
			name:  "ordered list start",
			input: `<ol start="3"><li><p>x</p></li></ol>`,
			expected: root(node(doc.TypeOrderedList, map[string]string{doc.AttrNestLevel: "1", doc.AttrStart: "3"},
				node(doc.TypeListItem, nil, p(text("x"))))),
		},
		{
			name:  "table",
			input: `<table><tr><th>H</th></tr><tr><td style="text-align: center; background-color: #eeeeee">x</td></tr></table>`,
			expected: root(node(doc.TypeTable, nil,
				node(doc.TypeTableRow, nil, node(doc.TypeTableCell, nil, p(text("H", doc.Bold())))),
				node(doc.TypeTableRow, nil, node(doc.TypeTableCell, map[string]string{
					doc.AttrTextAlign:  "center",
					doc.AttrBackground: "#eeeeee",
				}, p(text("x")))),
			)),
		},
		{
			name:     "page break",
			input:    `<p>a</p><hr class="page-break"><p>b</p>`,
			expected: root(p(text("a")), node(doc.TypePageBreak, nil), p(text("b"))),
		},
		{
			name:  "image",
			input: `<p><img src="https://example.com/a.png" alt="A" data-caption="Cap" width="10" height="20"></p>`,
			expected: root(p(&doc.Node{Type: doc.TypeImage, Attrs: map[string]string{
				doc.AttrSrc:     "https://example.com/a.png",
				doc.AttrAlt:     "A",
				doc.AttrCaption: "Cap",
				doc.AttrWidth:   "10",
				doc.AttrHeight:  "20",
			}})),
		},
		{
			name:     "script is dropped",
			input:    `<p>ok</p><script>alert(1)</script><img src="javascript:alert(1)">`,
			expected: root(p(text("ok"))),
		},
	}

	importer := NewImporter(true, nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := importer.FromHTML(tc.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected, result, ignoreIDs...); diff != "" {
				t.Errorf("FromHTML mismatch (-want +got):\n%s", diff)
			}
			require.NoError(t, doc.Check(result))
		})
	}
}

func TestFromHTMLAssignsUniqueIDs(t *testing.T) {
	result, err := NewImporter(false, nil).FromHTML("<ul><li>a</li><li>b</li></ul><p>c</p>")
	require.NoError(t, err)

	seen := map[string]bool{}
	result.Walk(func(n *doc.Node, _ []int) bool {
		if n.Type != doc.TypeTextRun {
			assert.NotEmpty(t, n.ID)
			assert.False(t, seen[n.ID], "duplicate id %s", n.ID)
			seen[n.ID] = true
		}
		return true
	})
}

func TestExportedHTMLImportsBack(t *testing.T) {
	cell := doc.NewNode(doc.TypeTableCell, map[string]string{doc.AttrTextAlign: "right"}, doc.NewParagraph("c"))
	heading := doc.NewParagraph("Title")
	heading.Type = doc.TypeHeading
	heading.SetAttr(doc.AttrLevel, "1")
	original := tree(
		heading,
		paragraph(doc.NewText("Hello "), doc.NewText("bold", doc.Bold()), doc.NewText(" and "), doc.NewText("both", doc.Bold(), doc.Italic())),
		listOf(doc.TypeBulletList,
			[]*doc.Node{doc.NewParagraph("one"), listOf(doc.TypeOrderedList, []*doc.Node{doc.NewParagraph("nested")})},
			[]*doc.Node{doc.NewParagraph("two")},
		),
		doc.NewNode(doc.TypeTable, nil, doc.NewNode(doc.TypeTableRow, nil, cell)),
		doc.NewParagraph("  spaced  out"),
	)

	exported := NewExportHtml(nil).GetDocumentHTML("doc", original)
	imported, err := NewImporter(true, nil).FromHTML(exported)
	require.NoError(t, err)

	if diff := cmp.Diff(original, imported, ignoreIDs...); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMarkdown(t *testing.T) {
	input := "# Title\n\nSome **bold** and ~~gone~~\n\n- a\n- b\n\n| A | B |\n|:-:|---|\n| 1 | 2 |\n"

	result, err := NewImporter(true, nil).FromMarkdown([]byte(input))
	require.NoError(t, err)

	expected := root(
		node(doc.TypeHeading, map[string]string{doc.AttrLevel: "1"}, text("Title")),
		p(text("Some "), text("bold", doc.Bold()), text(" and "), text("gone", doc.Mark{Type: doc.MarkStrike})),
		node(doc.TypeBulletList, level("1"),
			node(doc.TypeListItem, nil, p(text("a"))),
			node(doc.TypeListItem, nil, p(text("b"))),
		),
		node(doc.TypeTable, nil,
			node(doc.TypeTableRow, nil,
				node(doc.TypeTableCell, map[string]string{doc.AttrTextAlign: "center"}, p(text("A", doc.Bold()))),
				node(doc.TypeTableCell, nil, p(text("B", doc.Bold()))),
			),
			node(doc.TypeTableRow, nil,
				node(doc.TypeTableCell, map[string]string{doc.AttrTextAlign: "center"}, p(text("1"))),
				node(doc.TypeTableCell, nil, p(text("2"))),
			),
		),
	)
	if diff := cmp.Diff(expected, result, ignoreIDs...); diff != "" {
		t.Errorf("FromMarkdown mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMarkdownEscapesRawHTML(t *testing.T) {
	result, err := NewImporter(true, nil).FromMarkdown([]byte("<script>alert(1)</script>\n\ntext\n"))
	require.NoError(t, err)

	assert.Equal(t, "text", result.Content[len(result.Content)-1].TextContent())
	result.Walk(func(n *doc.Node, _ []int) bool {
		assert.NotContains(t, n.Text, "alert")
		return true
	})
}

func TestFromText(t *testing.T) {
	result := NewImporter(true, nil).FromText("first\r\n\tsecond\n\nlast\n")

	expected := root(p(text("first")), p(text("    second")), p(), p(text("last")))
	if diff := cmp.Diff(expected, result, ignoreIDs...); diff != "" {
		t.Errorf("FromText mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	original := tree(doc.NewParagraph("Hello world"), listOf(doc.TypeBulletList, []*doc.Node{doc.NewParagraph("x")}))
	records := []comments.Record{{
		ID:        "c-1",
		Author:    "ada",
		Content:   "nice",
		Timestamp: "2024-01-01T00:00:00.000Z",
		Text:      "world",
		From:      doc.Pos(6, 0),
		To:        doc.Pos(11, 0),
	}}

	data, err := ExportJSON("doc-1", 7, original, records)
	require.NoError(t, err)

	imported, err := NewImporter(true, nil).Import(FormatJSON, data)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", imported.ID)
	assert.Equal(t, 7, imported.Version)
	assert.True(t, original.Equal(imported.Doc), "tree differs after round trip")
	assert.Equal(t, records, imported.Comments)
	assert.NotNil(t, imported.ExportedAt)
}

func TestImportErrors(t *testing.T) {
	testCases := []struct {
		name    string
		format  string
		content string
	}{
		{name: "unknown format", format: "docx", content: "x"},
		{name: "broken json", format: FormatJSON, content: "{"},
		{name: "json without doc", format: FormatJSON, content: `{"id":"x"}`},
		{name: "json with invalid tree", format: FormatJSON, content: `{"doc":{"id":"r","type":"doc","content":[{"id":"l","type":"bulletList"}]}}`},
	}

	importer := NewImporter(true, nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := importer.Import(tc.format, []byte(tc.content))
			require.Error(t, err)
			assert.True(t, exception.IsImportError(err))
			assert.Equal(t, exception.CodeImportFailed, exception.CodeOf(err))
		})
	}
}
