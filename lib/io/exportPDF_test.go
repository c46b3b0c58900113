package io

import (
	"bytes"
	"testing"

	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfSample() *doc.Node {
	heading := doc.NewParagraph("Shopping")
	heading.Type = doc.TypeHeading
	heading.Attrs = map[string]string{doc.AttrLevel: "1"}
	centered := doc.NewParagraph("centered", doc.Color("#c00"), doc.Underline())
	centered.Attrs = map[string]string{doc.AttrTextAlign: "center"}

	return doc.NewDocument(
		heading,
		centered,
		doc.NewNode(doc.TypeOrderedList, nil,
			doc.NewNode(doc.TypeListItem, nil, doc.NewParagraph("milk")),
			doc.NewNode(doc.TypeListItem, nil,
				doc.NewParagraph("eggs"),
				doc.NewNode(doc.TypeOrderedList, nil,
					doc.NewNode(doc.TypeListItem, nil, doc.NewParagraph("brown")),
				),
			),
		),
		doc.NewNode(doc.TypePageBreak, nil),
		doc.NewParagraph("after the break", doc.Bold(), doc.Italic()),
	)
}

func TestGetPDF(t *testing.T) {
	h := hooks.NewHook()
	var seen []string
	h.EnqueueGetBlockPDFForExportHook(func(ctx *events.BlockPDFForExportContext) {
		seen = append(seen, *ctx.Text)
	})

	out, err := NewExportPDF(h).GetPDF("groceries", pdfSample(), nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, []string{"Shopping", "centered", "milk", "eggs", "brown", "after the break"}, seen)
}

func TestGetPDFRoundTrip(t *testing.T) {
	root := pdfSample()
	attachment, err := ExportJSON("groceries", 3, root, nil)
	require.NoError(t, err)

	out, err := NewExportPDF(hooks.NewHook()).GetPDF("groceries", root, attachment)
	require.NoError(t, err)

	imported, err := NewImporter(true, nil).Import(FormatPDF, out)
	require.NoError(t, err)
	assert.Equal(t, GetText(root), GetText(imported.Doc))
}

func TestFromPDFRejectsForeignFiles(t *testing.T) {
	importer := NewImporter(true, nil)

	_, err := importer.FromPDF([]byte("plain text"))
	assert.True(t, exception.IsImportError(err))

	plain, err := NewExportPDF(hooks.NewHook()).GetPDF("plain", doc.NewDocument(doc.NewParagraph("x")), nil)
	require.NoError(t, err)
	_, err = importer.FromPDF(plain)
	assert.True(t, exception.IsImportError(err))
}

func TestMarkerLabel(t *testing.T) {
	tests := []struct {
		listType doc.NodeType
		level    int
		n        int
		want     string
	}{
		{doc.TypeBulletList, 1, 1, "•"},
		{doc.TypeOrderedList, 1, 3, "3."},
		{doc.TypeOrderedList, 2, 1, "a."},
		{doc.TypeOrderedList, 2, 28, "ab."},
		{doc.TypeOrderedList, 3, 4, "iv."},
		{doc.TypeOrderedList, 3, 1994, "mcmxciv."},
		{doc.TypeOrderedList, 4, 2, "2."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, markerLabel(tt.listType, tt.level, tt.n))
	}
}

func TestBlockIndent(t *testing.T) {
	indent := func(v string) float64 {
		return blockIndent(doc.NewNode(doc.TypeParagraph, map[string]string{doc.AttrMarginLeft: v}))
	}
	assert.Equal(t, 0.0, indent(""))
	assert.Equal(t, 30.0, indent("40px"))
	assert.Equal(t, 30.0, indent("40"))
	assert.Equal(t, 12.0, indent("12pt"))
	assert.Equal(t, 24.0, indent("2em"))
	assert.Equal(t, 0.0, indent("wide"))
}

func TestParseHexColor(t *testing.T) {
	r, g, b, err := parseHexColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 128, 0}, []uint8{r, g, b})

	r, g, b, err = parseHexColor("c00")
	require.NoError(t, err)
	assert.Equal(t, []uint8{204, 0, 0}, []uint8{r, g, b})

	_, _, _, err = parseHexColor("red")
	assert.Error(t, err)
}
