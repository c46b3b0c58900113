package io

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/lists"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

type ExportPDF struct {
	Hooks *hooks.Hook
}

func NewExportPDF(hooks *hooks.Hook) *ExportPDF {
	return &ExportPDF{
		Hooks: hooks,
	}
}

const (
	pageWidth    = 595.28 // A4 width in points
	pageHeight   = 841.89 // A4 height in points
	marginLeft   = 40.0
	marginRight  = 40.0
	marginTop    = 40.0
	marginBottom = 40.0
	fontSize     = 12.0
	lineHeight   = 18.0
	listIndent   = 20.0

	fontRegular    = "Go"
	fontBold       = "Go-Bold"
	fontItalic     = "Go-Italic"
	fontBoldItalic = "Go-BoldItalic"

	// pdfAttachmentName is the file the JSON form of the document is stored
	// under inside exported PDFs.
	pdfAttachmentName = "document.json"
)

type headingStyle struct {
	fontSize     float64
	lineHeight   float64
	marginTop    float64
	marginBottom float64
}

var headingStyles = map[int]headingStyle{
	1: {fontSize: 28, lineHeight: 36, marginTop: 24, marginBottom: 12},
	2: {fontSize: 24, lineHeight: 32, marginTop: 20, marginBottom: 10},
	3: {fontSize: 20, lineHeight: 28, marginTop: 16, marginBottom: 8},
	4: {fontSize: 16, lineHeight: 24, marginTop: 12, marginBottom: 6},
	5: {fontSize: 14, lineHeight: 20, marginTop: 10, marginBottom: 4},
	6: {fontSize: 12, lineHeight: 18, marginTop: 8, marginBottom: 4},
}

type textSegment struct {
	text      string
	bold      bool
	italic    bool
	underline bool
	strike    bool
	color     string
}

func (s textSegment) sameStyle(o textSegment) bool {
	return s.bold == o.bold && s.italic == o.italic && s.underline == o.underline &&
		s.strike == o.strike && s.color == o.color
}

type pdfWriter struct {
	pdf        *gopdf.GoPdf
	hooks      *hooks.Hook
	documentID string
}

// GetPDF lays a tree out on A4 pages. A non-nil attachment is embedded as
// document.json so the PDF can be imported again without loss.
func (e *ExportPDF) GetPDF(documentID string, root *doc.Node, attachment []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := loadFonts(pdf); err != nil {
		return nil, err
	}

	w := &pdfWriter{pdf: pdf, hooks: e.Hooks, documentID: documentID}
	pdf.SetX(marginLeft)
	pdf.SetY(marginTop)
	if err := w.blocks(root.Content, 0); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, err
	}
	if attachment == nil {
		return buf.Bytes(), nil
	}
	return embedAttachment(buf.Bytes(), attachment)
}

func loadFonts(pdf *gopdf.GoPdf) error {
	fonts := []struct {
		name string
		data []byte
	}{
		{fontRegular, goregular.TTF},
		{fontBold, gobold.TTF},
		{fontItalic, goitalic.TTF},
		{fontBoldItalic, gobolditalic.TTF},
	}
	for _, f := range fonts {
		if err := pdf.AddTTFFontByReader(f.name, bytes.NewReader(f.data)); err != nil {
			return fmt.Errorf("failed to load font %s: %w", f.name, err)
		}
	}
	return nil
}

func embedAttachment(pdfContent []byte, attachment []byte) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "etherdoc-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("could not create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	jsonPath := filepath.Join(tempDir, pdfAttachmentName)
	if err := os.WriteFile(jsonPath, attachment, 0644); err != nil {
		return nil, fmt.Errorf("could not write json temp file: %w", err)
	}
	inputPdfPath := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(inputPdfPath, pdfContent, 0644); err != nil {
		return nil, fmt.Errorf("could not write pdf temp file: %w", err)
	}
	outputPdfPath := filepath.Join(tempDir, "output.pdf")

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.AddAttachmentsFile(inputPdfPath, outputPdfPath, []string{jsonPath}, false, conf); err != nil {
		return nil, fmt.Errorf("could not embed attachment: %w", err)
	}
	return os.ReadFile(outputPdfPath)
}

func (w *pdfWriter) blocks(blocks []*doc.Node, depth int) error {
	for _, block := range blocks {
		var err error
		switch {
		case block.Type.IsTextblock():
			err = w.textblock(block, marginLeft+blockIndent(block), "")
		case block.Type.IsList():
			err = w.list(block, depth)
		case block.Type == doc.TypeTable:
			err = w.table(block)
		case block.Type == doc.TypePageBreak:
			w.pdf.AddPage()
			w.pdf.SetX(marginLeft)
			w.pdf.SetY(marginTop)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *pdfWriter) list(list *doc.Node, depth int) error {
	start := list.IntAttr(doc.AttrStart)
	if start < 1 {
		start = 1
	}
	level := list.IntAttr(doc.AttrNestLevel)
	if level < 1 {
		level = depth + 1
	}
	left := marginLeft + float64(depth)*listIndent
	for idx, item := range list.Content {
		marker := markerLabel(list.Type, level, start+idx)
		first := true
		for _, child := range item.Content {
			if child.Type.IsList() {
				if err := w.list(child, depth+1); err != nil {
					return err
				}
				continue
			}
			prefix := ""
			if first {
				prefix = marker + " "
				first = false
			}
			if err := w.textblock(child, left, prefix); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *pdfWriter) table(table *doc.Node) error {
	for _, row := range table.Content {
		var segments []textSegment
		for idx, cell := range row.Content {
			if idx > 0 {
				segments = append(segments, textSegment{text: "  |  "})
			}
			for _, tb := range cell.Content {
				if tb.Type.IsTextblock() {
					segments = append(segments, segmentsOf(tb.Content)...)
				}
			}
		}
		if err := w.line(segments, marginLeft, "", fontSize, lineHeight); err != nil {
			return err
		}
	}
	return nil
}

func (w *pdfWriter) textblock(block *doc.Node, left float64, prefix string) error {
	text := blockText(block)
	alignment := block.Attr(doc.AttrTextAlign)
	heading := 0
	if block.Type == doc.TypeHeading {
		heading = headingLevel(block)
	}

	hookContext := &events.BlockPDFForExportContext{
		Block:      block,
		Text:       &text,
		DocumentID: &w.documentID,
		Alignment:  &alignment,
		Heading:    &heading,
	}
	w.hooks.ExecuteGetBlockPDFForExportHooks(hookContext)

	segments := segmentsOf(block.Content)
	if prefix != "" {
		segments = append([]textSegment{{text: prefix}}, segments...)
	}

	style, isHeading := headingStyles[heading]
	if !isHeading {
		return w.line(segments, left, alignment, fontSize, lineHeight)
	}
	for i := range segments {
		segments[i].bold = true
	}
	w.pdf.SetY(w.pdf.GetY() + style.marginTop)
	if err := w.line(segments, left, alignment, style.fontSize, style.lineHeight); err != nil {
		return err
	}
	w.pdf.SetY(w.pdf.GetY() + style.marginBottom)
	return nil
}

// line renders segments starting at left, wrapping at the right margin.
func (w *pdfWriter) line(segments []textSegment, left float64, alignment string, size, height float64) error {
	maxWidth := pageWidth - marginRight - left
	wrapped, err := w.wrap(segments, size, maxWidth)
	if err != nil {
		return err
	}
	if len(wrapped) == 0 {
		w.ensureSpace(height)
		w.pdf.Br(height)
		return nil
	}

	for _, l := range wrapped {
		w.ensureSpace(height)
		width, err := w.width(l, size)
		if err != nil {
			return err
		}
		switch alignment {
		case "center":
			w.pdf.SetX(left + (maxWidth-width)/2)
		case "right":
			w.pdf.SetX(left + maxWidth - width)
		default:
			w.pdf.SetX(left)
		}
		for _, seg := range l {
			if err := w.segment(seg, size); err != nil {
				return err
			}
		}
		w.pdf.Br(height)
	}
	w.pdf.SetX(marginLeft)
	return nil
}

func (w *pdfWriter) ensureSpace(height float64) {
	if w.pdf.GetY()+height > pageHeight-marginBottom {
		w.pdf.AddPage()
		w.pdf.SetX(marginLeft)
		w.pdf.SetY(marginTop)
	}
}

// wrap splits segments into lines no wider than maxWidth. Words wider than a
// whole line are kept on a line of their own.
func (w *pdfWriter) wrap(segments []textSegment, size, maxWidth float64) ([][]textSegment, error) {
	var lines [][]textSegment
	var current []textSegment
	currentWidth := 0.0

	for _, seg := range segments {
		for _, word := range strings.SplitAfter(seg.text, " ") {
			if word == "" {
				continue
			}
			if err := w.setFont(seg, size); err != nil {
				return nil, err
			}
			wordWidth, err := w.pdf.MeasureTextWidth(word)
			if err != nil {
				return nil, err
			}
			if currentWidth > 0 && currentWidth+wordWidth > maxWidth {
				lines = append(lines, current)
				current = nil
				currentWidth = 0
				if strings.TrimSpace(word) == "" {
					continue
				}
			}
			piece := seg
			piece.text = word
			if n := len(current); n > 0 && current[n-1].sameStyle(piece) {
				current[n-1].text += word
			} else {
				current = append(current, piece)
			}
			currentWidth += wordWidth
		}
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines, nil
}

func (w *pdfWriter) width(segments []textSegment, size float64) (float64, error) {
	total := 0.0
	for _, seg := range segments {
		if err := w.setFont(seg, size); err != nil {
			return 0, err
		}
		width, err := w.pdf.MeasureTextWidth(seg.text)
		if err != nil {
			return 0, err
		}
		total += width
	}
	return total, nil
}

func (w *pdfWriter) setFont(seg textSegment, size float64) error {
	family := fontRegular
	switch {
	case seg.bold && seg.italic:
		family = fontBoldItalic
	case seg.bold:
		family = fontBold
	case seg.italic:
		family = fontItalic
	}
	return w.pdf.SetFont(family, "", size)
}

func (w *pdfWriter) segment(seg textSegment, size float64) error {
	if err := w.setFont(seg, size); err != nil {
		return err
	}

	startX := w.pdf.GetX()
	startY := w.pdf.GetY()
	textWidth, err := w.pdf.MeasureTextWidth(seg.text)
	if err != nil {
		return err
	}
	endX := startX + textWidth

	r, g, b := uint8(0), uint8(0), uint8(0)
	if seg.color != "" {
		if cr, cg, cb, err := parseHexColor(seg.color); err == nil {
			r, g, b = cr, cg, cb
		}
	}
	w.pdf.SetTextColor(r, g, b)
	w.pdf.SetStrokeColor(r, g, b)

	if err := w.pdf.Cell(nil, seg.text); err != nil {
		return err
	}
	if seg.underline {
		w.pdf.Line(startX, startY+size+1, endX, startY+size+1)
	}
	if seg.strike {
		w.pdf.Line(startX, startY+size/2+1, endX, startY+size/2+1)
	}
	return nil
}

func segmentsOf(content []*doc.Node) []textSegment {
	segments := make([]textSegment, 0, len(content))
	for _, n := range content {
		if n.Type == doc.TypeImage {
			label := n.Attr(doc.AttrAlt)
			if label == "" {
				label = n.Attr(doc.AttrCaption)
			}
			segments = append(segments, textSegment{text: "[image: " + label + "]", italic: true})
			continue
		}
		if n.Text == "" {
			continue
		}
		seg := textSegment{text: strings.ReplaceAll(n.Text, "\t", "    ")}
		for _, m := range n.Marks {
			switch m.Type {
			case doc.MarkBold:
				seg.bold = true
			case doc.MarkItalic:
				seg.italic = true
			case doc.MarkUnderline, doc.MarkLink:
				seg.underline = true
			case doc.MarkStrike:
				seg.strike = true
			case doc.MarkColor:
				seg.color = m.Attr("value")
			}
		}
		segments = append(segments, seg)
	}
	return segments
}

// blockIndent converts the marginLeft attribute to points.
func blockIndent(n *doc.Node) float64 {
	v := strings.TrimSpace(n.Attr(doc.AttrMarginLeft))
	if v == "" {
		return 0
	}
	unit := strings.TrimLeft(v, "0123456789.")
	value, err := strconv.ParseFloat(strings.TrimSuffix(v, unit), 64)
	if err != nil {
		return 0
	}
	switch unit {
	case "pt":
		return value
	case "em", "rem":
		return value * fontSize
	default:
		return value * 0.75
	}
}

func markerLabel(listType doc.NodeType, level, n int) string {
	switch lists.MarkerFor(listType, level) {
	case lists.MarkerBullet:
		return "•"
	case lists.MarkerAlpha:
		return alphaLabel(n) + "."
	case lists.MarkerRoman:
		return romanLabel(n) + "."
	}
	return strconv.Itoa(n) + "."
}

func alphaLabel(n int) string {
	var label []byte
	for n > 0 {
		n--
		label = append([]byte{byte('a' + n%26)}, label...)
		n /= 26
	}
	return string(label)
}

var romanNumerals = []struct {
	value  int
	symbol string
}{
	{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"}, {100, "c"}, {90, "xc"},
	{50, "l"}, {40, "xl"}, {10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"},
}

func romanLabel(n int) string {
	var sb strings.Builder
	for _, r := range romanNumerals {
		for n >= r.value {
			sb.WriteString(r.symbol)
			n -= r.value
		}
	}
	return sb.String()
}

func parseHexColor(hex string) (r, g, b uint8, err error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color: %s", hex)
	}

	rVal, err := strconv.ParseUint(hex[0:2], 16, 8)
	if err != nil {
		return 0, 0, 0, err
	}
	gVal, err := strconv.ParseUint(hex[2:4], 16, 8)
	if err != nil {
		return 0, 0, 0, err
	}
	bVal, err := strconv.ParseUint(hex[4:6], 16, 8)
	if err != nil {
		return 0, 0, 0, err
	}

	return uint8(rVal), uint8(gVal), uint8(bVal), nil
}
