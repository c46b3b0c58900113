package editor

import (
	"strconv"

	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var cellAlignments = map[string]struct{}{
	"left": {}, "center": {}, "right": {}, "justify": {},
}

// InsertImage places an image at the selection and returns its node ID.
// When a measurer is configured the image is sized in a deferred task.
func (e *Editor) InsertImage(src, alt, caption string) (string, error) {
	if err := validate.Var(src, "required"); err != nil {
		return "", exception.NewInvalidOperationError("image source is required")
	}
	image := doc.NewImage(src, alt, caption)
	err := e.run(func() error {
		sel := e.selection()
		ops := []document.Operation{}
		if !sel.IsEmpty() {
			ops = append(ops, document.DeleteRange{Range: sel})
		}
		ops = append(ops, document.InsertInline{At: sel.From, Nodes: []*doc.Node{image}})
		if _, err := e.apply(document.Sequence{Ops: ops}, LabelInsertImage, true); err != nil {
			return err
		}
		e.collapse()
		if e.measurer != nil {
			id := image.ID
			e.Defer(func() { e.measureImage(id, src) })
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return image.ID, nil
}

// measureImage runs outside the session lock. The image may have been
// removed or replaced by the time the size is known.
func (e *Editor) measureImage(id, src string) {
	width, height, err := e.measurer.Measure(src)
	if err != nil {
		e.logger.Infow("image measurement failed", "document", e.document.ID(), "image", id, "error", err)
		return
	}
	err = e.run(func() error {
		node, _ := e.document.Root().FindByID(id)
		if node == nil || node.Attr(doc.AttrSrc) != src {
			e.logger.Debugw("measured image is gone", "document", e.document.ID(), "image", id)
			return nil
		}
		return e.resize(id, width, height)
	})
	if err != nil {
		e.logger.Infow("image resize failed", "document", e.document.ID(), "image", id, "error", err)
	}
}

// ResizeImage sets the dimensions of the image node id.
func (e *Editor) ResizeImage(id string, width, height int) error {
	return e.run(func() error {
		return e.resize(id, width, height)
	})
}

func (e *Editor) resize(id string, width, height int) error {
	if width <= 0 || height <= 0 {
		return exception.NewInvalidOperationError("image size %dx%d is not positive", width, height)
	}
	node, path := e.document.Root().FindByID(id)
	if node == nil || node.Type != doc.TypeImage {
		return exception.NewUnknownNodeIDError(id)
	}
	attrs := map[string]string{
		doc.AttrWidth:  strconv.Itoa(width),
		doc.AttrHeight: strconv.Itoa(height),
	}
	_, err := e.apply(document.SetNodeAttrs{Path: path, Attrs: attrs}, LabelResizeImage, true)
	return err
}

// SetCellAlignment aligns every table cell the selection touches.
func (e *Editor) SetCellAlignment(align string) error {
	if _, ok := cellAlignments[align]; !ok {
		return exception.NewInvalidOperationError("unknown alignment %q", align)
	}
	return e.run(func() error {
		return e.setCellAttr(doc.AttrTextAlign, align, LabelCellAlignment)
	})
}

// SetCellBackground colors every table cell the selection touches. An
// empty color removes the background.
func (e *Editor) SetCellBackground(color string) error {
	if color != "" {
		if err := validate.Var(color, "iscolor"); err != nil {
			return exception.NewInvalidOperationError("invalid color %q", color)
		}
	}
	return e.run(func() error {
		return e.setCellAttr(doc.AttrBackground, color, LabelCellBackground)
	})
}

func (e *Editor) setCellAttr(key, value, label string) error {
	cells := selectedOfType(e.document.Root(), e.selection(), doc.TypeTableCell)
	if len(cells) == 0 {
		return exception.NewInvalidOperationError("selection is not inside a table")
	}
	ops := make([]document.Operation, 0, len(cells))
	for _, path := range cells {
		ops = append(ops, document.SetNodeAttrs{Path: path, Attrs: map[string]string{key: value}})
	}
	_, err := e.apply(document.Sequence{Ops: ops}, label, true)
	return err
}

// selectedOfType lists, in document order and without duplicates, the
// closest ancestors of type t of the textblocks r touches.
func selectedOfType(root *doc.Node, r doc.Range, t doc.NodeType) [][]int {
	var out [][]int
	seen := make(map[string]struct{})
	for _, blk := range root.Textblocks() {
		p := doc.Position{Path: blk.Path}
		if p.Compare(doc.Position{Path: r.From.Path}) < 0 || p.Compare(doc.Position{Path: r.To.Path}) > 0 {
			continue
		}
		for depth := len(blk.Path) - 1; depth >= 0; depth-- {
			n := root.NodeAt(blk.Path[:depth])
			if n == nil || n.Type != t {
				continue
			}
			if _, dup := seen[n.ID]; !dup {
				seen[n.ID] = struct{}{}
				out = append(out, doc.ClonePath(blk.Path[:depth]))
			}
			break
		}
	}
	return out
}

// CreateTable inserts a rows x cols table after the top-level block holding
// the selection, replacing it when it is an empty paragraph. A paragraph is
// kept after the table so the cursor can leave it.
func (e *Editor) CreateTable(rows, cols int) error {
	if rows < 1 || cols < 1 {
		return exception.NewInvalidOperationError("a table needs at least one row and one column, got %dx%d", rows, cols)
	}
	return e.run(func() error {
		root := e.document.Root()
		sel := e.selection()
		at := 0
		if len(sel.From.Path) > 0 {
			at = sel.From.Path[0]
		}
		from, to := at+1, at+1
		if block := root.Content[at]; block.Type == doc.TypeParagraph && block.IsEmptyTextblock() {
			from = at
		}
		nodes := []*doc.Node{doc.NewTable(rows, cols)}
		if to >= len(root.Content) {
			nodes = append(nodes, doc.NewParagraph(""))
		}
		if _, err := e.apply(document.ReplaceChildren{From: from, To: to, Nodes: nodes}, LabelCreateTable, true); err != nil {
			return err
		}
		e.setSelection(doc.Cursor(doc.Pos(0, from, 0, 0, 0)))
		return nil
	})
}

// ToggleList wraps the selected blocks into a list of kind, lifts them out
// when they already are in one, or retypes a list of the other kind.
func (e *Editor) ToggleList(kind doc.NodeType) error {
	if !kind.IsList() {
		return exception.NewInvalidOperationError("%q is not a list type", kind)
	}
	return e.run(func() error {
		root := e.document.Root()
		sel := e.selection()
		var op document.Operation
		switch listPath := enclosingList(root, sel.From.Path); {
		case listPath == nil:
			op = document.WrapRange{Range: sel, Block: kind}
		case root.NodeAt(listPath).Type == kind:
			op = document.UnwrapRange{Range: sel, Lift: true}
		default:
			retyped := root.NodeAt(listPath).Clone()
			retyped.Type = kind
			parent, idx := listPath[:len(listPath)-1], listPath[len(listPath)-1]
			op = document.ReplaceChildren{Path: doc.ClonePath(parent), From: idx, To: idx + 1, Nodes: []*doc.Node{retyped}}
		}
		_, err := e.apply(op, LabelToggleList, true)
		return err
	})
}

func enclosingList(root *doc.Node, path []int) []int {
	for depth := len(path) - 1; depth >= 0; depth-- {
		if n := root.NodeAt(path[:depth]); n != nil && n.Type.IsList() {
			return doc.ClonePath(path[:depth])
		}
	}
	return nil
}

// ToggleMark removes m from the selection when all of it carries m and adds
// it otherwise. Comments and links have their own entry points.
func (e *Editor) ToggleMark(m doc.Mark) error {
	switch {
	case !m.Type.Valid():
		return exception.NewInvalidOperationError("unknown mark %q", m.Type)
	case m.Type == doc.MarkComment:
		return exception.NewInvalidOperationError("comments are added through AddComment")
	case m.Type == doc.MarkLink:
		return exception.NewInvalidOperationError("links are set through SetLink")
	}
	return e.run(func() error {
		sel := e.selection()
		if sel.IsEmpty() {
			return exception.NewEmptyRangeError("select text to format")
		}
		var op document.Operation = document.WrapRange{Range: sel, Mark: &m}
		if e.document.RangeHasMark(sel, m) {
			op = document.UnwrapRange{Range: sel, Mark: &m}
		}
		_, err := e.apply(op, LabelToggleMark, true)
		return err
	})
}

// SetLink links the selection to href. An empty href removes links.
func (e *Editor) SetLink(href string) error {
	if href != "" {
		if err := validate.Var(href, "url"); err != nil {
			return exception.NewInvalidOperationError("invalid link %q", href)
		}
	}
	return e.run(func() error {
		sel := e.selection()
		if sel.IsEmpty() {
			return exception.NewEmptyRangeError("select text to link")
		}
		link := doc.Link(href)
		var op document.Operation = document.WrapRange{Range: sel, Mark: &link}
		if href == "" {
			op = document.UnwrapRange{Range: sel, Mark: &link}
		}
		_, err := e.apply(op, LabelSetLink, true)
		return err
	})
}

// Search highlights every match of query and returns the matches.
func (e *Editor) Search(query string) []doc.Range {
	var found []doc.Range
	_ = e.run(func() error {
		found = e.document.FindText(query)
		ranges := make([]doc.AnchorRange, 0, len(found))
		for _, r := range found {
			ar, err := e.document.AnchorRangeOf(r, doc.StickRight, doc.StickLeft)
			if err != nil {
				continue
			}
			ranges = append(ranges, ar)
		}
		e.highlights.Replace(ranges)
		return nil
	})
	return found
}

func (e *Editor) ClearSearch() {
	e.read(e.highlights.Clear)
}

// Highlights lists the search matches that are still in the document.
func (e *Editor) Highlights() []doc.Range {
	var out []doc.Range
	e.read(func() {
		for _, ar := range e.highlights.Ranges() {
			if r, ok := e.document.RangeOf(ar); ok {
				out = append(out, r)
			}
		}
	})
	return out
}
