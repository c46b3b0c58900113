package document

import (
	"strings"
	"unicode/utf8"

	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/doc"
)

func checkMarks(marks []doc.Mark) error {
	for _, m := range marks {
		if !m.Type.Valid() {
			return exception.NewInvalidOperationError("unknown mark %q", m.Type)
		}
		if m.Type == doc.MarkComment && m.Attr("id") == "" {
			return exception.NewInvalidOperationError("comment mark without id")
		}
	}
	return nil
}

func checkInline(nodes []*doc.Node) error {
	if len(nodes) == 0 {
		return exception.NewInvalidOperationError("nothing to insert")
	}
	for _, n := range nodes {
		if !n.Type.IsInline() {
			return exception.NewInvalidOperationError("%s is not inline content", n.Type)
		}
		if n.Type == doc.TypeTextRun && strings.ContainsAny(n.Text, "\r\n") {
			return exception.NewInvalidOperationError("inline text may not contain line breaks")
		}
		if err := checkMarks(n.Marks); err != nil {
			return err
		}
	}
	return nil
}

func (o InsertText) apply(tx *transaction) (Operation, error) {
	if o.Text == "" {
		return nil, exception.NewInvalidOperationError("nothing to insert")
	}
	if strings.ContainsAny(o.Text, "\r\n") {
		return nil, exception.NewInvalidOperationError("inserted text may not contain line breaks, split the block instead")
	}
	if err := checkMarks(o.Marks); err != nil {
		return nil, err
	}
	block, err := textblockAt(tx.root, o.At)
	if err != nil {
		return nil, err
	}
	n := utf8.RuneCountInString(o.Text)
	insertInline(block, o.At.Offset, []*doc.Node{doc.NewText(o.Text, o.Marks...)})
	tx.diff.Append(doc.Splice(block.ID, o.At.Offset, 0, n))

	end := doc.Position{Path: o.At.Path, Offset: o.At.Offset + n}
	tx.touchBefore(doc.Cursor(o.At), true)
	tx.touchAfter(doc.Range{From: o.At, To: end}, true)
	return DeleteRange{Range: doc.Range{From: o.At, To: end}}, nil
}

func (o InsertInline) apply(tx *transaction) (Operation, error) {
	if err := checkInline(o.Nodes); err != nil {
		return nil, err
	}
	block, err := textblockAt(tx.root, o.At)
	if err != nil {
		return nil, err
	}
	nodes := cloneNodes(o.Nodes)
	tx.ensureIDs(nodes, block.ID+"/inline")
	n := inlineSize(nodes)
	insertInline(block, o.At.Offset, nodes)
	tx.diff.Append(doc.Splice(block.ID, o.At.Offset, 0, n))

	end := doc.Position{Path: o.At.Path, Offset: o.At.Offset + n}
	tx.touchBefore(doc.Cursor(o.At), true)
	tx.touchAfter(doc.Range{From: o.At, To: end}, true)
	return DeleteRange{Range: doc.Range{From: o.At, To: end}}, nil
}

func (o ReplaceInline) apply(tx *transaction) (Operation, error) {
	r := o.Range
	if !r.Valid() {
		return nil, exception.NewInvalidRangeError("range %s is reversed", r)
	}
	if !r.From.SameBlock(r.To) {
		return nil, exception.NewInvalidRangeError("replaceInline range %s spans blocks", r)
	}
	for _, n := range o.Nodes {
		if !n.Type.IsInline() {
			return nil, exception.NewInvalidOperationError("%s is not inline content", n.Type)
		}
	}
	block, err := textblockAt(tx.root, r.From)
	if err != nil {
		return nil, err
	}
	if r.To.Offset > block.ContentSize() {
		return nil, exception.NewInvalidRangeError("offset %d outside block of size %d", r.To.Offset, block.ContentSize())
	}
	oldText := []rune(block.TextContent())[r.From.Offset:r.To.Offset]
	nodes := cloneNodes(o.Nodes)
	tx.ensureIDs(nodes, block.ID+"/inline")
	removed := cutInline(block, r.From.Offset, r.To.Offset)
	insertInline(block, r.From.Offset, nodes)
	newText := []rune(inlineText(nodes))

	prefix, suffix := commonEdges(oldText, newText)
	tx.diff.Append(doc.Splice(block.ID, r.From.Offset+prefix, len(oldText)-prefix-suffix, len(newText)-prefix-suffix))

	end := doc.Position{Path: r.From.Path, Offset: r.From.Offset + len(newText)}
	tx.touchBefore(r, true)
	tx.touchAfter(doc.Range{From: r.From, To: end}, true)
	return ReplaceInline{Range: doc.Range{From: r.From, To: end}, Nodes: removed}, nil
}

// commonEdges returns the length of the shared prefix and of the shared
// suffix not overlapping it.
func commonEdges(a, b []rune) (int, int) {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	return prefix, suffix
}

func (o DeleteRange) apply(tx *transaction) (Operation, error) {
	r := o.Range
	if !r.Valid() {
		return nil, exception.NewInvalidRangeError("range %s is reversed", r)
	}
	if r.IsEmpty() {
		return nil, exception.NewEmptyRangeError("nothing to delete at " + r.From.String())
	}
	x, err := textblockAt(tx.root, r.From)
	if err != nil {
		return nil, err
	}
	y, err := textblockAt(tx.root, r.To)
	if err != nil {
		return nil, err
	}
	if x == y {
		removed := cutInline(x, r.From.Offset, r.To.Offset)
		tx.diff.Append(doc.Splice(x.ID, r.From.Offset, r.To.Offset-r.From.Offset, 0))
		tx.touchBefore(r, true)
		tx.touchAfter(doc.Cursor(r.From), true)
		return InsertInline{At: r.From, Nodes: removed}, nil
	}
	if cellID(tx.root, r.From.Path) != cellID(tx.root, r.To.Path) {
		return nil, exception.NewInvalidRangeError("range %s crosses table cells", r)
	}
	return deleteAcross(tx, r, x, y)
}

// deleteAcross truncates the first block, appends the tail of the last one
// to it and removes everything in between, including containers left empty
// along the last block's ancestry.
func deleteAcross(tx *transaction, r doc.Range, x, y *doc.Node) (Operation, error) {
	lca := commonAncestor(r.From.Path, r.To.Path)
	d := len(lca)
	lcaNode := tx.root.NodeAt(lca)
	a, b := r.From.Path[d], r.To.Path[d]
	original := cloneNodes(lcaNode.Content[a : b+1])
	yTopID := lcaNode.Content[b].ID
	middle := append([]*doc.Node(nil), lcaNode.Content[a+1:b]...)

	var between []*doc.Node
	for _, blk := range tx.root.Textblocks() {
		p := doc.Position{Path: blk.Path}
		if p.Compare(doc.Position{Path: r.From.Path}) > 0 && p.Compare(doc.Position{Path: r.To.Path}) < 0 {
			between = append(between, blk.Node)
		}
	}

	xSize, ySize := x.ContentSize(), y.ContentSize()
	tail := sliceInline(y, r.To.Offset, ySize)
	cutInline(x, r.From.Offset, xSize)
	insertInline(x, r.From.Offset, tail)

	yChain := chainOf(tx.root, r.To.Path)
	for i := d + 2; i < len(yChain); i++ {
		parent := yChain[i-1]
		idx := indexOf(parent, yChain[i])
		parent.Content = parent.Content[idx:]
	}
	removeChild(yChain[len(yChain)-2], y)
	for i := len(yChain) - 2; i > d; i-- {
		if len(yChain[i].Content) == 0 {
			removeChild(yChain[i-1], yChain[i])
		}
	}

	xChain := chainOf(tx.root, r.From.Path)
	for i := len(xChain) - 1; i >= d+2; i-- {
		parent := xChain[i-1]
		idx := indexOf(parent, xChain[i])
		parent.Content = parent.Content[:idx+1]
	}
	for _, n := range middle {
		removeChild(lcaNode, n)
	}

	count := 1
	if a+1 < len(lcaNode.Content) && lcaNode.Content[a+1].ID == yTopID {
		count = 2
	}

	tx.diff.Append(doc.Splice(x.ID, r.From.Offset, xSize-r.From.Offset, ySize-r.To.Offset))
	for _, blk := range between {
		tx.diff.Append(doc.Removed(blk.ID, x.ID, r.From.Offset))
	}
	tx.diff.Append(doc.Splice(y.ID, 0, r.To.Offset, 0), doc.Merge(y.ID, x.ID, r.From.Offset))

	tx.touchBefore(r, true)
	tx.touchAfter(doc.Cursor(r.From), true)
	return ReplaceChildren{Path: lca, From: a, To: a + count, Nodes: original}, nil
}

// chainOf returns the nodes from root down to the node at path.
func chainOf(root *doc.Node, path []int) []*doc.Node {
	chain := []*doc.Node{root}
	cur := root
	for _, idx := range path {
		cur = cur.Content[idx]
		chain = append(chain, cur)
	}
	return chain
}

func indexOf(parent, child *doc.Node) int {
	for i, c := range parent.Content {
		if c == child {
			return i
		}
	}
	return -1
}

func removeChild(parent, child *doc.Node) {
	idx := indexOf(parent, child)
	if idx < 0 {
		return
	}
	parent.Content = append(parent.Content[:idx], parent.Content[idx+1:]...)
}

// markedBlocks walks the textblocks covered by r and hands fn each block
// with the covered offsets.
func markedBlocks(root *doc.Node, r doc.Range, fn func(block *doc.Node, path []int, from, to int)) {
	for _, blk := range root.Textblocks() {
		p := doc.Position{Path: blk.Path}
		if p.Compare(doc.Position{Path: r.From.Path}) < 0 || p.Compare(doc.Position{Path: r.To.Path}) > 0 {
			continue
		}
		lo, hi := 0, blk.Node.ContentSize()
		if r.From.SameBlock(p) {
			lo = r.From.Offset
		}
		if r.To.SameBlock(p) {
			hi = r.To.Offset
		}
		if lo < hi {
			fn(blk.Node, blk.Path, lo, hi)
		}
	}
}

// applyMark adds or removes m over r. The inverse restores the previous
// runs of every touched block.
func applyMark(tx *transaction, r doc.Range, m doc.Mark, add bool) (Operation, error) {
	if !r.Valid() {
		return nil, exception.NewInvalidRangeError("range %s is reversed", r)
	}
	if r.IsEmpty() {
		return nil, exception.NewEmptyRangeError("cannot mark an empty range")
	}
	if err := checkMarks([]doc.Mark{m}); err != nil {
		return nil, err
	}
	if _, err := textblockAt(tx.root, r.From); err != nil {
		return nil, err
	}
	if _, err := textblockAt(tx.root, r.To); err != nil {
		return nil, err
	}
	var inverses []Operation
	markedBlocks(tx.root, r, func(block *doc.Node, path []int, from, to int) {
		previous := sliceInline(block, from, to)
		i := splitAt(block, from)
		j := splitAt(block, to)
		for _, c := range block.Content[i:j] {
			if c.Type != doc.TypeTextRun {
				continue
			}
			if add {
				c.Marks = doc.AddMark(c.Marks, m)
			} else {
				c.Marks = doc.RemoveMark(c.Marks, m)
			}
		}
		span := doc.Range{From: doc.Position{Path: path, Offset: from}, To: doc.Position{Path: path, Offset: to}}
		inverses = append(inverses, ReplaceInline{Range: span, Nodes: previous})
	})
	tx.touchBefore(r, true)
	tx.touchAfter(r, true)
	if len(inverses) == 1 {
		return inverses[0], nil
	}
	return Sequence{Ops: inverses}, nil
}
