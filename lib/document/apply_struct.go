package document

import (
	"strconv"

	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/doc"
)

func (o WrapRange) apply(tx *transaction) (Operation, error) {
	if o.Mark != nil {
		if o.Block != "" {
			return nil, exception.NewInvalidOperationError("wrapRange takes either a mark or a block type")
		}
		return applyMark(tx, o.Range, *o.Mark, true)
	}
	if !o.Block.IsList() {
		return nil, exception.NewInvalidOperationError("cannot wrap blocks into %q", o.Block)
	}
	r := o.Range
	if !r.Valid() {
		return nil, exception.NewInvalidRangeError("range %s is reversed", r)
	}
	if _, err := textblockAt(tx.root, r.From); err != nil {
		return nil, err
	}
	if _, err := textblockAt(tx.root, r.To); err != nil {
		return nil, err
	}
	pp, i := parentPath(r.From.Path)
	qp, j := parentPath(r.To.Path)
	if !samePath(pp, qp) {
		return nil, exception.NewInvalidRangeError("range %s does not cover sibling blocks", r)
	}
	parent := tx.root.NodeAt(pp)
	list := &doc.Node{
		ID:    tx.newID(parent.Content[i].ID + "/list"),
		Type:  o.Block,
		Attrs: doc.CloneAttrs(o.Attrs),
	}
	for k := i; k <= j; k++ {
		child := parent.Content[k]
		if !child.Type.IsTextblock() {
			return nil, exception.NewInvalidOperationError("cannot wrap %s into a list", child.Type)
		}
		list.Content = append(list.Content, &doc.Node{
			ID:      tx.newID(child.ID + "/item"),
			Type:    doc.TypeListItem,
			Content: []*doc.Node{child.Clone()},
		})
	}
	return ReplaceChildren{Path: pp, From: i, To: j + 1, Nodes: []*doc.Node{list}}.apply(tx)
}

func (o UnwrapRange) apply(tx *transaction) (Operation, error) {
	if o.Mark != nil {
		return applyMark(tx, o.Range, *o.Mark, false)
	}
	if !o.Lift {
		return nil, exception.NewInvalidOperationError("unwrapRange needs a mark or lift")
	}
	return liftRange(tx, o.Range)
}

// liftRange moves the textblocks covered by r out of every list enclosing
// them. The outermost list is split around them; its remaining parts keep
// their structure.
func liftRange(tx *transaction, r doc.Range) (Operation, error) {
	if !r.Valid() {
		return nil, exception.NewInvalidRangeError("range %s is reversed", r)
	}
	if _, err := textblockAt(tx.root, r.From); err != nil {
		return nil, err
	}
	last, err := textblockAt(tx.root, r.To)
	if err != nil {
		return nil, err
	}
	tp := outermostList(tx.root, r.From.Path)
	if tp == nil {
		return nil, exception.NewInvalidOperationError("%s is not inside a list", r.From)
	}
	if !hasPrefix(r.To.Path, tp) {
		return nil, exception.NewInvalidRangeError("range %s leaves the list", r)
	}

	list := tx.root.NodeAt(tp).Clone()
	left, rest := splitTree(tx, list, r.From.Path[len(tp):], false)
	_, lastPath := rest.FindByID(last.ID)
	mid, right := splitTree(tx, rest, lastPath, true)

	var nodes []*doc.Node
	if left != nil {
		nodes = append(nodes, left)
	}
	for _, b := range mid.Textblocks() {
		nodes = append(nodes, b.Node)
	}
	if right != nil {
		nodes = append(nodes, right)
	}
	pp, t := parentPath(tp)
	return ReplaceChildren{Path: pp, From: t, To: t + 1, Nodes: nodes}.apply(tx)
}

// splitTree cuts n at the descendant addressed by path. The descendant goes
// to the right part, or to the left one when inclusive is set. Containers
// left without children are dropped; a container present on both sides
// keeps its ID on the left.
func splitTree(tx *transaction, n *doc.Node, path []int, inclusive bool) (*doc.Node, *doc.Node) {
	if len(path) == 0 {
		if inclusive {
			return n, nil
		}
		return nil, n
	}
	idx := path[0]
	cl, cr := splitTree(tx, n.Content[idx], path[1:], inclusive)
	var lc, rc []*doc.Node
	lc = append(lc, n.Content[:idx]...)
	if cl != nil {
		lc = append(lc, cl)
	}
	if cr != nil {
		rc = append(rc, cr)
	}
	rc = append(rc, n.Content[idx+1:]...)

	var left, right *doc.Node
	if len(lc) > 0 {
		left = &doc.Node{ID: n.ID, Type: n.Type, Attrs: doc.CloneAttrs(n.Attrs), Content: lc}
	}
	if len(rc) > 0 {
		id := n.ID
		if left != nil {
			id = tx.newID(n.ID + "/split")
		}
		right = &doc.Node{ID: id, Type: n.Type, Attrs: doc.CloneAttrs(n.Attrs), Content: rc}
	}
	return left, right
}

func outermostList(root *doc.Node, path []int) []int {
	for depth := 0; depth <= len(path); depth++ {
		n := root.NodeAt(path[:depth])
		if n != nil && n.Type.IsList() {
			return doc.ClonePath(path[:depth])
		}
	}
	return nil
}

func hasPrefix(path, prefix []int) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}

func samePath(a, b []int) bool {
	return len(a) == len(b) && hasPrefix(a, b)
}

// pathOf returns the path of the node with id, the empty path for the root.
func pathOf(root *doc.Node, id string) ([]int, bool) {
	if root.ID == id {
		return []int{}, true
	}
	n, path := root.FindByID(id)
	return path, n != nil
}

func (o SetNodeAttrs) apply(tx *transaction) (Operation, error) {
	if len(o.Attrs) == 0 {
		return nil, exception.NewInvalidOperationError("no attributes to set")
	}
	node, err := nodeAt(tx.root, o.Path)
	if err != nil {
		return nil, err
	}
	if node.Type == doc.TypeTextRun {
		return nil, exception.NewInvalidOperationError("text runs carry marks, not attributes")
	}
	old := make(map[string]string, len(o.Attrs))
	for k, v := range o.Attrs {
		if k == doc.AttrNestLevel {
			return nil, exception.NewInvalidOperationError("%s is derived from the tree", k)
		}
		old[k] = node.Attr(k)
		node.SetAttr(k, v)
	}
	span, ok := blockSpan(tx.root, o.Path)
	tx.touchBefore(span, ok)
	tx.touchAfter(span, ok)
	return SetNodeAttrs{Path: doc.ClonePath(o.Path), Attrs: old}, nil
}

func (o SplitNode) apply(tx *transaction) (Operation, error) {
	if len(o.Path) == 0 {
		return nil, exception.NewInvalidOperationError("cannot split the document root")
	}
	node, err := nodeAt(tx.root, o.Path)
	if err != nil {
		return nil, err
	}
	if node.Type.IsLeaf() {
		return nil, exception.NewInvalidOperationError("cannot split a %s", node.Type)
	}
	pp, idx := parentPath(o.Path)
	parent := tx.root.NodeAt(pp)

	id := o.NewID
	if id == "" {
		id = tx.newID(node.ID + "/split")
	} else if n, _ := tx.root.FindByID(id); n != nil {
		return nil, exception.NewInvalidOperationError("node id %s is already in use", id)
	}
	attrs := doc.CloneAttrs(node.Attrs)
	if o.NewAttrs != nil || o.ExactAttrs {
		attrs = doc.CloneAttrs(o.NewAttrs)
	}
	sibling := &doc.Node{ID: id, Type: node.Type, Attrs: attrs}

	before, okBefore := blockSpan(tx.root, o.Path)
	if node.Type.IsTextblock() {
		size := node.ContentSize()
		if o.Offset < 0 || o.Offset > size {
			return nil, exception.NewInvalidRangeError("offset %d outside block of size %d", o.Offset, size)
		}
		sibling.Content = cutInline(node, o.Offset, size)
		tx.diff.Append(doc.Split(node.ID, o.Offset, id))
	} else {
		if o.Offset < 0 || o.Offset > len(node.Content) {
			return nil, exception.NewInvalidOperationError("child index %d outside %s with %d children", o.Offset, node.Type, len(node.Content))
		}
		sibling.Content = append([]*doc.Node(nil), node.Content[o.Offset:]...)
		node.Content = append([]*doc.Node(nil), node.Content[:o.Offset]...)
	}
	insertChild(parent, idx+1, sibling)

	siblingPath := childPath(pp, idx+1)
	after, okAfter := blockSpan(tx.root, o.Path)
	if s, ok := blockSpan(tx.root, siblingPath); ok {
		after, okAfter = joinRanges(after, s, okAfter, true)
	}
	tx.touchBefore(before, okBefore)
	tx.touchAfter(after, okAfter)
	return JoinNodes{PathA: doc.ClonePath(o.Path), PathB: siblingPath}, nil
}

func insertChild(parent *doc.Node, idx int, child *doc.Node) {
	content := make([]*doc.Node, 0, len(parent.Content)+1)
	content = append(content, parent.Content[:idx]...)
	content = append(content, child)
	content = append(content, parent.Content[idx:]...)
	parent.Content = content
}

func (o JoinNodes) apply(tx *transaction) (Operation, error) {
	a, err := nodeAt(tx.root, o.PathA)
	if err != nil {
		return nil, err
	}
	b, err := nodeAt(tx.root, o.PathB)
	if err != nil {
		return nil, err
	}
	pa, ia := parentPath(o.PathA)
	pb, ib := parentPath(o.PathB)
	if len(o.PathA) == 0 || !samePath(pa, pb) || ib != ia+1 {
		return nil, exception.NewInvalidOperationError("%v is not the next sibling of %v", o.PathB, o.PathA)
	}
	if a.Type != b.Type || a.Type.IsLeaf() {
		return nil, exception.NewInvalidOperationError("cannot join %s with %s", a.Type, b.Type)
	}
	before, okBefore := blockSpan(tx.root, o.PathA)
	if s, ok := blockSpan(tx.root, o.PathB); ok {
		before, okBefore = joinRanges(before, s, okBefore, true)
	}

	var at int
	if a.Type.IsTextblock() {
		at = a.ContentSize()
		tx.diff.Append(doc.Merge(b.ID, a.ID, at))
	} else {
		at = len(a.Content)
	}
	a.Content = append(a.Content, b.Content...)
	removeChild(tx.root.NodeAt(pa), b)

	after, okAfter := blockSpan(tx.root, o.PathA)
	tx.touchBefore(before, okBefore)
	tx.touchAfter(after, okAfter)
	return SplitNode{
		Path:       doc.ClonePath(o.PathA),
		Offset:     at,
		NewID:      b.ID,
		NewAttrs:   doc.CloneAttrs(b.Attrs),
		ExactAttrs: true,
	}, nil
}

func (o MoveNode) apply(tx *transaction) (Operation, error) {
	if len(o.From) == 0 {
		return nil, exception.NewInvalidOperationError("cannot move the document root")
	}
	node, err := nodeAt(tx.root, o.From)
	if err != nil {
		return nil, err
	}
	if node.Type == doc.TypeTextRun {
		return nil, exception.NewInvalidOperationError("text runs cannot be moved, delete and insert instead")
	}
	target, err := nodeAt(tx.root, o.To)
	if err != nil {
		return nil, err
	}
	if hasPrefix(o.To, o.From) {
		return nil, exception.NewInvalidOperationError("cannot move %v into itself", o.From)
	}
	if target.Type.IsLeaf() || target.Type.IsTextblock() {
		return nil, exception.NewInvalidOperationError("%s cannot hold blocks", target.Type)
	}
	before, okBefore := blockSpan(tx.root, o.From)
	pp, oldIdx := parentPath(o.From)
	oldParent := tx.root.NodeAt(pp)
	removeChild(oldParent, node)
	if o.Index < 0 || o.Index > len(target.Content) {
		return nil, exception.NewInvalidOperationError("index %d outside %s with %d children", o.Index, target.Type, len(target.Content))
	}
	insertChild(target, o.Index, node)

	newPath, _ := pathOf(tx.root, node.ID)
	oldParentPath, _ := pathOf(tx.root, oldParent.ID)
	after, okAfter := blockSpan(tx.root, newPath)
	tx.touchBefore(before, okBefore)
	tx.touchAfter(after, okAfter)
	return MoveNode{From: newPath, To: oldParentPath, Index: oldIdx}, nil
}

type blockText struct {
	id   string
	text []rune
}

func collectBlocks(nodes []*doc.Node) []blockText {
	var out []blockText
	for _, n := range nodes {
		n.Walk(func(node *doc.Node, _ []int) bool {
			if node.Type.IsTextblock() {
				out = append(out, blockText{id: node.ID, text: []rune(node.TextContent())})
				return false
			}
			return !node.Type.IsLeaf()
		})
	}
	return out
}

// diffByID maps old textblocks onto the new tree by identity. Blocks whose
// text changed get a trimmed splice, blocks that are gone collapse onto
// target.
func diffByID(tx *transaction, old []blockText, target func() (string, int)) {
	var removed []string
	for _, b := range old {
		n, _ := tx.root.FindByID(b.id)
		if n == nil || !n.Type.IsTextblock() {
			removed = append(removed, b.id)
			continue
		}
		text := []rune(n.TextContent())
		prefix, suffix := commonEdges(b.text, text)
		tx.diff.Append(doc.Splice(b.id, prefix, len(b.text)-prefix-suffix, len(text)-prefix-suffix))
	}
	if len(removed) == 0 {
		return
	}
	targetID, at := target()
	for _, id := range removed {
		tx.diff.Append(doc.Removed(id, targetID, at))
	}
}

func (o ReplaceChildren) apply(tx *transaction) (Operation, error) {
	parent, err := nodeAt(tx.root, o.Path)
	if err != nil {
		return nil, err
	}
	if parent.Type.IsTextblock() || parent.Type.IsLeaf() {
		return nil, exception.NewInvalidOperationError("replaceChildren needs a container, got %s", parent.Type)
	}
	if o.From < 0 || o.From > o.To || o.To > len(parent.Content) {
		return nil, exception.NewInvalidOperationError("children %d..%d outside %s with %d children", o.From, o.To, parent.Type, len(parent.Content))
	}
	old := parent.Content[o.From:o.To]
	oldBlocks := collectBlocks(old)
	before, okBefore := regionSpan(tx.root, o.Path, o.From, o.To)

	nodes := cloneNodes(o.Nodes)
	tx.ensureIDs(nodes, parent.ID+"/"+strconv.Itoa(o.From))
	content := make([]*doc.Node, 0, len(parent.Content)-len(old)+len(nodes))
	content = append(content, parent.Content[:o.From]...)
	content = append(content, nodes...)
	content = append(content, parent.Content[o.To:]...)
	inverse := ReplaceChildren{Path: doc.ClonePath(o.Path), From: o.From, To: o.From + len(nodes), Nodes: cloneNodes(old)}
	parent.Content = content

	end := o.From + len(nodes)
	diffByID(tx, oldBlocks, func() (string, int) {
		return nearestBlock(tx.root, childPath(o.Path, o.From), childPath(o.Path, end))
	})
	after, okAfter := regionSpan(tx.root, o.Path, o.From, end)
	if !okAfter {
		after, okAfter = pointNear(tx.root, childPath(o.Path, o.From))
	}
	tx.touchBefore(before, okBefore)
	tx.touchAfter(after, okAfter)
	return inverse, nil
}

func regionSpan(root *doc.Node, path []int, from, to int) (doc.Range, bool) {
	var span doc.Range
	ok := false
	for i := from; i < to; i++ {
		s, found := blockSpan(root, childPath(path, i))
		span, ok = joinRanges(span, s, ok, found)
	}
	return span, ok
}

// nearestBlock picks the block removed content collapses onto: the first
// textblock inside [start, end), else the end of the last one before start,
// else the start of the first one after.
func nearestBlock(root *doc.Node, start, end []int) (string, int) {
	s, e := doc.Position{Path: start}, doc.Position{Path: end}
	var prev *doc.Node
	var next *doc.Node
	for _, b := range root.Textblocks() {
		p := doc.Position{Path: b.Path}
		switch {
		case p.Compare(s) < 0:
			prev = b.Node
		case p.Compare(e) < 0:
			return b.Node.ID, 0
		case next == nil:
			next = b.Node
		}
	}
	if prev != nil {
		return prev.ID, prev.ContentSize()
	}
	if next != nil {
		return next.ID, 0
	}
	return "", 0
}

func pointNear(root *doc.Node, at []int) (doc.Range, bool) {
	id, offset := nearestBlock(root, at, at)
	if id == "" {
		return doc.Range{}, false
	}
	path, _ := pathOf(root, id)
	return doc.Cursor(doc.Position{Path: path, Offset: offset}), true
}

func (o Sequence) apply(tx *transaction) (Operation, error) {
	if len(o.Ops) == 0 {
		return nil, exception.NewInvalidOperationError("empty sequence")
	}
	inverses := make([]Operation, len(o.Ops))
	for i, op := range o.Ops {
		if op == nil {
			return nil, exception.NewInvalidOperationError("sequence step %d is empty", i)
		}
		inv, err := op.apply(tx)
		if err != nil {
			return nil, err
		}
		inverses[len(o.Ops)-1-i] = inv
	}
	return Sequence{Ops: inverses}, nil
}

func (o Restore) apply(tx *transaction) (Operation, error) {
	if o.Doc == nil {
		return nil, exception.NewInvalidOperationError("restore needs a document")
	}
	old := tx.root
	before, okBefore := blockSpan(old, nil)
	oldBlocks := collectBlocks([]*doc.Node{old})

	root := o.Doc.Clone()
	tx.root = root
	tx.ensureIDs([]*doc.Node{root}, "restore")
	diffByID(tx, oldBlocks, func() (string, int) {
		blocks := root.Textblocks()
		if len(blocks) == 0 {
			return "", 0
		}
		return blocks[0].Node.ID, 0
	})
	after, okAfter := blockSpan(root, nil)
	tx.touchBefore(before, okBefore)
	tx.touchAfter(after, okAfter)
	return Restore{Doc: old}, nil
}
