package document

import (
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/doc"
)

func nodeAt(root *doc.Node, path []int) (*doc.Node, error) {
	n := root.NodeAt(path)
	if n == nil {
		return nil, exception.NewUnknownNodeError(path)
	}
	return n, nil
}

// textblockAt resolves a position's block. Stale or non-textblock paths
// are reported as InvalidRange with the lookup failure as cause.
func textblockAt(root *doc.Node, p doc.Position) (*doc.Node, error) {
	n := root.NodeAt(p.Path)
	if n == nil {
		err := exception.NewInvalidRangeError("position %s does not resolve", p)
		err.Cause = exception.NewUnknownNodeError(p.Path)
		return nil, err
	}
	if !n.Type.IsTextblock() {
		return nil, exception.NewInvalidRangeError("position %s points into a %s, not a textblock", p, n.Type)
	}
	if p.Offset < 0 || p.Offset > n.ContentSize() {
		return nil, exception.NewInvalidRangeError("offset %d outside block of size %d", p.Offset, n.ContentSize())
	}
	return n, nil
}

func parentPath(path []int) ([]int, int) {
	if len(path) == 0 {
		return nil, -1
	}
	return doc.ClonePath(path[:len(path)-1]), path[len(path)-1]
}

func childPath(path []int, idx int) []int {
	return append(doc.ClonePath(path), idx)
}

func commonAncestor(a, b []int) []int {
	var out []int
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
		out = append(out, a[i])
	}
	return out
}

// splitAt makes offset fall on a child boundary of the textblock and
// returns the index of the first child at or after offset.
func splitAt(block *doc.Node, offset int) int {
	pos := 0
	for i, c := range block.Content {
		size := c.InlineSize()
		if offset == pos {
			return i
		}
		if offset < pos+size {
			runes := []rune(c.Text)
			cut := offset - pos
			left := &doc.Node{Type: doc.TypeTextRun, Text: string(runes[:cut]), Marks: doc.SortMarks(c.Marks)}
			right := &doc.Node{Type: doc.TypeTextRun, Text: string(runes[cut:]), Marks: doc.SortMarks(c.Marks)}
			content := make([]*doc.Node, 0, len(block.Content)+1)
			content = append(content, block.Content[:i]...)
			content = append(content, left, right)
			content = append(content, block.Content[i+1:]...)
			block.Content = content
			return i + 1
		}
		pos += size
	}
	return len(block.Content)
}

// sliceInline returns a copy of the inline content between two offsets.
func sliceInline(block *doc.Node, from, to int) []*doc.Node {
	var out []*doc.Node
	pos := 0
	for _, c := range block.Content {
		size := c.InlineSize()
		start, end := pos, pos+size
		pos = end
		if end <= from || start >= to {
			continue
		}
		if c.Type == doc.TypeTextRun {
			runes := []rune(c.Text)
			lo, hi := max(from, start)-start, min(to, end)-start
			out = append(out, doc.NewText(string(runes[lo:hi]), c.Marks...))
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

// cutInline removes the inline content between two offsets and returns it.
func cutInline(block *doc.Node, from, to int) []*doc.Node {
	removed := sliceInline(block, from, to)
	i := splitAt(block, from)
	j := splitAt(block, to)
	content := make([]*doc.Node, 0, len(block.Content)-(j-i))
	content = append(content, block.Content[:i]...)
	content = append(content, block.Content[j:]...)
	block.Content = content
	return removed
}

func insertInline(block *doc.Node, offset int, nodes []*doc.Node) {
	i := splitAt(block, offset)
	content := make([]*doc.Node, 0, len(block.Content)+len(nodes))
	content = append(content, block.Content[:i]...)
	for _, n := range nodes {
		content = append(content, n.Clone())
	}
	content = append(content, block.Content[i:]...)
	block.Content = content
}

func inlineSize(nodes []*doc.Node) int {
	size := 0
	for _, n := range nodes {
		size += n.InlineSize()
	}
	return size
}

func inlineText(nodes []*doc.Node) string {
	holder := &doc.Node{Type: doc.TypeParagraph, Content: nodes}
	return holder.TextContent()
}

func cloneNodes(nodes []*doc.Node) []*doc.Node {
	out := make([]*doc.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// ensureIDs gives every non-text node in the subtrees an ID.
func ensureIDs(nodes []*doc.Node) {
	for _, n := range nodes {
		n.Walk(func(node *doc.Node, _ []int) bool {
			if node.Type != doc.TypeTextRun && node.ID == "" {
				node.ID = doc.NewID()
			}
			return true
		})
	}
}

// ancestorOfType returns the path of the closest ancestor (or self) of the
// given type, or nil.
func ancestorOfType(root *doc.Node, path []int, t doc.NodeType) []int {
	for depth := len(path); depth >= 0; depth-- {
		n := root.NodeAt(path[:depth])
		if n != nil && n.Type == t {
			return doc.ClonePath(path[:depth])
		}
	}
	return nil
}

func cellID(root *doc.Node, path []int) string {
	p := ancestorOfType(root, path, doc.TypeTableCell)
	if p == nil {
		return ""
	}
	return root.NodeAt(p).ID
}

// blockSpan returns the range from the first to the last textblock inside
// the node at path.
func blockSpan(root *doc.Node, path []int) (doc.Range, bool) {
	n := root.NodeAt(path)
	if n == nil {
		return doc.Range{}, false
	}
	if n.Type.IsTextblock() {
		return doc.Range{From: doc.Position{Path: doc.ClonePath(path), Offset: 0},
			To: doc.Position{Path: doc.ClonePath(path), Offset: n.ContentSize()}}, true
	}
	blocks := n.Textblocks()
	if len(blocks) == 0 {
		return doc.Range{}, false
	}
	first, last := blocks[0], blocks[len(blocks)-1]
	return doc.Range{
		From: doc.Position{Path: append(doc.ClonePath(path), first.Path...), Offset: 0},
		To:   doc.Position{Path: append(doc.ClonePath(path), last.Path...), Offset: last.Node.ContentSize()},
	}, true
}

// spanByID is blockSpan for a node identified by id.
func spanByID(root *doc.Node, id string) (doc.Range, bool) {
	_, path := root.FindByID(id)
	if path == nil && root.ID != id {
		return doc.Range{}, false
	}
	return blockSpan(root, path)
}

func joinRanges(a, b doc.Range, okA, okB bool) (doc.Range, bool) {
	switch {
	case okA && okB:
		from, to := a.From, a.To
		if b.From.Compare(from) < 0 {
			from = b.From
		}
		if b.To.Compare(to) > 0 {
			to = b.To
		}
		return doc.Range{From: from, To: to}, true
	case okA:
		return a, true
	case okB:
		return b, true
	}
	return doc.Range{}, false
}
