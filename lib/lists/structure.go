package lists

import (
	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/models/doc"
)

type cursor struct {
	block     *doc.Node
	blockPath []int
	offset    int

	// Set when the block sits directly in a list item.
	item     *doc.Node
	itemPath []int
	list     *doc.Node
	listPath []int
	level    int
	// The item's list sits in an item of a list of the same kind, so an
	// outdent keeps the item's kind.
	outdentable bool
}

func locate(root *doc.Node, p doc.Position) (*cursor, bool) {
	block := root.NodeAt(p.Path)
	if block == nil || !block.Type.IsTextblock() {
		return nil, false
	}
	c := &cursor{block: block, blockPath: doc.ClonePath(p.Path), offset: p.Offset}
	if len(p.Path) < 2 {
		return c, true
	}
	itemPath := doc.ClonePath(p.Path[:len(p.Path)-1])
	item := root.NodeAt(itemPath)
	if item == nil || item.Type != doc.TypeListItem {
		return c, true
	}
	c.item = item
	c.itemPath = itemPath
	c.listPath = doc.ClonePath(itemPath[:len(itemPath)-1])
	c.list = root.NodeAt(c.listPath)
	c.level = doc.ListLevel(root, itemPath)
	if len(c.listPath) >= 2 {
		holder := root.NodeAt(c.listPath[:len(c.listPath)-1])
		outer := root.NodeAt(c.listPath[:len(c.listPath)-2])
		c.outdentable = holder != nil && holder.Type == doc.TypeListItem &&
			outer != nil && outer.Type == c.list.Type
	}
	return c, true
}

func (c *cursor) blockIndex() int {
	return c.blockPath[len(c.blockPath)-1]
}

func (c *cursor) itemIndex() int {
	return c.itemPath[len(c.itemPath)-1]
}

func (c *cursor) emptyItem() bool {
	return c.item != nil && len(c.item.Content) == 1 && c.block.IsEmptyTextblock()
}

func inListItem(root *doc.Node, path []int) bool {
	if len(path) < 2 {
		return false
	}
	parent := root.NodeAt(path[:len(path)-1])
	return parent != nil && parent.Type == doc.TypeListItem
}

// sink nests the item one level deeper under its previous sibling. The
// first item of a list has no sibling to go under and gets an empty
// holder item instead.
func sink(c *cursor) document.Operation {
	item := c.item.Clone()
	k := c.itemIndex()
	if k == 0 {
		holder := &doc.Node{
			Type:    doc.TypeListItem,
			Content: []*doc.Node{{Type: c.list.Type, Content: []*doc.Node{item}}},
		}
		return document.ReplaceChildren{Path: doc.ClonePath(c.listPath), From: 0, To: 1, Nodes: []*doc.Node{holder}}
	}
	prev := c.list.Content[k-1].Clone()
	if n := len(prev.Content); n > 0 && prev.Content[n-1].Type == c.list.Type {
		nested := prev.Content[n-1]
		nested.Content = append(nested.Content, item)
	} else {
		prev.Content = append(prev.Content, &doc.Node{Type: c.list.Type, Content: []*doc.Node{item}})
	}
	return document.ReplaceChildren{Path: doc.ClonePath(c.listPath), From: k - 1, To: k + 1, Nodes: []*doc.Node{prev}}
}

// outdent moves a nested item out of its list to sit right after the item
// holding that list. The siblings that followed it become its children so
// document order is kept.
func outdent(root *doc.Node, c *cursor) document.Operation {
	holderPath := c.listPath[:len(c.listPath)-1]
	holder := root.NodeAt(holderPath)
	if holder == nil || holder.Type != doc.TypeListItem {
		return nil
	}
	k := c.itemIndex()
	listIdx := c.listPath[len(c.listPath)-1]

	item := c.item.Clone()
	if trailing := cloneAll(c.list.Content[k+1:]); len(trailing) > 0 {
		if n := len(item.Content); n > 0 && item.Content[n-1].Type == c.list.Type {
			item.Content[n-1].Content = append(item.Content[n-1].Content, trailing...)
		} else {
			id := ""
			if k == 0 {
				id = c.list.ID
			}
			item.Content = append(item.Content, &doc.Node{
				ID:      id,
				Type:    c.list.Type,
				Attrs:   doc.CloneAttrs(c.list.Attrs),
				Content: trailing,
			})
		}
	}

	left := holder.Clone()
	if k == 0 {
		left.Content = append(left.Content[:listIdx], left.Content[listIdx+1:]...)
	} else {
		left.Content[listIdx].Content = left.Content[listIdx].Content[:k]
	}
	var nodes []*doc.Node
	if len(left.Content) > 0 {
		nodes = append(nodes, left)
	}
	nodes = append(nodes, item)

	parentPath := doc.ClonePath(holderPath[:len(holderPath)-1])
	h := holderPath[len(holderPath)-1]
	return document.ReplaceChildren{Path: parentPath, From: h, To: h + 1, Nodes: nodes}
}

// exit turns the item's block into a plain paragraph outside every list.
func exit(c *cursor) document.Operation {
	at := doc.Position{Path: doc.ClonePath(c.blockPath), Offset: c.offset}
	return document.UnwrapRange{Range: doc.Cursor(at), Lift: true}
}

// joinBackward merges the block into the previous textblock of the same
// table cell. There is nothing to join at the start of a cell or document.
func joinBackward(root *doc.Node, c *cursor) document.Operation {
	var prev *doc.Located
	for _, b := range root.Textblocks() {
		if (doc.Position{Path: b.Path}).SameBlock(doc.Position{Path: c.blockPath}) {
			break
		}
		b := b
		prev = &b
	}
	if prev == nil || cellOf(root, prev.Path) != cellOf(root, c.blockPath) {
		return nil
	}
	return document.DeleteRange{Range: doc.Range{
		From: doc.Position{Path: doc.ClonePath(prev.Path), Offset: prev.Node.ContentSize()},
		To:   doc.Position{Path: doc.ClonePath(c.blockPath)},
	}}
}

func cellOf(root *doc.Node, path []int) string {
	for depth := len(path) - 1; depth >= 0; depth-- {
		n := root.NodeAt(path[:depth])
		if n != nil && n.Type == doc.TypeTableCell {
			return n.ID
		}
	}
	return ""
}

func cloneAll(nodes []*doc.Node) []*doc.Node {
	out := make([]*doc.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}
