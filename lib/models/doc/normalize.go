package doc

import (
	"fmt"
	"strconv"
)

// Normalize brings the tree into canonical form in place: adjacent text runs
// with equal marks are merged, empty runs are dropped, and the nestLevel of
// every list is recomputed as the number of lists of its own kind enclosing
// it, itself included. None of this changes inline offsets or block
// identity.
func Normalize(root *Node) {
	normalize(root, make(map[NodeType]int))
}

func normalize(n *Node, depth map[NodeType]int) {
	if n.Type.IsTextblock() {
		n.Content = mergeRuns(n.Content)
		return
	}
	if n.Type.IsList() {
		depth[n.Type]++
		defer func() { depth[n.Type]-- }()
		n.SetAttr(AttrNestLevel, strconv.Itoa(depth[n.Type]))
	}
	for _, c := range n.Content {
		normalize(c, depth)
	}
}

func mergeRuns(content []*Node) []*Node {
	out := make([]*Node, 0, len(content))
	for _, c := range content {
		if c.Type == TypeTextRun {
			if c.Text == "" {
				continue
			}
			c.Marks = SortMarks(c.Marks)
			if len(out) > 0 {
				last := out[len(out)-1]
				if last.Type == TypeTextRun && MarksEqual(last.Marks, c.Marks) {
					last.Text += c.Text
					continue
				}
			}
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ListLevel is the nestLevel of the innermost list on the way from the
// root to the node at path: the number of lists of that list's kind along
// the path. Lists of the other kind do not count.
func ListLevel(root *Node, path []int) int {
	var kinds []NodeType
	cur := root
	for _, idx := range path {
		if idx < 0 || idx >= len(cur.Content) {
			break
		}
		cur = cur.Content[idx]
		if cur.Type.IsList() {
			kinds = append(kinds, cur.Type)
		}
	}
	if len(kinds) == 0 {
		return 0
	}
	own := kinds[len(kinds)-1]
	level := 0
	for _, k := range kinds {
		if k == own {
			level++
		}
	}
	return level
}

// Check validates the content rules of the tree.
func Check(root *Node) error {
	if root.Type != TypeDocument {
		return fmt.Errorf("root must be %s, got %s", TypeDocument, root.Type)
	}
	if len(root.Content) == 0 {
		return fmt.Errorf("document has no blocks")
	}
	seen := make(map[string]struct{})
	return check(root, nil, seen)
}

func check(n *Node, path []int, seen map[string]struct{}) error {
	if !n.Type.Valid() {
		return fmt.Errorf("unknown node type %q at %v", n.Type, path)
	}
	if n.Type != TypeTextRun {
		if n.ID == "" {
			return fmt.Errorf("%s at %v has no id", n.Type, path)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node id %s at %v", n.ID, path)
		}
		seen[n.ID] = struct{}{}
	}
	allowed := func(child *Node) bool { return false }
	minChildren := 0
	switch n.Type {
	case TypeDocument, TypeTableCell:
		allowed = func(c *Node) bool { return isBlock(c.Type) }
		minChildren = 1
	case TypeParagraph, TypeHeading:
		allowed = func(c *Node) bool { return c.Type.IsInline() }
	case TypeBulletList, TypeOrderedList:
		allowed = func(c *Node) bool { return c.Type == TypeListItem }
		minChildren = 1
	case TypeListItem:
		allowed = func(c *Node) bool { return c.Type.IsTextblock() || c.Type.IsList() }
		minChildren = 1
	case TypeTable:
		allowed = func(c *Node) bool { return c.Type == TypeTableRow }
		minChildren = 1
	case TypeTableRow:
		allowed = func(c *Node) bool { return c.Type == TypeTableCell }
		minChildren = 1
	}
	if len(n.Content) < minChildren {
		return fmt.Errorf("%s at %v needs at least %d children", n.Type, path, minChildren)
	}
	for i, c := range n.Content {
		if !allowed(c) {
			return fmt.Errorf("%s not allowed inside %s at %v", c.Type, n.Type, path)
		}
		if err := check(c, append(ClonePath(path), i), seen); err != nil {
			return err
		}
	}
	return nil
}

func isBlock(t NodeType) bool {
	return t.IsTextblock() || t.IsList() || t == TypeTable || t == TypePageBreak
}

func IsBlock(t NodeType) bool {
	return isBlock(t)
}
