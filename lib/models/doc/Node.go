package doc

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type NodeType string

const (
	TypeDocument    NodeType = "doc"
	TypeParagraph   NodeType = "paragraph"
	TypeHeading     NodeType = "heading"
	TypeBulletList  NodeType = "bulletList"
	TypeOrderedList NodeType = "orderedList"
	TypeListItem    NodeType = "listItem"
	TypeTable       NodeType = "table"
	TypeTableRow    NodeType = "tableRow"
	TypeTableCell   NodeType = "tableCell"
	TypeImage       NodeType = "image"
	TypeTextRun     NodeType = "text"
	TypePageBreak   NodeType = "pageBreak"
)

// Attribute keys with a meaning inside the core.
const (
	AttrNestLevel  = "nestLevel"
	AttrMarginLeft = "marginLeft"
	AttrTextAlign  = "textAlign"
	AttrBackground = "backgroundColor"
	AttrLevel      = "level"
	AttrSrc        = "src"
	AttrAlt        = "alt"
	AttrCaption    = "caption"
	AttrWidth      = "width"
	AttrHeight     = "height"
	AttrStart      = "start"
)

var validTypes = map[NodeType]struct{}{
	TypeDocument: {}, TypeParagraph: {}, TypeHeading: {}, TypeBulletList: {},
	TypeOrderedList: {}, TypeListItem: {}, TypeTable: {}, TypeTableRow: {},
	TypeTableCell: {}, TypeImage: {}, TypeTextRun: {}, TypePageBreak: {},
}

func (t NodeType) Valid() bool {
	_, ok := validTypes[t]
	return ok
}

// IsTextblock reports whether nodes of this type hold inline content.
func (t NodeType) IsTextblock() bool {
	return t == TypeParagraph || t == TypeHeading
}

func (t NodeType) IsList() bool {
	return t == TypeBulletList || t == TypeOrderedList
}

func (t NodeType) IsInline() bool {
	return t == TypeTextRun || t == TypeImage
}

func (t NodeType) IsLeaf() bool {
	return t == TypeTextRun || t == TypeImage || t == TypePageBreak
}

// Node is an element of the document tree. Text runs carry Text and Marks,
// every other node carries an ID that stays stable across structural edits.
type Node struct {
	ID      string            `json:"id,omitempty"`
	Type    NodeType          `json:"type"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Content []*Node           `json:"content,omitempty"`
	Text    string            `json:"text,omitempty"`
	Marks   []Mark            `json:"marks,omitempty"`
}

func NewID() string {
	return uuid.NewString()
}

func NewNode(t NodeType, attrs map[string]string, content ...*Node) *Node {
	return &Node{
		ID:      NewID(),
		Type:    t,
		Attrs:   cloneAttrs(attrs),
		Content: content,
	}
}

func NewText(text string, marks ...Mark) *Node {
	return &Node{Type: TypeTextRun, Text: text, Marks: SortMarks(marks)}
}

func NewParagraph(text string, marks ...Mark) *Node {
	p := NewNode(TypeParagraph, nil)
	if text != "" {
		p.Content = []*Node{NewText(text, marks...)}
	}
	return p
}

func NewDocument(blocks ...*Node) *Node {
	if len(blocks) == 0 {
		blocks = []*Node{NewParagraph("")}
	}
	return NewNode(TypeDocument, nil, blocks...)
}

func NewImage(src, alt, caption string) *Node {
	attrs := map[string]string{AttrSrc: src}
	if alt != "" {
		attrs[AttrAlt] = alt
	}
	if caption != "" {
		attrs[AttrCaption] = caption
	}
	return NewNode(TypeImage, attrs)
}

// NewTable builds a rows x cols table with one empty paragraph per cell.
func NewTable(rows, cols int) *Node {
	table := NewNode(TypeTable, nil)
	for r := 0; r < rows; r++ {
		row := NewNode(TypeTableRow, nil)
		for c := 0; c < cols; c++ {
			row.Content = append(row.Content, NewNode(TypeTableCell, nil, NewParagraph("")))
		}
		table.Content = append(table.Content, row)
	}
	return table
}

func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

func (n *Node) IntAttr(key string) int {
	v, err := strconv.Atoi(n.Attr(key))
	if err != nil {
		return 0
	}
	return v
}

func (n *Node) SetAttr(key, value string) {
	if value == "" {
		delete(n.Attrs, key)
		if len(n.Attrs) == 0 {
			n.Attrs = nil
		}
		return
	}
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
}

// InlineSize is the number of offset units the node occupies inside a
// textblock: runes for text, one for an image.
func (n *Node) InlineSize() int {
	switch n.Type {
	case TypeTextRun:
		return len([]rune(n.Text))
	case TypeImage:
		return 1
	}
	return 0
}

// ContentSize is the inline length of a textblock.
func (n *Node) ContentSize() int {
	size := 0
	for _, c := range n.Content {
		size += c.InlineSize()
	}
	return size
}

// TextContent concatenates the text of the subtree. Images contribute the
// object replacement character so offsets line up with ContentSize.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n *Node) writeText(sb *strings.Builder) {
	switch n.Type {
	case TypeTextRun:
		sb.WriteString(n.Text)
		return
	case TypeImage:
		sb.WriteRune(ObjectReplacement)
		return
	}
	for _, c := range n.Content {
		c.writeText(sb)
	}
}

// ObjectReplacement stands in for an inline image in text content.
const ObjectReplacement = '￼'

func (n *Node) IsEmptyTextblock() bool {
	return n.Type.IsTextblock() && n.ContentSize() == 0
}

// Clone deep copies the subtree, keeping IDs.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		ID:    n.ID,
		Type:  n.Type,
		Attrs: cloneAttrs(n.Attrs),
		Text:  n.Text,
	}
	if len(n.Marks) > 0 {
		c.Marks = make([]Mark, len(n.Marks))
		for i, m := range n.Marks {
			c.Marks[i] = m.Clone()
		}
	}
	if len(n.Content) > 0 {
		c.Content = make([]*Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = child.Clone()
		}
	}
	return c
}

// CloneFresh deep copies the subtree assigning new IDs to every node.
func (n *Node) CloneFresh() *Node {
	c := n.Clone()
	c.Walk(func(node *Node, _ []int) bool {
		if node.Type != TypeTextRun {
			node.ID = NewID()
		}
		return true
	})
	return c
}

// Equal compares two subtrees structurally, IDs included.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.ID != o.ID || n.Type != o.Type || n.Text != o.Text {
		return false
	}
	if !attrsEqual(n.Attrs, o.Attrs) || !MarksEqual(n.Marks, o.Marks) {
		return false
	}
	if len(n.Content) != len(o.Content) {
		return false
	}
	for i := range n.Content {
		if !n.Content[i].Equal(o.Content[i]) {
			return false
		}
	}
	return true
}

// Walk visits the subtree depth first in document order. Returning false
// from fn skips the children of the visited node.
func (n *Node) Walk(fn func(node *Node, path []int) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(path []int, fn func(*Node, []int) bool) {
	if !fn(n, path) {
		return
	}
	for i, c := range n.Content {
		childPath := make([]int, len(path)+1)
		copy(childPath, path)
		childPath[len(path)] = i
		c.walk(childPath, fn)
	}
}

// NodeAt resolves a child path from n. A nil result means the path is stale.
func (n *Node) NodeAt(path []int) *Node {
	cur := n
	for _, idx := range path {
		if idx < 0 || idx >= len(cur.Content) {
			return nil
		}
		cur = cur.Content[idx]
	}
	return cur
}

// FindByID returns the node carrying id and its path.
func (n *Node) FindByID(id string) (*Node, []int) {
	var found *Node
	var foundPath []int
	n.Walk(func(node *Node, path []int) bool {
		if found != nil {
			return false
		}
		if node.ID == id && node.Type != TypeTextRun {
			found = node
			foundPath = path
			return false
		}
		return true
	})
	return found, foundPath
}

// Textblocks lists every textblock in document order with its path.
func (n *Node) Textblocks() []Located {
	var blocks []Located
	n.Walk(func(node *Node, path []int) bool {
		if node.Type.IsTextblock() {
			blocks = append(blocks, Located{Node: node, Path: path})
			return false
		}
		return !node.Type.IsLeaf()
	})
	return blocks
}

// Located pairs a node with its path from the root.
type Located struct {
	Node *Node
	Path []int
}

func cloneAttrs(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	c := make(map[string]string, len(attrs))
	for k, v := range attrs {
		c[k] = v
	}
	return c
}

func CloneAttrs(attrs map[string]string) map[string]string {
	return cloneAttrs(attrs)
}

func attrsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func ClonePath(path []int) []int {
	c := make([]int, len(path))
	copy(c, path)
	return c
}
