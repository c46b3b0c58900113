package document

import (
	"github.com/ether/etherdoc/lib/models/doc"
)

// Operation kinds, also used as history labels when no label is given.
const (
	KindInsertText      = "insertText"
	KindInsertInline    = "insertInline"
	KindDeleteRange     = "deleteRange"
	KindReplaceInline   = "replaceInline"
	KindWrapRange       = "wrapRange"
	KindUnwrapRange     = "unwrapRange"
	KindSetNodeAttrs    = "setNodeAttrs"
	KindSplitNode       = "splitNode"
	KindJoinNodes       = "joinNodes"
	KindMoveNode        = "moveNode"
	KindReplaceChildren = "replaceChildren"
	KindSequence        = "sequence"
	KindRestore         = "restore"
)

// Operation is an invertible edit primitive. apply works on the transaction
// clone and returns the inverse computed against the pre-edit state.
type Operation interface {
	Kind() string
	apply(tx *transaction) (Operation, error)
}

// InsertText inserts plain text carrying Marks at a position.
type InsertText struct {
	At    doc.Position `json:"at"`
	Text  string       `json:"text"`
	Marks []doc.Mark   `json:"marks,omitempty"`
}

// InsertInline inserts inline nodes (text runs, images) at a position.
type InsertInline struct {
	At    doc.Position `json:"at"`
	Nodes []*doc.Node  `json:"nodes"`
}

// DeleteRange removes everything between two positions, joining the
// boundary textblocks when they differ.
type DeleteRange struct {
	Range doc.Range `json:"range"`
}

// ReplaceInline swaps the inline content of a single-block range.
type ReplaceInline struct {
	Range doc.Range   `json:"range"`
	Nodes []*doc.Node `json:"nodes"`
}

// WrapRange adds Mark to the text in Range, or wraps the blocks covering
// Range into a new list of type Block.
type WrapRange struct {
	Range doc.Range         `json:"range"`
	Mark  *doc.Mark         `json:"mark,omitempty"`
	Block doc.NodeType      `json:"block,omitempty"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// UnwrapRange removes Mark from the text in Range, or, when Lift is set,
// lifts the list items covering Range out of their list.
type UnwrapRange struct {
	Range doc.Range `json:"range"`
	Mark  *doc.Mark `json:"mark,omitempty"`
	Lift  bool      `json:"lift,omitempty"`
}

// SetNodeAttrs sets attributes on the node at Path. An empty value removes
// the attribute.
type SetNodeAttrs struct {
	Path  []int             `json:"path"`
	Attrs map[string]string `json:"attrs"`
}

// SplitNode splits the node at Path. Offset is an inline offset for
// textblocks and a child index for containers. NewID, when set, is used for
// the created sibling. The sibling copies the split node's attributes unless
// NewAttrs is given or ExactAttrs is set.
type SplitNode struct {
	Path       []int             `json:"path"`
	Offset     int               `json:"offset"`
	NewID      string            `json:"newId,omitempty"`
	NewAttrs   map[string]string `json:"newAttrs,omitempty"`
	ExactAttrs bool              `json:"exactAttrs,omitempty"`
}

// JoinNodes merges the node at PathB into its previous sibling at PathA.
type JoinNodes struct {
	PathA []int `json:"pathA"`
	PathB []int `json:"pathB"`
}

// MoveNode moves the node at From into the node at To (resolved before the
// move) so that it ends up at Index among its new siblings.
type MoveNode struct {
	From  []int `json:"from"`
	To    []int `json:"to"`
	Index int   `json:"index"`
}

// ReplaceChildren replaces the children [From, To) of the node at Path.
type ReplaceChildren struct {
	Path  []int       `json:"path"`
	From  int         `json:"from"`
	To    int         `json:"to"`
	Nodes []*doc.Node `json:"nodes"`
}

// Sequence applies its operations atomically as one edit.
type Sequence struct {
	Ops []Operation `json:"ops"`
}

// Restore replaces the whole tree, as programmatic content replacement does.
type Restore struct {
	Doc *doc.Node `json:"doc"`
}

func (InsertText) Kind() string      { return KindInsertText }
func (InsertInline) Kind() string    { return KindInsertInline }
func (DeleteRange) Kind() string     { return KindDeleteRange }
func (ReplaceInline) Kind() string   { return KindReplaceInline }
func (WrapRange) Kind() string       { return KindWrapRange }
func (UnwrapRange) Kind() string     { return KindUnwrapRange }
func (SetNodeAttrs) Kind() string    { return KindSetNodeAttrs }
func (SplitNode) Kind() string       { return KindSplitNode }
func (JoinNodes) Kind() string       { return KindJoinNodes }
func (MoveNode) Kind() string        { return KindMoveNode }
func (ReplaceChildren) Kind() string { return KindReplaceChildren }
func (Sequence) Kind() string        { return KindSequence }
func (Restore) Kind() string         { return KindRestore }

// IsStructural reports the default history atomicity of an operation.
// Plain typing and deleting inside one block may be coalesced, everything
// else is its own step.
func IsStructural(op Operation) bool {
	switch o := op.(type) {
	case InsertText, ReplaceInline:
		return false
	case InsertInline:
		for _, n := range o.Nodes {
			if n.Type != doc.TypeTextRun {
				return true
			}
		}
		return false
	case DeleteRange:
		return !o.Range.From.SameBlock(o.Range.To)
	case Sequence:
		for _, inner := range o.Ops {
			if IsStructural(inner) {
				return true
			}
		}
		return len(o.Ops) == 0
	}
	return true
}
