package doc

import (
	"fmt"
	"strconv"
	"strings"
)

// Position locates a point in document order: Path addresses a textblock,
// Offset counts inline units from its start.
type Position struct {
	Path   []int `json:"path"`
	Offset int   `json:"offset"`
}

func Pos(offset int, path ...int) Position {
	return Position{Path: path, Offset: offset}
}

func (p Position) Compare(o Position) int {
	for i := 0; i < len(p.Path) && i < len(o.Path); i++ {
		if p.Path[i] != o.Path[i] {
			if p.Path[i] < o.Path[i] {
				return -1
			}
			return 1
		}
	}
	if len(p.Path) != len(o.Path) {
		if len(p.Path) < len(o.Path) {
			return -1
		}
		return 1
	}
	switch {
	case p.Offset < o.Offset:
		return -1
	case p.Offset > o.Offset:
		return 1
	}
	return 0
}

func (p Position) Equal(o Position) bool {
	return p.Compare(o) == 0
}

func (p Position) SameBlock(o Position) bool {
	if len(p.Path) != len(o.Path) {
		return false
	}
	for i := range p.Path {
		if p.Path[i] != o.Path[i] {
			return false
		}
	}
	return true
}

func (p Position) String() string {
	parts := make([]string, len(p.Path))
	for i, idx := range p.Path {
		parts[i] = strconv.Itoa(idx)
	}
	return fmt.Sprintf("[%s]:%d", strings.Join(parts, "."), p.Offset)
}

// Range is an ordered pair of positions. A zero-width range is a cursor.
type Range struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}

var ErrRangeOrder = fmt.Errorf("range start is after range end")

// NewRange validates from <= to.
func NewRange(from, to Position) (Range, error) {
	if from.Compare(to) > 0 {
		return Range{}, ErrRangeOrder
	}
	return Range{From: from, To: to}, nil
}

func Cursor(p Position) Range {
	return Range{From: p, To: p}
}

func (r Range) IsEmpty() bool {
	return r.From.Compare(r.To) == 0
}

func (r Range) Valid() bool {
	return r.From.Compare(r.To) <= 0
}

func (r Range) String() string {
	return r.From.String() + "-" + r.To.String()
}

// Bias decides which side of an insertion at exactly its offset an anchor
// ends up on.
type Bias int

const (
	// StickLeft keeps the anchor before text inserted at its offset.
	StickLeft Bias = iota
	// StickRight moves the anchor past text inserted at its offset.
	StickRight
)

func (b Bias) String() string {
	if b == StickRight {
		return "right"
	}
	return "left"
}

// Anchor is a position expressed against block identity instead of paths,
// so structural edits that move blocks do not invalidate it.
type Anchor struct {
	BlockID string `json:"blockId"`
	Offset  int    `json:"offset"`
	Bias    Bias   `json:"bias"`
}

func (a Anchor) SamePoint(o Anchor) bool {
	return a.BlockID == o.BlockID && a.Offset == o.Offset
}

type AnchorRange struct {
	From Anchor `json:"from"`
	To   Anchor `json:"to"`
}

func (r AnchorRange) IsCollapsed() bool {
	return r.From.SamePoint(r.To)
}

func (r AnchorRange) Equal(o AnchorRange) bool {
	return r.From == o.From && r.To == o.To
}
