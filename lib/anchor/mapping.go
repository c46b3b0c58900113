package anchor

import (
	"github.com/ether/etherdoc/lib/models/doc"
)

// MapAnchor moves an anchor through every change of a diff. lost reports
// that the anchor's block was removed and the anchor fell back onto the
// change's target.
func MapAnchor(a doc.Anchor, diff doc.Diff) (doc.Anchor, bool) {
	lost := false
	for _, c := range diff.Changes {
		if c.BlockID != a.BlockID {
			continue
		}
		switch c.Kind {
		case doc.ChangeSplice:
			a.Offset = mapSplice(a.Offset, a.Bias, c)
		case doc.ChangeSplit:
			if a.Offset > c.At || (a.Offset == c.At && a.Bias == doc.StickRight) {
				a.BlockID = c.TargetID
				a.Offset -= c.At
			}
		case doc.ChangeMerge:
			a.BlockID = c.TargetID
			a.Offset += c.TargetAt
		case doc.ChangeRemoved:
			a.BlockID = c.TargetID
			a.Offset = c.TargetAt
			lost = true
		}
	}
	return a, lost
}

// mapSplice follows the usual position mapping rules: offsets before the
// change stay, offsets after it shift, an offset on the edge of a deletion
// stays on that edge, and an offset at a pure insertion point or strictly
// inside a deletion goes where its bias points.
func mapSplice(offset int, bias doc.Bias, c doc.BlockChange) int {
	end := c.At + c.Deleted
	switch {
	case offset < c.At:
		return offset
	case offset > end:
		return offset - c.Deleted + c.Inserted
	}
	right := bias == doc.StickRight
	if c.Deleted > 0 {
		switch offset {
		case c.At:
			right = false
		case end:
			right = true
		}
	}
	if right {
		return c.At + c.Inserted
	}
	return c.At
}

// Remap maps both ends of r. degraded is set when a non-empty range
// collapses or one of its ends loses its block. Ends that cross inside one
// block are clamped onto the start.
func Remap(r doc.AnchorRange, diff doc.Diff) (doc.AnchorRange, bool) {
	if diff.Empty() {
		return r, false
	}
	from, lostFrom := MapAnchor(r.From, diff)
	to, lostTo := MapAnchor(r.To, diff)
	if from.BlockID == to.BlockID && from.Offset > to.Offset {
		to.Offset = from.Offset
	}
	out := doc.AnchorRange{From: from, To: to}
	degraded := lostFrom || lostTo || (!r.IsCollapsed() && out.IsCollapsed())
	return out, degraded
}

// Policy returns the biases a range uses for its edges.
type Policy struct {
	From doc.Bias
	To   doc.Bias
}

var (
	// CommentPolicy never grows a range from typing at its edges.
	CommentPolicy = Policy{From: doc.StickRight, To: doc.StickLeft}
	// SelectionPolicy keeps the trailing edge after typed text.
	SelectionPolicy = Policy{From: doc.StickLeft, To: doc.StickRight}
)

func (p Policy) Apply(r doc.AnchorRange) doc.AnchorRange {
	r.From.Bias = p.From
	r.To.Bias = p.To
	return r
}
