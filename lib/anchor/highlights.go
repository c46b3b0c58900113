package anchor

import (
	"fmt"

	"github.com/ether/etherdoc/lib/models/doc"
)

const HighlightPrefix = "highlight:"

// Highlights keeps search matches anchored so they follow later edits.
// Matches whose text gets deleted disappear.
type Highlights struct {
	resolver *Resolver
}

func NewHighlights(r *Resolver) *Highlights {
	return &Highlights{resolver: r}
}

func (h *Highlights) Replace(ranges []doc.AnchorRange) {
	h.Clear()
	for i, r := range ranges {
		h.resolver.Track(fmt.Sprintf("%s%06d", HighlightPrefix, i), CommentPolicy.Apply(r))
	}
}

func (h *Highlights) Clear() {
	for _, key := range h.resolver.Keys(HighlightPrefix) {
		h.resolver.Untrack(key)
	}
}

// Ranges returns the live matches in the order they were found.
func (h *Highlights) Ranges() []doc.AnchorRange {
	var out []doc.AnchorRange
	for _, key := range h.resolver.Keys(HighlightPrefix) {
		t, _ := h.resolver.Get(key)
		if t.Degraded || t.Range.IsCollapsed() {
			h.resolver.Untrack(key)
			continue
		}
		out = append(out, t.Range)
	}
	return out
}
