package doc

import "sort"

type MarkType string

const (
	MarkBold      MarkType = "bold"
	MarkItalic    MarkType = "italic"
	MarkUnderline MarkType = "underline"
	MarkStrike    MarkType = "strike"
	MarkColor     MarkType = "color"
	MarkLink      MarkType = "link"
	MarkComment   MarkType = "comment"
)

var markOrder = map[MarkType]int{
	MarkLink:      0,
	MarkComment:   1,
	MarkBold:      2,
	MarkItalic:    3,
	MarkUnderline: 4,
	MarkStrike:    5,
	MarkColor:     6,
}

func (t MarkType) Valid() bool {
	_, ok := markOrder[t]
	return ok
}

// Inclusive marks are inherited by text typed at their edge. Link and
// comment marks are anchors and never grow by typing at a boundary.
func (t MarkType) Inclusive() bool {
	return t != MarkLink && t != MarkComment
}

// Exclusive marks allow one instance per run; comment marks stack by id.
func (t MarkType) Exclusive() bool {
	return t != MarkComment
}

type Mark struct {
	Type  MarkType          `json:"type"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

func Bold() Mark                  { return Mark{Type: MarkBold} }
func Italic() Mark                { return Mark{Type: MarkItalic} }
func Underline() Mark             { return Mark{Type: MarkUnderline} }
func Link(href string) Mark       { return Mark{Type: MarkLink, Attrs: map[string]string{"href": href}} }
func Color(value string) Mark     { return Mark{Type: MarkColor, Attrs: map[string]string{"value": value}} }
func CommentMark(id string) Mark  { return Mark{Type: MarkComment, Attrs: map[string]string{"id": id}} }
func (m Mark) Attr(k string) string { return m.Attrs[k] }

func (m Mark) Clone() Mark {
	return Mark{Type: m.Type, Attrs: cloneAttrs(m.Attrs)}
}

func (m Mark) Equal(o Mark) bool {
	return m.Type == o.Type && attrsEqual(m.Attrs, o.Attrs)
}

// SameSlot reports whether o would replace m in a mark set.
func (m Mark) SameSlot(o Mark) bool {
	if m.Type != o.Type {
		return false
	}
	if m.Type.Exclusive() {
		return true
	}
	return m.Attr("id") == o.Attr("id")
}

// SortMarks returns marks in canonical order so that equal sets compare
// equal element by element.
func SortMarks(marks []Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]Mark, len(marks))
	for i, m := range marks {
		out[i] = m.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := markOrder[out[i].Type], markOrder[out[j].Type]
		if oi != oj {
			return oi < oj
		}
		return out[i].Attr("id") < out[j].Attr("id")
	})
	return out
}

func MarksEqual(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// AddMark returns the set with m added, replacing any mark in the same slot.
func AddMark(set []Mark, m Mark) []Mark {
	out := make([]Mark, 0, len(set)+1)
	for _, existing := range set {
		if !existing.SameSlot(m) {
			out = append(out, existing)
		}
	}
	return SortMarks(append(out, m))
}

// RemoveMark drops every mark sharing m's slot. An exclusive mark type
// without attrs removes all marks of that type.
func RemoveMark(set []Mark, m Mark) []Mark {
	out := make([]Mark, 0, len(set))
	for _, existing := range set {
		if existing.Type == m.Type && (m.Type.Exclusive() || len(m.Attrs) == 0 || existing.SameSlot(m)) {
			continue
		}
		out = append(out, existing)
	}
	return SortMarks(out)
}

func HasMark(set []Mark, m Mark) bool {
	for _, existing := range set {
		if existing.SameSlot(m) {
			return true
		}
	}
	return false
}

// InclusiveMarks filters the set down to marks inherited by typing.
func InclusiveMarks(set []Mark) []Mark {
	var out []Mark
	for _, m := range set {
		if m.Type.Inclusive() {
			out = append(out, m.Clone())
		}
	}
	return SortMarks(out)
}
