package document

import (
	"testing"

	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoc(t *testing.T, blocks ...*doc.Node) *Document {
	t.Helper()
	d, err := New("doc-1", doc.NewDocument(blocks...), nil)
	require.NoError(t, err)
	return d
}

func paragraphs(texts ...string) []*doc.Node {
	out := make([]*doc.Node, len(texts))
	for i, text := range texts {
		out[i] = doc.NewParagraph(text)
	}
	return out
}

func blockTexts(root *doc.Node) []string {
	var out []string
	for _, b := range root.Textblocks() {
		out = append(out, b.Node.TextContent())
	}
	return out
}

func undo(t *testing.T, d *Document, result *EditResult) {
	t.Helper()
	_, err := d.ApplyEdit(result.Inverse, WithOrigin(OriginHistory))
	require.NoError(t, err)
}

func TestInsertText(t *testing.T) {
	d := newDoc(t, paragraphs("Hello world")...)
	original := d.Snapshot()
	blockID := d.Root().Content[0].ID

	result, err := d.ApplyEdit(InsertText{At: doc.Pos(5, 0), Text: ","})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello, world"}, blockTexts(d.Root()))
	assert.Equal(t, 1, result.Version)
	assert.False(t, result.Structural)
	assert.Equal(t, KindInsertText, result.Label)
	if diff := cmp.Diff([]doc.BlockChange{doc.Splice(blockID, 5, 0, 1)}, result.Diff.Changes); diff != "" {
		t.Fatalf("unexpected diff (-want +got):\n%s", diff)
	}
	assert.Equal(t, doc.Range{From: doc.Pos(5, 0), To: doc.Pos(6, 0)}, result.After)

	undo(t, d, result)
	assert.True(t, original.Equal(d.Root()), "inverse must restore the tree")
}

func TestInsertTextRejectsLineBreaks(t *testing.T) {
	d := newDoc(t, paragraphs("Hello")...)
	calls := 0
	d.Subscribe(func(*EditResult) { calls++ })

	_, err := d.ApplyEdit(InsertText{At: doc.Pos(0, 0), Text: "a\nb"})
	require.Error(t, err)
	assert.Equal(t, exception.CodeInvalidOperation, exception.CodeOf(err))
	assert.Equal(t, 0, calls)
	assert.Equal(t, []string{"Hello"}, blockTexts(d.Root()))
}

func TestApplyEditRejectsBadRanges(t *testing.T) {
	d := newDoc(t, paragraphs("Hello", "world")...)

	testCases := []struct {
		name  string
		op    Operation
		check func(error) bool
	}{
		{"reversed range", DeleteRange{Range: doc.Range{From: doc.Pos(3, 1), To: doc.Pos(1, 0)}}, exception.IsInvalidRange},
		{"stale path", DeleteRange{Range: doc.Range{From: doc.Pos(0, 4), To: doc.Pos(1, 4)}}, exception.IsInvalidRange},
		{"offset past end", InsertText{At: doc.Pos(9, 0), Text: "x"}, exception.IsInvalidRange},
		{"empty delete", DeleteRange{Range: doc.Range{From: doc.Pos(2, 0), To: doc.Pos(2, 0)}}, exception.IsEmptyRange},
		{"unknown node", SetNodeAttrs{Path: []int{7}, Attrs: map[string]string{"textAlign": "center"}}, exception.IsUnknownNode},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.ApplyEdit(tc.op)
			require.Error(t, err)
			assert.True(t, tc.check(err), "unexpected error %v", err)
			assert.Equal(t, 0, d.Version())
		})
	}
}

func TestExactlyOneNotificationPerEdit(t *testing.T) {
	d := newDoc(t, paragraphs("Hello")...)
	var seen []*EditResult
	d.Subscribe(func(r *EditResult) { seen = append(seen, r) })

	_, err := d.ApplyEdit(Sequence{Ops: []Operation{
		InsertText{At: doc.Pos(5, 0), Text: " there"},
		SplitNode{Path: []int{0}, Offset: 5},
		InsertText{At: doc.Pos(0, 1), Text: "!"},
	}}, WithLabel("typing"))
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, "typing", seen[0].Label)
	assert.True(t, seen[0].Structural)
	assert.Equal(t, []string{"Hello", "! there"}, blockTexts(d.Root()))
}

func TestNoReentrantEdits(t *testing.T) {
	d := newDoc(t, paragraphs("Hello")...)
	var inner error
	d.Subscribe(func(r *EditResult) {
		_, inner = d.ApplyEdit(InsertText{At: doc.Pos(0, 0), Text: "x"})
	})

	_, err := d.ApplyEdit(InsertText{At: doc.Pos(0, 0), Text: "y"})
	require.NoError(t, err)
	require.Error(t, inner)
	assert.Equal(t, []string{"yHello"}, blockTexts(d.Root()))
}

func TestDeleteAcrossBlocks(t *testing.T) {
	d := newDoc(t, paragraphs("Hello", "middle", "world")...)
	original := d.Snapshot()
	first, middle, last := original.Content[0].ID, original.Content[1].ID, original.Content[2].ID

	result, err := d.ApplyEdit(DeleteRange{Range: doc.Range{From: doc.Pos(3, 0), To: doc.Pos(2, 2)}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Helrld"}, blockTexts(d.Root()))
	assert.True(t, result.Structural)
	want := []doc.BlockChange{
		doc.Splice(first, 3, 2, 3),
		doc.Removed(middle, first, 3),
		doc.Splice(last, 0, 2, 0),
		doc.Merge(last, first, 3),
	}
	if diff := cmp.Diff(want, result.Diff.Changes); diff != "" {
		t.Fatalf("unexpected diff (-want +got):\n%s", diff)
	}

	undo(t, d, result)
	assert.True(t, original.Equal(d.Root()))
}

func TestDeleteAcrossListItems(t *testing.T) {
	list := doc.NewNode(doc.TypeBulletList, nil,
		doc.NewNode(doc.TypeListItem, nil, doc.NewParagraph("one")),
		doc.NewNode(doc.TypeListItem, nil, doc.NewParagraph("two")),
		doc.NewNode(doc.TypeListItem, nil, doc.NewParagraph("three")),
	)
	d := newDoc(t, list)
	original := d.Snapshot()

	result, err := d.ApplyEdit(DeleteRange{Range: doc.Range{From: doc.Pos(1, 0, 0, 0), To: doc.Pos(1, 0, 1, 0)}})
	require.NoError(t, err)

	assert.Equal(t, []string{"owo", "three"}, blockTexts(d.Root()))
	assert.Len(t, d.Root().Content[0].Content, 2)

	undo(t, d, result)
	assert.True(t, original.Equal(d.Root()))
}

func TestDeleteAcrossTableCellsIsRejected(t *testing.T) {
	d := newDoc(t, doc.NewTable(1, 2))
	_, err := d.ApplyEdit(DeleteRange{Range: doc.Range{From: doc.Pos(0, 0, 0, 0, 0), To: doc.Pos(0, 0, 0, 1, 0)}})
	require.Error(t, err)
	assert.True(t, exception.IsInvalidRange(err))
}

func TestWrapAndUnwrapMark(t *testing.T) {
	d := newDoc(t, paragraphs("Hello world")...)
	original := d.Snapshot()
	bold := doc.Bold()

	result, err := d.ApplyEdit(WrapRange{Range: doc.Range{From: doc.Pos(6, 0), To: doc.Pos(11, 0)}, Mark: &bold})
	require.NoError(t, err)
	assert.True(t, result.Diff.Empty())

	runs := d.Root().Content[0].Content
	require.Len(t, runs, 2)
	assert.Equal(t, "world", runs[1].Text)
	assert.True(t, doc.HasMark(runs[1].Marks, bold))

	span, ok := d.MarkSpan(bold)
	require.True(t, ok)
	assert.Equal(t, doc.Range{From: doc.Pos(6, 0), To: doc.Pos(11, 0)}, span)

	_, err = d.ApplyEdit(UnwrapRange{Range: doc.Range{From: doc.Pos(0, 0), To: doc.Pos(11, 0)}, Mark: &bold})
	require.NoError(t, err)
	assert.True(t, original.Equal(d.Root()))
}

func TestMarksAt(t *testing.T) {
	link := doc.Link("https://example.com")
	p := doc.NewNode(doc.TypeParagraph, nil,
		doc.NewText("Hello", doc.Bold()),
		doc.NewText(" "),
		doc.NewText("world", link),
	)
	d := newDoc(t, p)

	testCases := []struct {
		name string
		at   int
		want []doc.Mark
	}{
		{"end of bold run", 5, []doc.Mark{doc.Bold()}},
		{"start of block", 0, []doc.Mark{doc.Bold()}},
		{"plain text", 6, nil},
		{"inside link", 8, []doc.Mark{link}},
		{"after link", 11, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.MarksAt(doc.Pos(tc.at, 0))
			require.NoError(t, err)
			assert.True(t, doc.MarksEqual(tc.want, got), "got %v", got)
		})
	}
}

func TestWrapIntoListAndLift(t *testing.T) {
	d := newDoc(t, paragraphs("a", "b", "c")...)
	original := d.Snapshot()

	wrapped, err := d.ApplyEdit(WrapRange{Range: doc.Range{From: doc.Pos(0, 0), To: doc.Pos(0, 2)}, Block: doc.TypeBulletList})
	require.NoError(t, err)
	require.Len(t, d.Root().Content, 1)
	list := d.Root().Content[0]
	assert.Equal(t, doc.TypeBulletList, list.Type)
	assert.Equal(t, "1", list.Attr(doc.AttrNestLevel))
	assert.Len(t, list.Content, 3)
	assert.True(t, wrapped.Diff.Empty())
	listID := list.ID
	afterWrap := d.Snapshot()

	lifted, err := d.ApplyEdit(UnwrapRange{Range: doc.Range{From: doc.Pos(0, 0, 1, 0), To: doc.Pos(1, 0, 1, 0)}, Lift: true})
	require.NoError(t, err)
	root := d.Root()
	require.Len(t, root.Content, 3)
	assert.Equal(t, listID, root.Content[0].ID)
	assert.Equal(t, doc.TypeParagraph, root.Content[1].Type)
	assert.Equal(t, "b", root.Content[1].TextContent())
	assert.Equal(t, doc.TypeBulletList, root.Content[2].Type)
	assert.NotEqual(t, listID, root.Content[2].ID)

	undo(t, d, lifted)
	assert.True(t, afterWrap.Equal(d.Root()))
	undo(t, d, wrapped)
	assert.True(t, original.Equal(d.Root()))
}

func TestNestLevelCountsListsOfSameKind(t *testing.T) {
	inner := doc.NewNode(doc.TypeOrderedList, nil, doc.NewNode(doc.TypeListItem, nil, doc.NewParagraph("step")))
	deep := doc.NewNode(doc.TypeBulletList, nil, doc.NewNode(doc.TypeListItem, nil, doc.NewParagraph("note")))
	inner.Content[0].Content = append(inner.Content[0].Content, deep)
	outer := doc.NewNode(doc.TypeBulletList, nil, doc.NewNode(doc.TypeListItem, nil, doc.NewParagraph("topic"), inner))
	d := newDoc(t, outer)

	levels := func() []string {
		root := d.Root()
		return []string{
			root.Content[0].Attr(doc.AttrNestLevel),
			root.NodeAt([]int{0, 0, 1}).Attr(doc.AttrNestLevel),
			root.NodeAt([]int{0, 0, 1, 0, 1}).Attr(doc.AttrNestLevel),
		}
	}
	assert.Equal(t, []string{"1", "1", "2"}, levels())
	assert.Equal(t, 1, doc.ListLevel(d.Root(), []int{0, 0, 1, 0}))
	assert.Equal(t, 2, doc.ListLevel(d.Root(), []int{0, 0, 1, 0, 1, 0}))

	_, err := d.ApplyEdit(MoveNode{From: []int{0, 0, 1, 0, 1}, To: []int{}, Index: 1})
	require.NoError(t, err)
	moved := d.Root().Content[1]
	assert.Equal(t, deep.ID, moved.ID)
	assert.Equal(t, "1", moved.Attr(doc.AttrNestLevel), "the level is recomputed after a move")
	assert.Equal(t, "1", d.Root().NodeAt([]int{0, 0, 1}).Attr(doc.AttrNestLevel))
}

func TestSplitAndJoin(t *testing.T) {
	d := newDoc(t, paragraphs("Hello world")...)
	original := d.Snapshot()
	id := original.Content[0].ID

	result, err := d.ApplyEdit(SplitNode{Path: []int{0}, Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " world"}, blockTexts(d.Root()))
	newID := d.Root().Content[1].ID
	if diff := cmp.Diff([]doc.BlockChange{doc.Split(id, 5, newID)}, result.Diff.Changes); diff != "" {
		t.Fatalf("unexpected diff (-want +got):\n%s", diff)
	}

	joined, err := d.ApplyEdit(result.Inverse)
	require.NoError(t, err)
	assert.True(t, original.Equal(d.Root()))

	_, err = d.ApplyEdit(joined.Inverse)
	require.NoError(t, err)
	assert.Equal(t, newID, d.Root().Content[1].ID, "splitting again recreates the same sibling")
}

func TestMoveNode(t *testing.T) {
	d := newDoc(t, paragraphs("a", "b", "c")...)
	original := d.Snapshot()

	result, err := d.ApplyEdit(MoveNode{From: []int{2}, To: []int{}, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, blockTexts(d.Root()))
	assert.True(t, result.Diff.Empty())

	undo(t, d, result)
	assert.True(t, original.Equal(d.Root()))
}

func TestSetNodeAttrs(t *testing.T) {
	d := newDoc(t, paragraphs("a")...)
	result, err := d.ApplyEdit(SetNodeAttrs{Path: []int{0}, Attrs: map[string]string{doc.AttrMarginLeft: "40px"}})
	require.NoError(t, err)
	assert.Equal(t, "40px", d.Root().Content[0].Attr(doc.AttrMarginLeft))

	undo(t, d, result)
	assert.Nil(t, d.Root().Content[0].Attrs)
}

func TestRestoreMapsRemovedBlocks(t *testing.T) {
	d := newDoc(t, paragraphs("a", "b")...)
	original := d.Snapshot()
	replacement := doc.NewDocument(doc.NewParagraph("fresh"))

	result, err := d.ApplyEdit(Restore{Doc: replacement})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, blockTexts(d.Root()))
	require.Len(t, result.Diff.Changes, 2)
	assert.Equal(t, doc.ChangeRemoved, result.Diff.Changes[0].Kind)
	assert.Equal(t, replacement.Content[0].ID, result.Diff.Changes[0].TargetID)

	undo(t, d, result)
	assert.True(t, original.Equal(d.Root()))
}

func TestAnchorsFollowBlockIdentity(t *testing.T) {
	d := newDoc(t, paragraphs("a", "bcd")...)
	anchor, err := d.AnchorOf(doc.Pos(2, 1), doc.StickLeft)
	require.NoError(t, err)

	_, err = d.ApplyEdit(MoveNode{From: []int{1}, To: []int{}, Index: 0})
	require.NoError(t, err)

	pos, ok := d.PositionOf(anchor)
	require.True(t, ok)
	assert.Equal(t, doc.Pos(2, 0), pos)
}

func TestTextQueries(t *testing.T) {
	d := newDoc(t, paragraphs("Hello world", "world peace")...)

	text, err := d.TextBetween(doc.Range{From: doc.Pos(6, 0), To: doc.Pos(5, 1)})
	require.NoError(t, err)
	assert.Equal(t, "world\nworld", text)

	found := d.FindText("world")
	require.Len(t, found, 2)
	assert.Equal(t, doc.Range{From: doc.Pos(0, 1), To: doc.Pos(5, 1)}, found[1])
}

func TestOperationCodec(t *testing.T) {
	bold := doc.Bold()
	op := Sequence{Ops: []Operation{
		InsertText{At: doc.Pos(1, 0, 2), Text: "hi"},
		WrapRange{Range: doc.Range{From: doc.Pos(0, 0), To: doc.Pos(2, 0)}, Mark: &bold},
	}}

	encoded, err := EncodeOperation(op)
	require.NoError(t, err)
	decoded, err := DecodeOperation(encoded)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)

	_, err = DecodeOperation([]byte(`{"kind":"explode","op":{}}`))
	require.Error(t, err)
	assert.Equal(t, exception.CodeInvalidOperation, exception.CodeOf(err))
}

func TestRangeHasMark(t *testing.T) {
	p := doc.NewNode(doc.TypeParagraph, nil,
		doc.NewText("bold", doc.Bold()),
		doc.NewText(" plain"),
	)
	d := newDoc(t, p, doc.NewParagraph("x", doc.Bold()))

	assert.True(t, d.RangeHasMark(doc.Range{From: doc.Pos(0, 0), To: doc.Pos(4, 0)}, doc.Bold()))
	assert.False(t, d.RangeHasMark(doc.Range{From: doc.Pos(2, 0), To: doc.Pos(6, 0)}, doc.Bold()))
	assert.False(t, d.RangeHasMark(doc.Cursor(doc.Pos(1, 0)), doc.Bold()))
	assert.False(t, d.RangeHasMark(doc.Range{From: doc.Pos(4, 0), To: doc.Pos(1, 1)}, doc.Bold()))

	_, err := d.ApplyEdit(WrapRange{Range: doc.Range{From: doc.Pos(4, 0), To: doc.Pos(10, 0)}, Mark: markPtr(doc.Bold())})
	require.NoError(t, err)
	assert.True(t, d.RangeHasMark(doc.Range{From: doc.Pos(0, 0), To: doc.Pos(1, 1)}, doc.Bold()))
}

func markPtr(m doc.Mark) *doc.Mark {
	return &m
}
