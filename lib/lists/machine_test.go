package lists

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(blocks ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.TypeListItem, nil, blocks...)
}

func bullets(items ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.TypeBulletList, nil, items...)
}

func numbered(items ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.TypeOrderedList, nil, items...)
}

func newDoc(t *testing.T, blocks ...*doc.Node) *document.Document {
	t.Helper()
	d, err := document.New("doc-1", doc.NewDocument(blocks...), nil)
	require.NoError(t, err)
	return d
}

func cursorIn(t *testing.T, d *document.Document, blockID string, offset int) doc.Range {
	t.Helper()
	block, path := d.Root().FindByID(blockID)
	require.NotNil(t, block, "block %s is gone", blockID)
	return doc.Cursor(doc.Position{Path: path, Offset: offset})
}

func apply(t *testing.T, d *document.Document, tr Transition) *document.EditResult {
	t.Helper()
	require.True(t, tr.Handled)
	require.NotNil(t, tr.Op, "transition %s has no edit", tr.Kind)
	result, err := d.ApplyEdit(tr.Op, document.WithLabel(tr.Kind))
	require.NoError(t, err)
	return result
}

func levelOf(t *testing.T, d *document.Document, itemID string) int {
	t.Helper()
	state, ok := StateOf(d.Root(), itemID)
	require.True(t, ok, "item %s is gone", itemID)
	return state.NestLevel
}

func texts(root *doc.Node) []string {
	var out []string
	for _, b := range root.Textblocks() {
		out = append(out, b.Node.TextContent())
	}
	return out
}

func TestTabNestsItemOneLevelPerPress(t *testing.T) {
	for _, n := range []int{1, 2, 3, gofakeit.IntRange(4, 8)} {
		p := doc.NewParagraph("item")
		target := item(p)
		d := newDoc(t, bullets(item(doc.NewParagraph("first")), target))
		m := NewMachine(Options{}, nil)

		for i := 0; i < n; i++ {
			tr := m.Tab(d.Root(), cursorIn(t, d, p.ID, 0))
			assert.Equal(t, KindListSink, tr.Kind)
			apply(t, d, tr)
			assert.Equal(t, i+2, levelOf(t, d, target.ID))
		}
		assert.Equal(t, 1+n, levelOf(t, d, target.ID))

		apply(t, d, m.ShiftTab(d.Root(), cursorIn(t, d, p.ID, 0)))
		assert.Equal(t, n, levelOf(t, d, target.ID))
		assert.Equal(t, []string{"first", "item"}, texts(d.Root()))
	}
}

func TestTabOnOnlyItemUsesHolder(t *testing.T) {
	p := doc.NewParagraph("solo")
	target := item(p)
	d := newDoc(t, bullets(target))
	m := NewMachine(Options{}, nil)
	original := d.Snapshot()

	result := apply(t, d, m.Tab(d.Root(), cursorIn(t, d, p.ID, 2)))
	assert.Equal(t, 2, levelOf(t, d, target.ID))
	assert.True(t, result.Diff.Empty(), "text must not move")

	_, err := d.ApplyEdit(result.Inverse)
	require.NoError(t, err)
	assert.True(t, original.Equal(d.Root()))
}

func TestShiftTabKeepsDocumentOrder(t *testing.T) {
	a, b, c := doc.NewParagraph("a"), doc.NewParagraph("b"), doc.NewParagraph("c")
	itemB, itemC := item(b), item(c)
	d := newDoc(t, bullets(item(doc.NewParagraph("top"), bullets(item(a), itemB, itemC))))
	m := NewMachine(Options{}, nil)

	apply(t, d, m.ShiftTab(d.Root(), cursorIn(t, d, b.ID, 0)))

	assert.Equal(t, []string{"top", "a", "b", "c"}, texts(d.Root()))
	assert.Equal(t, 1, levelOf(t, d, itemB.ID))
	assert.Equal(t, 2, levelOf(t, d, itemC.ID), "c nests under b")
	_, path := d.Root().FindByID(itemC.ID)
	parent := d.Root().NodeAt(path[:len(path)-2])
	assert.Equal(t, itemB.ID, parent.ID)
}

func TestShiftTabAtTopLevelIsNoop(t *testing.T) {
	p := doc.NewParagraph("x")
	d := newDoc(t, bullets(item(p)))
	m := NewMachine(Options{}, nil)

	tr := m.ShiftTab(d.Root(), cursorIn(t, d, p.ID, 0))
	assert.True(t, tr.Handled)
	assert.Nil(t, tr.Op)
}

func TestProgressiveBackspaceOnEmptyItem(t *testing.T) {
	empty := doc.NewParagraph("")
	target := item(empty)
	d := newDoc(t, bullets(item(doc.NewParagraph("a"), bullets(item(doc.NewParagraph("b"), bullets(target))))))
	m := NewMachine(Options{}, nil)
	require.Equal(t, 3, levelOf(t, d, target.ID))

	tr := m.Backspace(d.Root(), cursorIn(t, d, empty.ID, 0))
	assert.Equal(t, KindListLift, tr.Kind)
	apply(t, d, tr)
	assert.Equal(t, 2, levelOf(t, d, target.ID))

	tr = m.Backspace(d.Root(), cursorIn(t, d, empty.ID, 0))
	assert.Equal(t, KindListExit, tr.Kind)
	apply(t, d, tr)

	block, path := d.Root().FindByID(empty.ID)
	require.NotNil(t, block)
	assert.Equal(t, doc.TypeParagraph, block.Type)
	assert.Len(t, path, 1, "paragraph sits at the top level")
	assert.Equal(t, []string{"a", "b", ""}, texts(d.Root()))
}

func TestEnterOnEmptyItemFollowsSameStages(t *testing.T) {
	empty := doc.NewParagraph("")
	target := item(empty)
	d := newDoc(t, bullets(item(doc.NewParagraph("a"), bullets(target))))
	m := NewMachine(Options{}, nil)

	apply(t, d, m.Enter(d.Root(), cursorIn(t, d, empty.ID, 0)))
	assert.Equal(t, 1, levelOf(t, d, target.ID))

	apply(t, d, m.Enter(d.Root(), cursorIn(t, d, empty.ID, 0)))
	_, path := d.Root().FindByID(empty.ID)
	assert.Len(t, path, 1)
}

func TestStageResetsWhenSelectionMoves(t *testing.T) {
	other := doc.NewParagraph("elsewhere")
	empty := doc.NewParagraph("")
	target := item(empty)
	d := newDoc(t, other, bullets(item(doc.NewParagraph("a"), bullets(item(doc.NewParagraph("b"), bullets(target))))))
	m := NewMachine(Options{}, nil)

	apply(t, d, m.Backspace(d.Root(), cursorIn(t, d, empty.ID, 0)))
	assert.Equal(t, 2, levelOf(t, d, target.ID))

	m.Observe(d.Root(), cursorIn(t, d, other.ID, 3))
	m.Observe(d.Root(), cursorIn(t, d, empty.ID, 0))

	tr := m.Backspace(d.Root(), cursorIn(t, d, empty.ID, 0))
	assert.Equal(t, KindListLift, tr.Kind, "a fresh visit starts over")
	apply(t, d, tr)
	assert.Equal(t, 1, levelOf(t, d, target.ID))
}

func TestResetOnBlur(t *testing.T) {
	empty := doc.NewParagraph("")
	target := item(empty)
	d := newDoc(t, bullets(item(doc.NewParagraph("a"), bullets(target))))
	m := NewMachine(Options{}, nil)

	apply(t, d, m.Backspace(d.Root(), cursorIn(t, d, empty.ID, 0)))
	m.Reset()
	assert.Equal(t, "", m.stageItem)
	assert.Equal(t, 0, m.stage)
}

func TestParagraphIndent(t *testing.T) {
	p := doc.NewParagraph("Hi")
	d := newDoc(t, p)
	m := NewMachine(Options{IndentStep: 40, IndentUnit: "px"}, nil)

	tr := m.Tab(d.Root(), cursorIn(t, d, p.ID, 1))
	assert.Equal(t, KindIndent, tr.Kind)
	apply(t, d, tr)
	assert.Equal(t, "40px", d.Root().Content[0].Attr(doc.AttrMarginLeft))

	tr = m.ShiftTab(d.Root(), cursorIn(t, d, p.ID, 1))
	assert.Equal(t, KindOutdent, tr.Kind)
	apply(t, d, tr)
	_, present := d.Root().Content[0].Attrs[doc.AttrMarginLeft]
	assert.False(t, present, "zero indentation removes the attribute")

	tr = m.ShiftTab(d.Root(), cursorIn(t, d, p.ID, 1))
	assert.True(t, tr.Handled)
	assert.Nil(t, tr.Op)
}

func TestIndentCoversSelectedParagraphs(t *testing.T) {
	d := newDoc(t, doc.NewParagraph("one"), doc.NewParagraph("two"), doc.NewParagraph("three"))
	m := NewMachine(Options{IndentStep: 2, IndentUnit: "em"}, nil)

	sel := doc.Range{From: doc.Pos(1, 0), To: doc.Pos(2, 1)}
	apply(t, d, m.Tab(d.Root(), sel))
	apply(t, d, m.Tab(d.Root(), sel))

	assert.Equal(t, "4em", d.Root().Content[0].Attr(doc.AttrMarginLeft))
	assert.Equal(t, "4em", d.Root().Content[1].Attr(doc.AttrMarginLeft))
	assert.Equal(t, "", d.Root().Content[2].Attr(doc.AttrMarginLeft))
}

func TestEnterSplitsListItem(t *testing.T) {
	p := doc.NewParagraph("onetwo")
	list := bullets(item(p))
	d := newDoc(t, list)
	m := NewMachine(Options{}, nil)

	tr := m.Enter(d.Root(), cursorIn(t, d, p.ID, 3))
	assert.Equal(t, KindSplitBlock, tr.Kind)
	apply(t, d, tr)

	got := d.Root().Content[0]
	assert.Equal(t, list.ID, got.ID)
	require.Len(t, got.Content, 2)
	assert.Equal(t, []string{"one", "two"}, texts(d.Root()))
}

func TestEnterSplitsParagraph(t *testing.T) {
	p := doc.NewParagraph("Hello world")
	d := newDoc(t, p)
	m := NewMachine(Options{}, nil)

	sel := doc.Range{From: doc.Pos(5, 0), To: doc.Pos(6, 0)}
	apply(t, d, m.Enter(d.Root(), sel))
	assert.Equal(t, []string{"Hello", "world"}, texts(d.Root()))
}

func TestBackspace(t *testing.T) {
	testCases := []struct {
		name   string
		blocks func() []*doc.Node
		at     doc.Position
		kind   string
		want   []string
	}{
		{
			name:   "deletes one unit",
			blocks: func() []*doc.Node { return []*doc.Node{doc.NewParagraph("abc")} },
			at:     doc.Pos(2, 0),
			kind:   KindDeleteBackward,
			want:   []string{"ac"},
		},
		{
			name:   "joins with previous paragraph",
			blocks: func() []*doc.Node { return []*doc.Node{doc.NewParagraph("ab"), doc.NewParagraph("cd")} },
			at:     doc.Pos(0, 1),
			kind:   KindJoinBlocks,
			want:   []string{"abcd"},
		},
		{
			name: "leaves list from a filled top level item",
			blocks: func() []*doc.Node {
				return []*doc.Node{bullets(item(doc.NewParagraph("one")), item(doc.NewParagraph("two")))}
			},
			at:   doc.Pos(0, 0, 1, 0),
			kind: KindListExit,
			want: []string{"one", "two"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDoc(t, tc.blocks()...)
			m := NewMachine(Options{}, nil)
			tr := m.Backspace(d.Root(), doc.Cursor(tc.at))
			assert.Equal(t, tc.kind, tr.Kind)
			apply(t, d, tr)
			assert.Equal(t, tc.want, texts(d.Root()))
		})
	}
}

func TestBackspaceAtDocumentStart(t *testing.T) {
	d := newDoc(t, doc.NewParagraph("abc"))
	m := NewMachine(Options{}, nil)

	tr := m.Backspace(d.Root(), doc.Cursor(doc.Pos(0, 0)))
	assert.True(t, tr.Handled)
	assert.Nil(t, tr.Op)
}

func TestBackspaceOutdentsIndentedParagraph(t *testing.T) {
	p := doc.NewParagraph("Hi")
	p.SetAttr(doc.AttrMarginLeft, "80px")
	d := newDoc(t, doc.NewParagraph("before"), p)
	m := NewMachine(Options{}, nil)

	tr := m.Backspace(d.Root(), cursorIn(t, d, p.ID, 0))
	assert.Equal(t, KindOutdent, tr.Kind)
	apply(t, d, tr)
	assert.Equal(t, "40px", d.Root().Content[1].Attr(doc.AttrMarginLeft))
}

func TestMarkerFor(t *testing.T) {
	testCases := []struct {
		list  doc.NodeType
		level int
		want  Marker
	}{
		{doc.TypeBulletList, 1, MarkerBullet},
		{doc.TypeBulletList, 7, MarkerBullet},
		{doc.TypeOrderedList, 1, MarkerDecimal},
		{doc.TypeOrderedList, 2, MarkerAlpha},
		{doc.TypeOrderedList, 3, MarkerRoman},
		{doc.TypeOrderedList, 4, MarkerDecimal},
		{doc.TypeOrderedList, 5, MarkerDecimal},
		{doc.TypeOrderedList, 6, MarkerAlpha},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, MarkerFor(tc.list, tc.level), "%s level %d", tc.list, tc.level)
	}
}

func TestNumberedListInsideBulletStartsAtLevelOne(t *testing.T) {
	step, empty := doc.NewParagraph("step"), doc.NewParagraph("")
	stepItem, emptyItem := item(step), item(empty)
	d := newDoc(t, bullets(item(doc.NewParagraph("topic"), numbered(stepItem, emptyItem))))
	m := NewMachine(Options{}, nil)

	state, ok := StateOf(d.Root(), stepItem.ID)
	require.True(t, ok)
	assert.Equal(t, 1, state.NestLevel)
	assert.Equal(t, MarkerDecimal, state.Marker)

	tr := m.ShiftTab(d.Root(), cursorIn(t, d, step.ID, 0))
	assert.True(t, tr.Handled)
	assert.Nil(t, tr.Op, "a numbered item is not moved into the bullet list")

	tr = m.Backspace(d.Root(), cursorIn(t, d, empty.ID, 0))
	assert.Equal(t, KindListExit, tr.Kind)
	apply(t, d, tr)
	_, path := d.Root().FindByID(empty.ID)
	assert.Len(t, path, 1)
	assert.Equal(t, []string{"topic", "step", ""}, texts(d.Root()))

	apply(t, d, m.Tab(d.Root(), cursorIn(t, d, step.ID, 0)))
	state, _ = StateOf(d.Root(), stepItem.ID)
	assert.Equal(t, 2, state.NestLevel)
	assert.Equal(t, MarkerAlpha, state.Marker)
}

func TestTabOnEmptyItemIsSwallowed(t *testing.T) {
	empty := doc.NewParagraph("")
	d := newDoc(t, bullets(item(doc.NewParagraph("a")), item(empty)))
	m := NewMachine(Options{}, nil)

	tr := m.Tab(d.Root(), cursorIn(t, d, empty.ID, 0))
	assert.True(t, tr.Handled)
	assert.Nil(t, tr.Op)
}

func TestMarkerFollowsUndo(t *testing.T) {
	p := doc.NewParagraph("two")
	target := item(p)
	d := newDoc(t, doc.NewNode(doc.TypeOrderedList, nil, item(doc.NewParagraph("one")), target))
	m := NewMachine(Options{}, nil)

	result := apply(t, d, m.Tab(d.Root(), cursorIn(t, d, p.ID, 0)))
	state, _ := StateOf(d.Root(), target.ID)
	assert.Equal(t, MarkerAlpha, state.Marker)

	_, err := d.ApplyEdit(result.Inverse)
	require.NoError(t, err)
	state, _ = StateOf(d.Root(), target.ID)
	assert.Equal(t, MarkerDecimal, state.Marker)
	assert.Equal(t, 1, state.NestLevel)
}
