package editor

import (
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/lists"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEditor(t *testing.T, opts Options, blocks ...*doc.Node) (*Editor, *hooks.Hook) {
	t.Helper()
	d, err := document.New("doc-1", doc.NewDocument(blocks...), nil)
	require.NoError(t, err)
	hook := hooks.NewHook()
	e := New(d, hook, nil, opts)
	t.Cleanup(e.Close)
	return e, hook
}

func item(blocks ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.TypeListItem, nil, blocks...)
}

func bullets(items ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.TypeBulletList, nil, items...)
}

func texts(root *doc.Node) []string {
	var out []string
	for _, b := range root.Textblocks() {
		out = append(out, b.Node.TextContent())
	}
	return out
}

func press(t *testing.T, e *Editor, key string, shift bool) KeyResult {
	t.Helper()
	res, err := e.HandleKey(KeyEvent{Key: key, Shift: shift})
	require.NoError(t, err)
	return res
}

func selectIn(t *testing.T, e *Editor, blockID string, from, to int) {
	t.Helper()
	_, path := e.Document().Root().FindByID(blockID)
	require.NotNil(t, path, "block %s is gone", blockID)
	require.NoError(t, e.SetSelection(doc.Range{
		From: doc.Position{Path: path, Offset: from},
		To:   doc.Position{Path: path, Offset: to},
	}))
}

func TestCommentScenario(t *testing.T) {
	e, hook := newEditor(t, Options{}, doc.NewParagraph(""))
	var actions []string
	hook.EnqueueCommentChangedHook(func(ctx *events.CommentChanged) {
		actions = append(actions, ctx.Action)
	})

	require.NoError(t, e.InsertText("Hello world"))
	require.NoError(t, e.SetSelection(doc.Range{From: doc.Pos(6, 0), To: doc.Pos(11, 0)}))
	_, err := e.AddComment(gofakeit.Name(), "nice")
	require.NoError(t, err)

	sidebar := e.CommentLists()
	require.Len(t, sidebar.Active, 1)
	assert.Equal(t, "world", sidebar.Active[0].Text)

	require.NoError(t, e.SetSelection(doc.Range{From: doc.Pos(0, 0), To: doc.Pos(11, 0)}))
	res := press(t, e, KeyBackspace, false)
	assert.Equal(t, "deleteSelection", res.Label)

	sidebar = e.CommentLists()
	assert.Empty(t, sidebar.Active)
	assert.Empty(t, sidebar.Resolved)
	assert.Len(t, sidebar.Orphaned, 1)
	assert.Equal(t, []string{events.CommentAdded, events.CommentOrphaned}, actions)
}

func TestTabIndentsParagraphByOneUnit(t *testing.T) {
	p := doc.NewParagraph("Hi")
	e, _ := newEditor(t, Options{}, p)
	selectIn(t, e, p.ID, 1, 1)

	res := press(t, e, KeyTab, false)
	assert.Equal(t, KeyResult{Handled: true, PreventDefault: true, Label: lists.KindIndent}, res)
	assert.Equal(t, "40px", e.Snapshot().Content[0].Attr(doc.AttrMarginLeft))

	press(t, e, KeyTab, true)
	_, present := e.Snapshot().Content[0].Attrs[doc.AttrMarginLeft]
	assert.False(t, present, "outdent to zero removes the attribute")
}

func TestIndentUsesConfiguredStep(t *testing.T) {
	p := doc.NewParagraph("Hi")
	e, _ := newEditor(t, Options{Lists: lists.Options{IndentStep: 2, IndentUnit: "em"}}, p)
	selectIn(t, e, p.ID, 0, 0)

	press(t, e, KeyTab, false)
	press(t, e, KeyTab, false)
	assert.Equal(t, "4em", e.Snapshot().Content[0].Attr(doc.AttrMarginLeft))
}

func TestProgressiveBackspaceThroughEditor(t *testing.T) {
	empty := doc.NewParagraph("")
	target := item(empty)
	e, _ := newEditor(t, Options{}, bullets(item(doc.NewParagraph("a"), bullets(item(doc.NewParagraph("b"), bullets(target))))))
	selectIn(t, e, empty.ID, 0, 0)

	res := press(t, e, KeyBackspace, false)
	assert.Equal(t, lists.KindListLift, res.Label)
	state, ok := lists.StateOf(e.Snapshot(), target.ID)
	require.True(t, ok)
	assert.Equal(t, 2, state.NestLevel)

	res = press(t, e, KeyBackspace, false)
	assert.Equal(t, lists.KindListExit, res.Label)
	block, path := e.Snapshot().FindByID(empty.ID)
	require.NotNil(t, block)
	assert.Len(t, path, 1, "the empty item became a top level paragraph")
	assert.Equal(t, doc.Cursor(doc.Position{Path: path}), e.Selection())
}

func TestBlurForgetsExitProgress(t *testing.T) {
	empty := doc.NewParagraph("")
	target := item(empty)
	e, _ := newEditor(t, Options{}, bullets(item(doc.NewParagraph("a"), bullets(item(doc.NewParagraph("b"), bullets(target))))))
	selectIn(t, e, empty.ID, 0, 0)

	press(t, e, KeyEnter, false)
	e.Blur()
	assert.False(t, e.Focused())
	selectIn(t, e, empty.ID, 0, 0)

	res := press(t, e, KeyEnter, false)
	assert.Equal(t, lists.KindListLift, res.Label, "a fresh first stage outdents again")
	state, ok := lists.StateOf(e.Snapshot(), target.ID)
	require.True(t, ok)
	assert.Equal(t, 1, state.NestLevel)
}

func TestShiftTabOnTopLevelItemIsSwallowed(t *testing.T) {
	p := doc.NewParagraph("only")
	e, _ := newEditor(t, Options{}, bullets(item(p)))
	selectIn(t, e, p.ID, 0, 0)
	version := e.Version()

	res := press(t, e, KeyTab, true)
	assert.True(t, res.Handled)
	assert.True(t, res.PreventDefault)
	assert.Equal(t, version, e.Version())
	assert.False(t, e.CanUndo())
}

func TestOtherKeysReachTheHost(t *testing.T) {
	e, _ := newEditor(t, Options{}, doc.NewParagraph("x"))
	res := press(t, e, "a", false)
	assert.Equal(t, KeyResult{}, res)
}

func TestEnterMovesCursorAndUndoRestoresSelection(t *testing.T) {
	p := doc.NewParagraph("Hello world")
	e, _ := newEditor(t, Options{}, p)
	selectIn(t, e, p.ID, 5, 5)

	press(t, e, KeyEnter, false)
	assert.Equal(t, []string{"Hello", " world"}, texts(e.Snapshot()))
	assert.Equal(t, doc.Cursor(doc.Pos(0, 1)), e.Selection())

	require.NoError(t, e.Undo())
	assert.Equal(t, []string{"Hello world"}, texts(e.Snapshot()))
	assert.Equal(t, doc.Cursor(doc.Pos(5, 0)), e.Selection())

	require.NoError(t, e.Redo())
	assert.Equal(t, []string{"Hello", " world"}, texts(e.Snapshot()))
	assert.Equal(t, doc.Cursor(doc.Pos(0, 1)), e.Selection())
}

func TestInsertTextSplitsLines(t *testing.T) {
	p := doc.NewParagraph("")
	e, _ := newEditor(t, Options{}, p)
	selectIn(t, e, p.ID, 0, 0)

	require.NoError(t, e.InsertText("one\ntwo\nthree"))
	assert.Equal(t, []string{"one", "two", "three"}, texts(e.Snapshot()))
	assert.Equal(t, doc.Cursor(doc.Pos(5, 2)), e.Selection())
}

func TestInsertTextSplitsListItems(t *testing.T) {
	p := doc.NewParagraph("")
	e, _ := newEditor(t, Options{}, bullets(item(p)))
	selectIn(t, e, p.ID, 0, 0)

	require.NoError(t, e.InsertText("a\nb\nc"))
	root := e.Snapshot()
	require.Len(t, root.Content, 1)
	assert.Len(t, root.Content[0].Content, 3)
	assert.Equal(t, []string{"a", "b", "c"}, texts(root))
}

func TestInsertTextInheritsInclusiveMarks(t *testing.T) {
	p := doc.NewParagraph("bold", doc.Bold())
	e, _ := newEditor(t, Options{}, p)
	selectIn(t, e, p.ID, 4, 4)

	require.NoError(t, e.InsertText("er"))
	root := e.Snapshot()
	require.Len(t, root.Content[0].Content, 1)
	assert.Equal(t, "bolder", root.Content[0].Content[0].Text)
	assert.True(t, doc.HasMark(root.Content[0].Content[0].Marks, doc.Bold()))
}

func TestHostEventsRunOutsideTheSession(t *testing.T) {
	e, hook := newEditor(t, Options{}, doc.NewParagraph(""))
	var seen []doc.Range
	hook.EnqueueDocumentChangedHook(func(ctx *events.DocumentChanged) {
		seen = append(seen, e.Selection())
	})

	require.NoError(t, e.InsertText("abc"))
	require.Len(t, seen, 1)
	assert.Equal(t, doc.Cursor(doc.Pos(3, 0)), seen[0])
}

type measurer struct {
	width, height int
	before        func()
	calls         int
}

func (m *measurer) Measure(string) (int, int, error) {
	m.calls++
	if m.before != nil {
		m.before()
	}
	if m.width == 0 {
		return 0, 0, errors.New("not loaded")
	}
	return m.width, m.height, nil
}

func TestInsertImageIsMeasuredInSeparateStep(t *testing.T) {
	m := &measurer{width: 640, height: 480}
	p := doc.NewParagraph("ab")
	e, _ := newEditor(t, Options{Measurer: m}, p)
	selectIn(t, e, p.ID, 1, 1)

	id, err := e.InsertImage("https://example.com/cat.png", "cat", "")
	require.NoError(t, err)
	assert.Equal(t, 1, m.calls)

	image, _ := e.Snapshot().FindByID(id)
	require.NotNil(t, image)
	assert.Equal(t, "640", image.Attr(doc.AttrWidth))
	assert.Equal(t, "480", image.Attr(doc.AttrHeight))

	steps := e.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, LabelInsertImage, steps[0].Label)
	assert.Equal(t, LabelResizeImage, steps[1].Label)
}

func TestImageMeasurementRevalidatesNode(t *testing.T) {
	m := &measurer{width: 10, height: 10}
	p := doc.NewParagraph("ab")
	e, _ := newEditor(t, Options{Measurer: m}, p)
	selectIn(t, e, p.ID, 1, 1)
	m.before = func() { require.NoError(t, e.Undo()) }

	id, err := e.InsertImage("https://example.com/cat.png", "", "")
	require.NoError(t, err)

	image, _ := e.Snapshot().FindByID(id)
	assert.Nil(t, image)
	assert.Equal(t, []string{"ab"}, texts(e.Snapshot()))
	assert.False(t, e.CanUndo())
}

func TestResizeImageRejectsUnknownNode(t *testing.T) {
	e, _ := newEditor(t, Options{}, doc.NewParagraph("x"))
	err := e.ResizeImage("missing", 1, 1)
	assert.True(t, exception.IsUnknownNode(err))
}

func TestCreateTableReplacesEmptyParagraph(t *testing.T) {
	e, _ := newEditor(t, Options{}, doc.NewParagraph(""))

	require.NoError(t, e.CreateTable(2, 3))
	root := e.Snapshot()
	require.Len(t, root.Content, 2)
	table := root.Content[0]
	assert.Equal(t, doc.TypeTable, table.Type)
	assert.Len(t, table.Content, 2)
	assert.Len(t, table.Content[0].Content, 3)
	assert.Equal(t, doc.TypeParagraph, root.Content[1].Type)
	assert.Equal(t, doc.Cursor(doc.Pos(0, 0, 0, 0, 0)), e.Selection())

	require.NoError(t, e.Undo())
	assert.Len(t, e.Snapshot().Content, 1)

	err := e.CreateTable(0, 3)
	require.Error(t, err)
}

func TestCellAlignmentAndBackground(t *testing.T) {
	e, _ := newEditor(t, Options{}, doc.NewParagraph("before"))
	err := e.SetCellAlignment("center")
	require.Error(t, err, "selection is not in a table")

	require.NoError(t, e.CreateTable(1, 2))
	require.NoError(t, e.SetCellAlignment("center"))
	require.NoError(t, e.SetCellBackground("#ffcc00"))

	cell := e.Snapshot().NodeAt([]int{1, 0, 0})
	require.NotNil(t, cell)
	assert.Equal(t, "center", cell.Attr(doc.AttrTextAlign))
	assert.Equal(t, "#ffcc00", cell.Attr(doc.AttrBackground))
	assert.Empty(t, e.Snapshot().NodeAt([]int{1, 0, 1}).Attr(doc.AttrTextAlign))

	assert.Error(t, e.SetCellAlignment("middle"))
	assert.Error(t, e.SetCellBackground("not a color"))
}

func TestToggleList(t *testing.T) {
	a, b := doc.NewParagraph("a"), doc.NewParagraph("b")
	e, _ := newEditor(t, Options{}, a, b)
	require.NoError(t, e.SetSelection(doc.Range{From: doc.Pos(0, 0), To: doc.Pos(1, 1)}))

	require.NoError(t, e.ToggleList(doc.TypeBulletList))
	root := e.Snapshot()
	require.Len(t, root.Content, 1)
	assert.Equal(t, doc.TypeBulletList, root.Content[0].Type)

	require.NoError(t, e.ToggleList(doc.TypeOrderedList))
	assert.Equal(t, doc.TypeOrderedList, e.Snapshot().Content[0].Type)

	require.NoError(t, e.ToggleList(doc.TypeOrderedList))
	root = e.Snapshot()
	require.Len(t, root.Content, 2)
	assert.Equal(t, doc.TypeParagraph, root.Content[0].Type)

	assert.Error(t, e.ToggleList(doc.TypeParagraph))
}

func TestToggleMark(t *testing.T) {
	p := doc.NewParagraph("Hello world")
	e, _ := newEditor(t, Options{}, p)
	selectIn(t, e, p.ID, 0, 5)

	require.NoError(t, e.ToggleMark(doc.Bold()))
	assert.True(t, e.Document().RangeHasMark(e.Selection(), doc.Bold()))
	require.NoError(t, e.ToggleMark(doc.Bold()))
	assert.False(t, e.Document().RangeHasMark(e.Selection(), doc.Bold()))

	assert.Error(t, e.ToggleMark(doc.CommentMark("c1")))
	selectIn(t, e, p.ID, 2, 2)
	assert.True(t, exception.IsEmptyRange(e.ToggleMark(doc.Italic())))
}

func TestSetLink(t *testing.T) {
	p := doc.NewParagraph("docs")
	e, _ := newEditor(t, Options{}, p)
	selectIn(t, e, p.ID, 0, 4)

	require.NoError(t, e.SetLink("https://example.com/docs"))
	assert.True(t, e.Document().RangeHasMark(e.Selection(), doc.Link("https://example.com/docs")))

	assert.Error(t, e.SetLink("javascript"))

	require.NoError(t, e.SetLink(""))
	assert.False(t, e.Document().RangeHasMark(e.Selection(), doc.Link("https://example.com/docs")))
}

func TestSearchHighlightsFollowEdits(t *testing.T) {
	p := doc.NewParagraph("cat dog cat")
	e, _ := newEditor(t, Options{}, p)

	found := e.Search("cat")
	require.Len(t, found, 2)

	selectIn(t, e, p.ID, 0, 4)
	press(t, e, KeyBackspace, false)

	live := e.Highlights()
	require.Len(t, live, 1)
	assert.Equal(t, doc.Range{From: doc.Pos(4, 0), To: doc.Pos(7, 0)}, live[0])

	e.ClearSearch()
	assert.Empty(t, e.Highlights())
}

func TestLocateCommentSelectsIt(t *testing.T) {
	p := doc.NewParagraph("Hello world")
	e, _ := newEditor(t, Options{}, p)
	selectIn(t, e, p.ID, 6, 11)
	id, err := e.AddComment("ann", "nice")
	require.NoError(t, err)

	selectIn(t, e, p.ID, 0, 0)
	require.NoError(t, e.LocateComment(id))
	assert.Equal(t, doc.Range{From: doc.Pos(6, 0), To: doc.Pos(11, 0)}, e.Selection())

	assert.True(t, exception.IsUnknownComment(e.LocateComment("missing")))
}

func TestSetContentIsOneStep(t *testing.T) {
	e, _ := newEditor(t, Options{}, doc.NewParagraph("old"))

	require.NoError(t, e.SetContent(doc.NewDocument(doc.NewParagraph("new"), doc.NewParagraph("content")), ""))
	assert.Equal(t, []string{"new", "content"}, texts(e.Snapshot()))
	steps := e.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, LabelSetContent, steps[0].Label)

	require.NoError(t, e.Undo())
	assert.Equal(t, []string{"old"}, texts(e.Snapshot()))
}

func TestSetSelectionRejectsBadRanges(t *testing.T) {
	e, _ := newEditor(t, Options{}, doc.NewParagraph("abc"))

	err := e.SetSelection(doc.Range{From: doc.Pos(2, 0), To: doc.Pos(1, 0)})
	assert.True(t, exception.IsInvalidRange(err))

	err = e.SetSelection(doc.Cursor(doc.Pos(0, 7)))
	assert.Error(t, err)
}
