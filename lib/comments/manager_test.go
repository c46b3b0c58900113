package comments

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ether/etherdoc/lib/anchor"
	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	doc     *document.Document
	manager *Manager
	events  []string
}

func newFixture(t *testing.T, blocks ...*doc.Node) *fixture {
	t.Helper()
	d, err := document.New("doc-1", doc.NewDocument(blocks...), nil)
	require.NoError(t, err)
	hook := hooks.NewHook()
	resolver := anchor.NewResolver(d.ID(), hook, nil)
	resolver.Attach(d)

	f := &fixture{doc: d}
	f.manager = NewManager(d, resolver, hook, nil)
	f.manager.SetClock(func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.UTC) })
	hook.EnqueueCommentChangedHook(func(ctx *events.CommentChanged) {
		f.events = append(f.events, ctx.Action)
	})
	return f
}

func world() doc.Range {
	return doc.Range{From: doc.Pos(6, 0), To: doc.Pos(11, 0)}
}

func TestCommentLifecycleFollowsText(t *testing.T) {
	f := newFixture(t, doc.NewParagraph(""))
	_, err := f.doc.ApplyEdit(document.InsertText{At: doc.Pos(0, 0), Text: "Hello world"})
	require.NoError(t, err)

	id, err := f.manager.AddComment(world(), gofakeit.Name(), "nice")
	require.NoError(t, err)

	active := f.manager.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "world", active[0].Text)
	assert.Equal(t, id, active[0].ID)

	_, err = f.doc.ApplyEdit(document.DeleteRange{Range: doc.Range{From: doc.Pos(0, 0), To: doc.Pos(11, 0)}})
	require.NoError(t, err)

	assert.Empty(t, f.manager.Active())
	assert.Empty(t, f.manager.Resolved())
	assert.Len(t, f.manager.Orphaned(), 1)
	assert.Equal(t, []string{events.CommentAdded, events.CommentOrphaned}, f.events)
}

func TestAddCommentRejectsEmptyRange(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("Hello world"))

	_, err := f.manager.AddComment(doc.Cursor(doc.Pos(3, 0)), "ann", "nice")
	require.Error(t, err)
	assert.True(t, exception.IsEmptyRange(err))
	assert.Equal(t, 0, f.doc.Version(), "the document must stay untouched")
	assert.Empty(t, f.events)
}

func TestTypingAtCommentEdgeDoesNotExtendIt(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("Hello world"))
	id, err := f.manager.AddComment(world(), "ann", "nice")
	require.NoError(t, err)

	_, err = f.doc.ApplyEdit(document.InsertText{At: doc.Pos(11, 0), Text: "!"})
	require.NoError(t, err)

	r, err := f.manager.Locate(id)
	require.NoError(t, err)
	text, err := f.doc.TextBetween(r)
	require.NoError(t, err)
	assert.Equal(t, "world", text)
}

func TestResolveAndReplies(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("Hello world"))
	id, err := f.manager.AddComment(world(), "ann", "nice")
	require.NoError(t, err)

	require.NoError(t, f.manager.Resolve(id))
	assert.Empty(t, f.manager.Active())
	require.Len(t, f.manager.Resolved(), 1)

	require.NoError(t, f.manager.Unresolve(id))
	assert.Len(t, f.manager.Active(), 1)

	_, err = f.manager.AddReply(id, "bob", "agreed")
	require.NoError(t, err)
	c, ok := f.manager.Get(id)
	require.True(t, ok)
	require.Len(t, c.Replies, 1)
	assert.Equal(t, "agreed", c.Replies[0].Content)

	_, err = f.manager.AddReply("missing", "bob", "hm")
	assert.True(t, exception.IsUnknownComment(err))
	assert.True(t, exception.IsUnknownComment(f.manager.Resolve("missing")))
}

func TestDeleteCommentRemovesMarkAndUndoRestoresIt(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("Hello world"))
	id, err := f.manager.AddComment(world(), "ann", "nice")
	require.NoError(t, err)

	var deletion *document.EditResult
	unsubscribe := f.doc.Subscribe(func(r *document.EditResult) { deletion = r })
	require.NoError(t, f.manager.DeleteComment(id))
	unsubscribe()

	require.NotNil(t, deletion)
	assert.Equal(t, LabelDeleteComment, deletion.Label)
	assert.True(t, deletion.Structural)
	_, ok := f.doc.MarkSpan(doc.CommentMark(id))
	assert.False(t, ok)
	assert.Empty(t, f.manager.Active())

	_, err = f.doc.ApplyEdit(deletion.Inverse, document.WithOrigin(document.OriginHistory))
	require.NoError(t, err)
	require.Len(t, f.manager.Active(), 1)
	assert.Equal(t, []string{events.CommentAdded, events.CommentDeleted, events.CommentReattached}, f.events)
}

func TestOrphanedCommentReattachesOnUndo(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("Hello world"))
	id, err := f.manager.AddComment(world(), "ann", "nice")
	require.NoError(t, err)

	result, err := f.doc.ApplyEdit(document.DeleteRange{Range: doc.Range{From: doc.Pos(4, 0), To: doc.Pos(11, 0)}})
	require.NoError(t, err)
	require.Empty(t, f.manager.Active())

	_, err = f.doc.ApplyEdit(result.Inverse, document.WithOrigin(document.OriginHistory))
	require.NoError(t, err)
	require.Len(t, f.manager.Active(), 1)

	r, err := f.manager.Locate(id)
	require.NoError(t, err)
	assert.Equal(t, world(), r)
}

func TestDeletingEndBlockKeepsCommentOnRemainingText(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("aaa"), doc.NewParagraph("bbb"), doc.NewParagraph("ccc"))
	id, err := f.manager.AddComment(doc.Range{From: doc.Pos(1, 0), To: doc.Pos(2, 2)}, "ann", "spans three blocks")
	require.NoError(t, err)

	// Removes the first block's tail, the middle block and the head of the
	// last one: only the comment's final "c" survives.
	_, err = f.doc.ApplyEdit(document.DeleteRange{Range: doc.Range{From: doc.Pos(1, 0), To: doc.Pos(1, 2)}})
	require.NoError(t, err)
	require.Equal(t, "acc", f.doc.Snapshot().TextContent())

	active := f.manager.Active()
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)
	assert.Empty(t, f.manager.Orphaned())

	r, err := f.manager.Locate(id)
	require.NoError(t, err)
	assert.Equal(t, doc.Range{From: doc.Pos(1, 0), To: doc.Pos(2, 0)}, r)

	_, err = f.doc.ApplyEdit(document.InsertText{At: doc.Pos(0, 0), Text: "x"})
	require.NoError(t, err)
	require.Len(t, f.manager.Active(), 1)
	assert.Empty(t, f.manager.Orphaned())
	assert.Equal(t, []string{events.CommentAdded}, f.events)

	r, err = f.manager.Locate(id)
	require.NoError(t, err)
	assert.Equal(t, doc.Range{From: doc.Pos(2, 0), To: doc.Pos(3, 0)}, r)
}

func TestRecordsDoNotRetrackComments(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("Hello world"))
	id, err := f.manager.AddComment(world(), "ann", "nice")
	require.NoError(t, err)
	f.manager.resolver.Untrack(KeyPrefix + id)

	records := f.manager.Records()
	require.Len(t, records, 1)
	assert.Equal(t, doc.Pos(6, 0), records[0].From)
	_, tracked := f.manager.resolver.Get(KeyPrefix + id)
	assert.False(t, tracked)

	_, err = f.manager.Locate(id)
	require.NoError(t, err)
	_, tracked = f.manager.resolver.Get(KeyPrefix + id)
	assert.True(t, tracked)
}

func TestLocateFallsBackToTextSearch(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("Hello world"))
	id, err := f.manager.AddComment(world(), "ann", "nice")
	require.NoError(t, err)

	// Out-of-band rewrite without the mark.
	_, err = f.doc.ApplyEdit(document.Restore{Doc: doc.NewDocument(doc.NewParagraph("Brave new world"))}, document.WithOrigin(document.OriginSystem))
	require.NoError(t, err)

	r, err := f.manager.Locate(id)
	require.NoError(t, err)
	assert.Equal(t, doc.Range{From: doc.Pos(10, 0), To: doc.Pos(15, 0)}, r)

	_, err = f.doc.ApplyEdit(document.Restore{Doc: doc.NewDocument(doc.NewParagraph("nothing left"))}, document.WithOrigin(document.OriginSystem))
	require.NoError(t, err)
	_, err = f.manager.Locate(id)
	require.Error(t, err)
	assert.True(t, exception.IsTextNotFound(err))
}

func TestRecordsRoundTrip(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("Hello world"))
	id, err := f.manager.AddComment(world(), "ann", "nice")
	require.NoError(t, err)
	_, err = f.manager.AddReply(id, "bob", "agreed")
	require.NoError(t, err)

	records := f.manager.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "2024-05-06T07:08:09.010Z", records[0].Timestamp)
	assert.Equal(t, doc.Pos(6, 0), records[0].From)
	assert.Equal(t, doc.Pos(11, 0), records[0].To)

	raw, err := json.Marshal(records)
	require.NoError(t, err)
	var decoded []Record
	require.NoError(t, json.Unmarshal(raw, &decoded))

	other := newFixture(t, f.doc.Snapshot().Content...)
	require.NoError(t, other.manager.Load(decoded))

	got, ok := other.manager.Get(id)
	require.True(t, ok)
	want, _ := f.manager.Get(id)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("loaded comment differs (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadTimestamps(t *testing.T) {
	f := newFixture(t, doc.NewParagraph("Hello"))
	err := f.manager.Load([]Record{{ID: "c1", Timestamp: "yesterday"}})
	require.Error(t, err)
	assert.Empty(t, f.manager.Active())
}
