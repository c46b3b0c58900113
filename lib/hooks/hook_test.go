package hooks

import (
	"sync"
	"testing"

	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/stretchr/testify/assert"
)

func TestExecuteHooksCallsEveryCallback(t *testing.T) {
	h := NewHook()
	var got []string
	h.EnqueueDocumentChangedHook(func(ctx *events.DocumentChanged) {
		got = append(got, ctx.Label)
	})
	h.EnqueueDocumentChangedHook(func(ctx *events.DocumentChanged) {
		got = append(got, ctx.Label)
	})

	h.ExecuteDocumentChangedHooks(&events.DocumentChanged{Label: "typing"})

	assert.Equal(t, []string{"typing", "typing"}, got)
}

func TestDequeueHook(t *testing.T) {
	h := NewHook()
	calls := 0
	id := h.EnqueueCommentChangedHook(func(*events.CommentChanged) { calls++ })

	h.ExecuteCommentChangedHooks(&events.CommentChanged{CommentID: "c1"})
	h.DequeueHook(CommentChangedHook, id)
	h.ExecuteCommentChangedHooks(&events.CommentChanged{CommentID: "c1"})

	assert.Equal(t, 1, calls)
}

func TestTypedHooksIgnoreOtherPayloads(t *testing.T) {
	h := NewHook()
	calls := 0
	h.EnqueueHistoryChangedHook(func(*events.HistoryChanged) { calls++ })

	h.ExecuteHooks(HistoryChangedHook, &events.CommentChanged{})
	h.ExecuteHooks("unknown", nil)

	assert.Equal(t, 0, calls)
}

func TestExportHooksCanRewriteContent(t *testing.T) {
	h := NewHook()
	h.EnqueueGetBlockHtmlForExportHook(func(ctx *events.BlockHTMLForExportContext) {
		*ctx.BlockContent = "<mark>" + *ctx.BlockContent + "</mark>"
	})
	content := "hi"
	h.ExecuteGetBlockHtmlForExportHooks(&events.BlockHTMLForExportContext{BlockContent: &content})
	assert.Equal(t, "<mark>hi</mark>", content)
}

func TestHookCallbackMayEnqueue(t *testing.T) {
	h := NewHook()
	h.EnqueueSelectionChangedHook(func(*events.SelectionChanged) {
		h.EnqueueSelectionChangedHook(func(*events.SelectionChanged) {})
	})
	h.ExecuteSelectionChangedHooks(&events.SelectionChanged{})
	assert.Len(t, h.hooks[SelectionChangedHook], 2)
}

func TestHooksConcurrentUse(t *testing.T) {
	h := NewHook()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := h.EnqueueAnchorDegradedHook(func(*events.AnchorDegraded) {})
			h.DequeueHook(AnchorDegradedHook, id)
		}()
		go func() {
			defer wg.Done()
			h.ExecuteAnchorDegradedHooks(&events.AnchorDegraded{Key: "k"})
		}()
	}
	wg.Wait()
	assert.Empty(t, h.hooks[AnchorDegradedHook])
}
