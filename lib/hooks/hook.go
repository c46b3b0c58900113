package hooks

import (
	"sync"

	"github.com/ether/etherdoc/lib/hooks/events"
	uuid2 "github.com/google/uuid"
)

const (
	DocumentChangedHook        = "documentChanged"
	SelectionChangedHook       = "selectionChanged"
	CommentChangedHook         = "commentChanged"
	HistoryChangedHook         = "historyChanged"
	AnchorDegradedHook         = "anchorDegraded"
	BlockHTMLForExportHook     = "getBlockHTMLForExport"
	BlockMarkdownForExportHook = "getBlockMarkdownForExport"
	BlockPDFForExportHook      = "getBlockPDFForExport"
)

type Hook struct {
	mu    sync.RWMutex
	hooks map[string]map[string]func(ctx any)
}

func NewHook() *Hook {
	return &Hook{
		hooks: make(map[string]map[string]func(ctx any)),
	}
}

func (h *Hook) EnqueueDocumentChangedHook(cb func(ctx *events.DocumentChanged)) string {
	return h.EnqueueHook(DocumentChangedHook, func(ctx any) {
		if e, ok := ctx.(*events.DocumentChanged); ok {
			cb(e)
		}
	})
}

func (h *Hook) ExecuteDocumentChangedHooks(ctx *events.DocumentChanged) {
	h.ExecuteHooks(DocumentChangedHook, ctx)
}

func (h *Hook) EnqueueSelectionChangedHook(cb func(ctx *events.SelectionChanged)) string {
	return h.EnqueueHook(SelectionChangedHook, func(ctx any) {
		if e, ok := ctx.(*events.SelectionChanged); ok {
			cb(e)
		}
	})
}

func (h *Hook) ExecuteSelectionChangedHooks(ctx *events.SelectionChanged) {
	h.ExecuteHooks(SelectionChangedHook, ctx)
}

func (h *Hook) EnqueueCommentChangedHook(cb func(ctx *events.CommentChanged)) string {
	return h.EnqueueHook(CommentChangedHook, func(ctx any) {
		if e, ok := ctx.(*events.CommentChanged); ok {
			cb(e)
		}
	})
}

func (h *Hook) ExecuteCommentChangedHooks(ctx *events.CommentChanged) {
	h.ExecuteHooks(CommentChangedHook, ctx)
}

func (h *Hook) EnqueueHistoryChangedHook(cb func(ctx *events.HistoryChanged)) string {
	return h.EnqueueHook(HistoryChangedHook, func(ctx any) {
		if e, ok := ctx.(*events.HistoryChanged); ok {
			cb(e)
		}
	})
}

func (h *Hook) ExecuteHistoryChangedHooks(ctx *events.HistoryChanged) {
	h.ExecuteHooks(HistoryChangedHook, ctx)
}

func (h *Hook) EnqueueAnchorDegradedHook(cb func(ctx *events.AnchorDegraded)) string {
	return h.EnqueueHook(AnchorDegradedHook, func(ctx any) {
		if e, ok := ctx.(*events.AnchorDegraded); ok {
			cb(e)
		}
	})
}

func (h *Hook) ExecuteAnchorDegradedHooks(ctx *events.AnchorDegraded) {
	h.ExecuteHooks(AnchorDegradedHook, ctx)
}

func (h *Hook) EnqueueGetBlockHtmlForExportHook(cb func(ctx *events.BlockHTMLForExportContext)) string {
	return h.EnqueueHook(BlockHTMLForExportHook, func(ctx any) {
		if e, ok := ctx.(*events.BlockHTMLForExportContext); ok {
			cb(e)
		}
	})
}

func (h *Hook) ExecuteGetBlockHtmlForExportHooks(ctx *events.BlockHTMLForExportContext) {
	h.ExecuteHooks(BlockHTMLForExportHook, ctx)
}

func (h *Hook) EnqueueGetBlockMarkdownForExportHook(cb func(ctx *events.BlockMarkdownForExportContext)) string {
	return h.EnqueueHook(BlockMarkdownForExportHook, func(ctx any) {
		if e, ok := ctx.(*events.BlockMarkdownForExportContext); ok {
			cb(e)
		}
	})
}

func (h *Hook) ExecuteGetBlockMarkdownForExportHooks(ctx *events.BlockMarkdownForExportContext) {
	h.ExecuteHooks(BlockMarkdownForExportHook, ctx)
}

func (h *Hook) EnqueueGetBlockPDFForExportHook(cb func(ctx *events.BlockPDFForExportContext)) string {
	return h.EnqueueHook(BlockPDFForExportHook, func(ctx any) {
		if e, ok := ctx.(*events.BlockPDFForExportContext); ok {
			cb(e)
		}
	})
}

func (h *Hook) ExecuteGetBlockPDFForExportHooks(ctx *events.BlockPDFForExportContext) {
	h.ExecuteHooks(BlockPDFForExportHook, ctx)
}

func (h *Hook) EnqueueHook(key string, ctx func(ctx any)) string {
	var uuid = uuid2.New()
	h.mu.Lock()
	defer h.mu.Unlock()
	var _, ok = h.hooks[key]

	if !ok {
		h.hooks[key] = make(map[string]func(ctx any))
	}

	h.hooks[key][uuid.String()] = ctx

	return uuid.String()
}

func (h *Hook) DequeueHook(key, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.hooks[key], id)
}

func (h *Hook) ExecuteHooks(key string, ctx any) {
	h.mu.RLock()
	var registered, ok = h.hooks[key]
	if !ok {
		h.mu.RUnlock()
		return
	}
	callbacks := make([]func(ctx any), 0, len(registered))
	for _, v := range registered {
		callbacks = append(callbacks, v)
	}
	h.mu.RUnlock()

	for _, v := range callbacks {
		v(ctx)
	}
}
