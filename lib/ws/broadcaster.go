package ws

import (
	"encoding/json"

	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/ws"
	"go.uber.org/zap"
)

// Broadcaster forwards editor events to the clients of the affected
// document.
type Broadcaster struct {
	hub     *Hub
	hook    *hooks.Hook
	logger  *zap.SugaredLogger
	hookIDs map[string]string
}

func NewBroadcaster(hub *Hub, hook *hooks.Hook, logger *zap.SugaredLogger) *Broadcaster {
	b := &Broadcaster{
		hub:     hub,
		hook:    hook,
		logger:  logger,
		hookIDs: make(map[string]string),
	}
	b.hookIDs[hooks.DocumentChangedHook] = hook.EnqueueDocumentChangedHook(func(ctx *events.DocumentChanged) {
		b.publish(ctx.DocumentID, ws.EventDocumentChanged, ctx)
	})
	b.hookIDs[hooks.SelectionChangedHook] = hook.EnqueueSelectionChangedHook(func(ctx *events.SelectionChanged) {
		b.publish(ctx.DocumentID, ws.EventSelectionChanged, ctx)
	})
	b.hookIDs[hooks.CommentChangedHook] = hook.EnqueueCommentChangedHook(func(ctx *events.CommentChanged) {
		b.publish(ctx.DocumentID, ws.EventCommentChanged, ctx)
	})
	b.hookIDs[hooks.HistoryChangedHook] = hook.EnqueueHistoryChangedHook(func(ctx *events.HistoryChanged) {
		b.publish(ctx.DocumentID, ws.EventHistoryChanged, ctx)
	})
	b.hookIDs[hooks.AnchorDegradedHook] = hook.EnqueueAnchorDegradedHook(func(ctx *events.AnchorDegraded) {
		b.publish(ctx.DocumentID, ws.EventAnchorDegraded, ctx)
	})
	return b
}

func (b *Broadcaster) publish(room, event string, data any) {
	payload, err := json.Marshal(ws.ServerMessage{Event: event, Data: data})
	if err != nil {
		b.logger.Errorw("error marshalling event", "event", event, "room", room, "error", err)
		return
	}
	b.hub.Publish(room, payload)
}

// Close stops forwarding events.
func (b *Broadcaster) Close() {
	for key, id := range b.hookIDs {
		b.hook.DequeueHook(key, id)
	}
}
