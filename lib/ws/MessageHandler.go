package ws

import (
	"encoding/json"

	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/editor"
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/ws"
	"github.com/ether/etherdoc/lib/session"
	"github.com/ether/etherdoc/lib/ws/constants"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// MessageHandler turns client messages into editor calls on the session of
// the client's room.
type MessageHandler struct {
	manager  *session.Manager
	hub      *Hub
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

func NewMessageHandler(manager *session.Manager, hub *Hub, validate *validator.Validate, logger *zap.SugaredLogger) *MessageHandler {
	return &MessageHandler{
		manager:  manager,
		hub:      hub,
		validate: validate,
		logger:   logger,
	}
}

// Join sends the current state of the room's document to the client.
func (h *MessageHandler) Join(c *Client) error {
	s, err := h.manager.OpenSession(c.Room)
	if err != nil {
		return err
	}
	c.reply(ws.EventSnapshot, s.Snapshot())
	return nil
}

func (h *MessageHandler) HandleMessage(c *Client, message ws.ClientMessage) {
	if err := h.validate.Struct(message); err != nil {
		c.replyError(exception.NewInvalidOperationError(constants.ErrorInvalidMessage))
		return
	}
	s, err := h.manager.GetSession(c.Room)
	if err != nil {
		c.replyError(err)
		return
	}
	e := s.Editor

	switch message.Event {
	case ws.EventKey:
		var key editor.KeyEvent
		if !h.decode(c, message.Data, &key) {
			return
		}
		res, err := e.HandleKey(key)
		if err != nil {
			c.replyError(err)
			return
		}
		c.reply(ws.EventKeyResult, res)
	case ws.EventText:
		var text ws.TextRequest
		if !h.decode(c, message.Data, &text) {
			return
		}
		h.check(c, e.InsertText(text.Text))
	case ws.EventSelection:
		var selection ws.SelectionRequest
		if !h.decode(c, message.Data, &selection) {
			return
		}
		h.check(c, e.SetSelection(selection.Range))
	case ws.EventBlur:
		e.Blur()
	case ws.EventOperation:
		var operation ws.OperationRequest
		if !h.decode(c, message.Data, &operation) {
			return
		}
		op, err := document.DecodeOperation(operation.Operation)
		if err != nil {
			c.replyError(err)
			return
		}
		_, err = e.ApplyOperation(op, operation.Label)
		h.check(c, err)
	case ws.EventUndo:
		h.check(c, e.Undo())
	case ws.EventRedo:
		h.check(c, e.Redo())
	case ws.EventComment:
		var comment ws.CommentRequest
		if !h.decode(c, message.Data, &comment) {
			return
		}
		id, err := session.RunCommentAction(s, comment)
		if err != nil {
			c.replyError(err)
			return
		}
		c.reply(ws.EventCommandResult, ws.CommandResult{Command: comment.Action, ID: id})
	case ws.EventCommand:
		var command ws.CommandRequest
		if !h.decode(c, message.Data, &command) {
			return
		}
		result, err := session.RunCommand(s, command)
		if err != nil {
			c.replyError(err)
			return
		}
		c.reply(ws.EventCommandResult, result)
	case ws.EventSearch:
		var search ws.SearchRequest
		if !h.decode(c, message.Data, &search) {
			return
		}
		if search.Query == "" {
			e.ClearSearch()
		}
		c.reply(ws.EventSearchResult, ws.SearchResult{Query: search.Query, Matches: e.Search(search.Query)})
	default:
		h.logger.Debugw("unknown message", "event", message.Event, "room", c.Room)
		c.replyError(exception.NewInvalidOperationError(constants.ErrorUnknownEvent+" %q", message.Event))
	}
}

func (h *MessageHandler) decode(c *Client, data json.RawMessage, into any) bool {
	if len(data) > 0 {
		if err := json.Unmarshal(data, into); err != nil {
			c.replyError(exception.NewInvalidOperationError(constants.ErrorInvalidPayload+": %v", err))
			return false
		}
	}
	if err := h.validate.Struct(into); err != nil {
		c.replyError(exception.NewInvalidOperationError(constants.ErrorInvalidPayload+": %v", err))
		return false
	}
	return true
}

func (h *MessageHandler) check(c *Client, err error) {
	if err != nil {
		c.replyError(err)
	}
}
