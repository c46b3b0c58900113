package ws

import "encoding/json"

// Events a client sends.
const (
	EventKey       = "KEY"
	EventText      = "TEXT"
	EventSelection = "SELECTION"
	EventBlur      = "BLUR"
	EventOperation = "OPERATION"
	EventUndo      = "UNDO"
	EventRedo      = "REDO"
	EventComment   = "COMMENT"
	EventCommand   = "COMMAND"
	EventSearch    = "SEARCH"
)

// Events the server sends.
const (
	EventSnapshot         = "SNAPSHOT"
	EventKeyResult        = "KEY_RESULT"
	EventSearchResult     = "SEARCH_RESULT"
	EventCommandResult    = "COMMAND_RESULT"
	EventError            = "ERROR"
	EventDocumentChanged  = "DOCUMENT_CHANGED"
	EventSelectionChanged = "SELECTION_CHANGED"
	EventCommentChanged   = "COMMENT_CHANGED"
	EventHistoryChanged   = "HISTORY_CHANGED"
	EventAnchorDegraded   = "ANCHOR_DEGRADED"
)

// ClientMessage is the envelope of every message a client sends.
type ClientMessage struct {
	Event string          `json:"event" validate:"required"`
	Data  json.RawMessage `json:"data"`
}

// ServerMessage is the envelope of every message sent to clients.
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type ErrorMessage struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
