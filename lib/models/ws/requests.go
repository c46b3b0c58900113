package ws

import (
	"encoding/json"

	"github.com/ether/etherdoc/lib/editor"
	"github.com/ether/etherdoc/lib/models/doc"
)

type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

type SelectionRequest struct {
	Range doc.Range `json:"range"`
}

type OperationRequest struct {
	Label     string          `json:"label"`
	Operation json.RawMessage `json:"operation" validate:"required"`
}

// Comment actions of CommentRequest.
const (
	CommentActionAdd       = "add"
	CommentActionDelete    = "delete"
	CommentActionResolve   = "resolve"
	CommentActionUnresolve = "unresolve"
	CommentActionReply     = "reply"
	CommentActionLocate    = "locate"
)

type CommentRequest struct {
	Action  string `json:"action" validate:"required,oneof=add delete resolve unresolve reply locate"`
	ID      string `json:"id" validate:"required_unless=Action add"`
	Author  string `json:"author" validate:"required_if=Action add,required_if=Action reply"`
	Content string `json:"content" validate:"required_if=Action add,required_if=Action reply"`
}

// Host commands of CommandRequest.
const (
	CommandInsertImage   = "insertImage"
	CommandResizeImage   = "resizeImage"
	CommandCellAlignment = "setCellAlignment"
	CommandCellColor     = "setCellBackground"
	CommandCreateTable   = "createTable"
	CommandToggleList    = "toggleList"
	CommandToggleMark    = "toggleMark"
	CommandSetLink       = "setLink"
)

type CommandRequest struct {
	Command string `json:"command" validate:"required,oneof=insertImage resizeImage setCellAlignment setCellBackground createTable toggleList toggleMark setLink"`
	Src     string `json:"src" validate:"required_if=Command insertImage"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
	ImageID string `json:"imageId" validate:"required_if=Command resizeImage"`
	Width   int    `json:"width" validate:"gte=0"`
	Height  int    `json:"height" validate:"gte=0"`
	Align   string `json:"align"`
	Color   string `json:"color"`
	Rows    int    `json:"rows" validate:"gte=0,lte=100"`
	Cols    int    `json:"cols" validate:"gte=0,lte=50"`
	List    string `json:"list" validate:"omitempty,oneof=bulletList orderedList"`
	Mark    string `json:"mark" validate:"omitempty,oneof=bold italic underline strike"`
	Href    string `json:"href"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

// CommandResult carries what a command created, if anything.
type CommandResult struct {
	Command string `json:"command"`
	ID      string `json:"id,omitempty"`
}

type SearchResult struct {
	Query   string      `json:"query"`
	Matches []doc.Range `json:"matches"`
}

// Snapshot is sent to a client once it joined a document.
type Snapshot struct {
	DocumentID string              `json:"documentId"`
	Version    int                 `json:"version"`
	Doc        *doc.Node           `json:"doc"`
	Selection  doc.Range           `json:"selection"`
	Comments   editor.CommentLists `json:"comments"`
	CanUndo    bool                `json:"canUndo"`
	CanRedo    bool                `json:"canRedo"`
}
