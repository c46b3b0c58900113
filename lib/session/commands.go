package session

import (
	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/ether/etherdoc/lib/models/ws"
)

// RunCommand executes a host command on the session's editor. Requests are
// expected to be validated already.
func RunCommand(s *Session, req ws.CommandRequest) (ws.CommandResult, error) {
	e := s.Editor
	result := ws.CommandResult{Command: req.Command}
	var err error
	switch req.Command {
	case ws.CommandInsertImage:
		result.ID, err = e.InsertImage(req.Src, req.Alt, req.Caption)
	case ws.CommandResizeImage:
		err = e.ResizeImage(req.ImageID, req.Width, req.Height)
	case ws.CommandCellAlignment:
		err = e.SetCellAlignment(req.Align)
	case ws.CommandCellColor:
		err = e.SetCellBackground(req.Color)
	case ws.CommandCreateTable:
		err = e.CreateTable(req.Rows, req.Cols)
	case ws.CommandToggleList:
		err = e.ToggleList(doc.NodeType(req.List))
	case ws.CommandToggleMark:
		err = e.ToggleMark(doc.Mark{Type: doc.MarkType(req.Mark)})
	case ws.CommandSetLink:
		err = e.SetLink(req.Href)
	default:
		err = exception.NewInvalidOperationError("unknown command %q", req.Command)
	}
	return result, err
}

// RunCommentAction applies a comment request and returns the ID of the
// comment or reply it created, if any.
func RunCommentAction(s *Session, req ws.CommentRequest) (string, error) {
	e := s.Editor
	switch req.Action {
	case ws.CommentActionAdd:
		return e.AddComment(req.Author, req.Content)
	case ws.CommentActionDelete:
		return req.ID, e.DeleteComment(req.ID)
	case ws.CommentActionResolve:
		return req.ID, e.ResolveComment(req.ID)
	case ws.CommentActionUnresolve:
		return req.ID, e.UnresolveComment(req.ID)
	case ws.CommentActionReply:
		return e.ReplyComment(req.ID, req.Author, req.Content)
	case ws.CommentActionLocate:
		return req.ID, e.LocateComment(req.ID)
	}
	return "", exception.NewInvalidOperationError("unknown comment action %q", req.Action)
}

// Snapshot is the state a client needs to render the document.
func (s *Session) Snapshot() ws.Snapshot {
	return ws.Snapshot{
		DocumentID: s.ID,
		Version:    s.Version(),
		Doc:        s.Editor.Snapshot(),
		Selection:  s.Editor.Selection(),
		Comments:   s.Editor.CommentLists(),
		CanUndo:    s.Editor.CanUndo(),
		CanRedo:    s.Editor.CanRedo(),
	}
}
