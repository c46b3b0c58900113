package editor

import (
	"github.com/ether/etherdoc/lib/comments"
)

// AddComment comments the current selection.
func (e *Editor) AddComment(author, content string) (string, error) {
	var id string
	err := e.run(func() error {
		var err error
		id, err = e.comments.AddComment(e.selection(), author, content)
		return err
	})
	return id, err
}

func (e *Editor) DeleteComment(id string) error {
	return e.run(func() error { return e.comments.DeleteComment(id) })
}

func (e *Editor) ResolveComment(id string) error {
	return e.run(func() error { return e.comments.Resolve(id) })
}

func (e *Editor) UnresolveComment(id string) error {
	return e.run(func() error { return e.comments.Unresolve(id) })
}

func (e *Editor) ReplyComment(id, author, content string) (string, error) {
	var replyID string
	err := e.run(func() error {
		var err error
		replyID, err = e.comments.AddReply(id, author, content)
		return err
	})
	return replyID, err
}

// LocateComment selects the text of comment id.
func (e *Editor) LocateComment(id string) error {
	return e.run(func() error {
		r, err := e.comments.Locate(id)
		if err != nil {
			return err
		}
		e.setSelection(r)
		return nil
	})
}

// CommentLists is the sidebar view of the comments.
type CommentLists struct {
	Active   []comments.Comment `json:"active"`
	Resolved []comments.Comment `json:"resolved"`
	Orphaned []comments.Comment `json:"orphaned"`
}

func (e *Editor) CommentLists() CommentLists {
	var out CommentLists
	e.read(func() {
		out = CommentLists{
			Active:   e.comments.Active(),
			Resolved: e.comments.Resolved(),
			Orphaned: e.comments.Orphaned(),
		}
	})
	return out
}

// CommentRecords exports the comments for persistence.
func (e *Editor) CommentRecords() []comments.Record {
	var out []comments.Record
	e.read(func() { out = e.comments.Records() })
	return out
}

// LoadComments replaces the comments with persisted records.
func (e *Editor) LoadComments(records []comments.Record) error {
	return e.run(func() error { return e.comments.Load(records) })
}
