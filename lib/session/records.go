package session

import (
	"encoding/json"

	"github.com/ether/etherdoc/lib/comments"
	"github.com/ether/etherdoc/lib/models/db"
	"github.com/ether/etherdoc/lib/models/doc"
)

type commentAnchor struct {
	From doc.Position `json:"from"`
	To   doc.Position `json:"to"`
}

func recordToCommentDB(documentID string, record comments.Record) (db.CommentDB, error) {
	anchor, err := json.Marshal(commentAnchor{From: record.From, To: record.To})
	if err != nil {
		return db.CommentDB{}, err
	}
	replies := record.Replies
	if replies == nil {
		replies = []comments.ReplyRecord{}
	}
	encodedReplies, err := json.Marshal(replies)
	if err != nil {
		return db.CommentDB{}, err
	}

	return db.CommentDB{
		ID:         record.ID,
		DocumentID: documentID,
		Author:     record.Author,
		Content:    record.Content,
		Resolved:   record.Resolved,
		Timestamp:  record.Timestamp,
		Text:       record.Text,
		Anchor:     string(anchor),
		Replies:    string(encodedReplies),
	}, nil
}

func commentDBToRecord(comment db.CommentDB) (comments.Record, error) {
	var anchor commentAnchor
	if comment.Anchor != "" {
		if err := json.Unmarshal([]byte(comment.Anchor), &anchor); err != nil {
			return comments.Record{}, err
		}
	}
	var replies []comments.ReplyRecord
	if comment.Replies != "" {
		if err := json.Unmarshal([]byte(comment.Replies), &replies); err != nil {
			return comments.Record{}, err
		}
	}

	return comments.Record{
		ID:        comment.ID,
		Author:    comment.Author,
		Content:   comment.Content,
		Timestamp: comment.Timestamp,
		Resolved:  comment.Resolved,
		Replies:   replies,
		Text:      comment.Text,
		From:      anchor.From,
		To:        anchor.To,
	}, nil
}
