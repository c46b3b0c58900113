package db

import (
	"database/sql"

	"github.com/ether/etherdoc/lib/models/db"
)

type Reader interface {
	Scan(dest ...any) error
}

func ReadToDocumentDB(reader Reader) (*db.DocumentDB, error) {
	var document db.DocumentDB
	var createdAt, updatedAt sql.NullTime

	if err := reader.Scan(&document.ID, &document.Version, &document.Content,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		document.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		document.UpdatedAt = &updatedAt.Time
	}
	return &document, nil
}

func ReadToCommentDB(reader Reader) (*db.CommentDB, error) {
	var comment db.CommentDB

	if err := reader.Scan(&comment.ID, &comment.DocumentID, &comment.Author,
		&comment.Content, &comment.Resolved, &comment.Timestamp, &comment.Text,
		&comment.Anchor, &comment.Replies,
	); err != nil {
		return nil, err
	}
	return &comment, nil
}

var documentColumns = []string{"id", "version", "content", "created_at", "updated_at"}

var commentColumns = []string{"id", "document_id", "author", "content", "resolved",
	"timestamp", "text", "anchor", "replies"}
