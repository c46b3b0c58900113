package db

import "github.com/ether/etherdoc/lib/models/db"

type DocumentMethods interface {
	SaveDocument(documentID string, document db.DocumentDB) error
	GetDocument(documentID string) (*db.DocumentDB, error)
	DoesDocumentExist(documentID string) (*bool, error)
	RemoveDocument(documentID string) error
	GetDocumentIds() (*[]string, error)
}

type CommentMethods interface {
	SaveComment(documentID string, comment db.CommentDB) error
	GetComments(documentID string) (*[]db.CommentDB, error)
	RemoveComment(documentID string, commentID string) error
}

type ServerMethods interface {
	SaveServerVersion(version string) error
	GetServerVersion() (*string, error)
}

type DataStore interface {
	DocumentMethods
	CommentMethods
	ServerMethods
	Close() error
}
