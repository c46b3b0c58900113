package db

import "time"

// DocumentDB is a stored document. Content holds the JSON encoded tree.
type DocumentDB struct {
	ID        string
	Version   int
	Content   string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
