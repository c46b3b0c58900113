package db

// CommentDB is a stored comment. Anchor and Replies are JSON columns, the
// anchor being the from/to positions of the commented range.
type CommentDB struct {
	ID         string
	DocumentID string
	Author     string
	Content    string
	Resolved   bool
	Timestamp  string
	Text       string
	Anchor     string
	Replies    string
}
