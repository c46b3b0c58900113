package db

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	db2 "github.com/ether/etherdoc/lib/models/db"
)

const emptyDocumentJSON = `{"type":"doc","content":[{"type":"paragraph"}]}`

func CreateRandomDocument() db2.DocumentDB {
	return db2.DocumentDB{
		Version: gofakeit.Number(0, 500),
		Content: emptyDocumentJSON,
	}
}

func CreateRandomComment() db2.CommentDB {
	return db2.CommentDB{
		ID:        "c-" + gofakeit.UUID(),
		Author:    gofakeit.Name(),
		Content:   gofakeit.Sentence(8),
		Resolved:  gofakeit.Bool(),
		Timestamp: gofakeit.Date().UTC().Format(time.RFC3339Nano),
		Text:      gofakeit.Word(),
		Anchor:    `{"from":{"path":[0,0],"offset":0},"to":{"path":[0,0],"offset":3}}`,
		Replies:   "[]",
	}
}
