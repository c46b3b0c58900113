package io

import (
	"encoding/json"
	"time"

	"github.com/ether/etherdoc/lib/comments"
	"github.com/ether/etherdoc/lib/models/doc"
)

// DocumentExport is the lossless JSON form of a document: the tree and its
// comment records.
type DocumentExport struct {
	ID         string            `json:"id,omitempty"`
	Version    int               `json:"version"`
	Doc        *doc.Node         `json:"doc"`
	Comments   []comments.Record `json:"comments,omitempty"`
	ExportedAt *time.Time        `json:"exportedAt,omitempty"`
}

// ExportJSON writes the lossless JSON form of a document.
func ExportJSON(id string, version int, root *doc.Node, records []comments.Record) ([]byte, error) {
	now := time.Now().UTC()
	return json.MarshalIndent(DocumentExport{
		ID:         id,
		Version:    version,
		Doc:        root,
		Comments:   records,
		ExportedAt: &now,
	}, "", "  ")
}
