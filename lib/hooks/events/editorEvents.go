package events

import (
	"time"

	"github.com/ether/etherdoc/lib/models/doc"
)

// DocumentChanged is published once per committed edit.
type DocumentChanged struct {
	DocumentID string    `json:"documentId"`
	Version    int       `json:"version"`
	Label      string    `json:"label"`
	Kind       string    `json:"kind"`
	Origin     string    `json:"origin"`
	Structural bool      `json:"structural"`
	Before     doc.Range `json:"before"`
	After      doc.Range `json:"after"`
	Diff       doc.Diff  `json:"diff"`
	Timestamp  time.Time `json:"timestamp"`
}

type SelectionChanged struct {
	DocumentID string    `json:"documentId"`
	Selection  doc.Range `json:"selection"`
	Focused    bool      `json:"focused"`
}

// Comment actions carried by CommentChanged.
const (
	CommentAdded      = "added"
	CommentResolved   = "resolved"
	CommentUnresolved = "unresolved"
	CommentDeleted    = "deleted"
	CommentReplied    = "replied"
	CommentOrphaned   = "orphaned"
	CommentReattached = "reattached"
)

type CommentChanged struct {
	DocumentID string `json:"documentId"`
	CommentID  string `json:"commentId"`
	Action     string `json:"action"`
	Text       string `json:"text,omitempty"`
	Resolved   bool   `json:"resolved"`
}

// History actions carried by HistoryChanged.
const (
	HistoryRecorded  = "recorded"
	HistoryCoalesced = "coalesced"
	HistoryUndone    = "undone"
	HistoryRedone    = "redone"
)

type HistoryChanged struct {
	DocumentID string `json:"documentId"`
	StepID     string `json:"stepId"`
	Label      string `json:"label"`
	Action     string `json:"action"`
	CanUndo    bool   `json:"canUndo"`
	CanRedo    bool   `json:"canRedo"`
}

// AnchorDegraded reports a tracked range that collapsed or lost its block.
// It is informational and never an error.
type AnchorDegraded struct {
	DocumentID string          `json:"documentId"`
	Key        string          `json:"key"`
	Range      doc.AnchorRange `json:"range"`
}
