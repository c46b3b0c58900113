package document

import (
	"time"

	"github.com/ether/etherdoc/lib/models/doc"
)

// Origin tells subscribers who issued an edit.
type Origin string

const (
	OriginUser    Origin = "user"
	OriginHistory Origin = "history"
	OriginSystem  Origin = "system"
)

// EditResult is the canonical change notification of one ApplyEdit call.
type EditResult struct {
	DocumentID string
	Version    int
	Label      string
	Kind       string
	Structural bool
	Origin     Origin
	Timestamp  time.Time

	// Before is the touched range in the tree before the edit, After the
	// touched range in the resulting tree.
	Before doc.Range
	After  doc.Range

	Diff    doc.Diff
	Forward Operation
	Inverse Operation

	// Doc is the committed tree. Subscribers must treat it as read-only.
	Doc *doc.Node
}

type editOptions struct {
	label      string
	origin     Origin
	structural *bool
}

type EditOption func(*editOptions)

func WithLabel(label string) EditOption {
	return func(o *editOptions) { o.label = label }
}

func WithOrigin(origin Origin) EditOption {
	return func(o *editOptions) { o.origin = origin }
}

// Structural overrides the default atomicity of the operation kind in
// history coalescing.
func Structural(structural bool) EditOption {
	return func(o *editOptions) { o.structural = &structural }
}
