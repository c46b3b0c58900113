package events

import (
	"github.com/ether/etherdoc/lib/models/doc"
)

// BlockHTMLForExportContext is handed to getBlockHTMLForExport hooks for
// every textblock. Hooks may rewrite BlockContent in place.
type BlockHTMLForExportContext struct {
	Block        *doc.Node
	BlockContent *string
	Text         *string
	DocumentID   *string
}

// BlockMarkdownForExportContext is the markdown counterpart of
// BlockHTMLForExportContext.
type BlockMarkdownForExportContext struct {
	Block        *doc.Node
	BlockContent *string
	Text         *string
	DocumentID   *string
}

// BlockPDFForExportContext is handed to getBlockPDFForExport hooks before a
// textblock is laid out. Hooks may override its alignment and heading level.
type BlockPDFForExportContext struct {
	Block      *doc.Node
	Text       *string
	DocumentID *string
	Alignment  *string
	Heading    *int
}
