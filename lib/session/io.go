package session

import (
	"strconv"
	"strings"

	"github.com/ether/etherdoc/lib/exception"
	"github.com/ether/etherdoc/lib/io"
)

// Import replaces the content of document id with content in the given
// format, creating the document if needed. The replacement is one undo step.
// JSON and PDF imports carry their comments along; other formats keep the existing
// comments, which become orphaned when their text is gone.
func (m *Manager) Import(id, format string, content []byte) (*Session, error) {
	if limit := m.settings.Import.MaxFileSize; limit > 0 && int64(len(content)) > limit {
		return nil, exception.NewImportError(format, "file is larger than "+strconv.FormatInt(limit, 10)+" bytes", nil)
	}
	imported, err := m.importer.Import(format, content)
	if err != nil {
		return nil, err
	}

	s, err := m.OpenSession(id)
	if err != nil {
		return nil, err
	}
	if err := s.Editor.SetContent(imported.Doc, LabelImport); err != nil {
		return nil, err
	}
	if imported.Comments != nil && (strings.EqualFold(format, io.FormatJSON) || strings.EqualFold(format, io.FormatPDF)) {
		if err := s.Editor.LoadComments(imported.Comments); err != nil {
			m.logger.Warnw("some imported comments could not be attached", "document", id, "error", err)
		}
		if err := m.persistComments(s); err != nil {
			return nil, err
		}
	}
	m.logger.Infow("document imported", "document", id, "format", format, "bytes", len(content))
	return s, nil
}

// Export renders document id in format and returns the body with its
// content type.
func (m *Manager) Export(id, format string) ([]byte, string, error) {
	s, err := m.GetSession(id)
	if err != nil {
		return nil, "", err
	}
	root := s.Editor.Snapshot()

	switch strings.ToLower(format) {
	case io.FormatHTML, "htm":
		return []byte(m.html.GetDocumentHTML(id, root)), "text/html; charset=utf-8", nil
	case io.FormatMarkdown, "markdown":
		return []byte(m.markdown.GetMarkdown(id, root)), "text/markdown; charset=utf-8", nil
	case io.FormatText, "text":
		return []byte(io.GetText(root)), "text/plain; charset=utf-8", nil
	case io.FormatJSON:
		body, err := io.ExportJSON(id, s.Version(), root, s.Editor.CommentRecords())
		if err != nil {
			return nil, "", err
		}
		return body, "application/json", nil
	case io.FormatPDF:
		attachment, err := io.ExportJSON(id, s.Version(), root, s.Editor.CommentRecords())
		if err != nil {
			return nil, "", err
		}
		body, err := m.pdf.GetPDF(id, root, attachment)
		if err != nil {
			return nil, "", err
		}
		return body, "application/pdf", nil
	}
	return nil, "", exception.NewInvalidOperationError("unsupported export format %q", format)
}
