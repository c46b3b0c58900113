package io

import (
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ether/etherdoc/lib/exception"
	io2 "github.com/ether/etherdoc/lib/io"
	"github.com/ether/etherdoc/lib/session"
	"github.com/ether/etherdoc/lib/settings"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ImportError represents an import error with a status code
type ImportError struct {
	Status  string
	Message string
}

func (e *ImportError) Error() string {
	if e.Message != "" {
		return e.Status + ": " + e.Message
	}
	return e.Status
}

// ImportResponse is the JSON response for import operations
type ImportResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    *ImportData `json:"data,omitempty"`
}

type ImportData struct {
	DocumentID string `json:"documentId"`
	Version    int    `json:"version"`
}

// Known file extensions and the import format they map to
var knownFileEndings = map[string]string{
	".txt":      io2.FormatText,
	".html":     io2.FormatHTML,
	".htm":      io2.FormatHTML,
	".md":       io2.FormatMarkdown,
	".markdown": io2.FormatMarkdown,
	".json":     io2.FormatJSON,
	".pdf":      io2.FormatPDF,
}

// ImportHandler handles document import operations
type ImportHandler struct {
	manager  *session.Manager
	settings *settings.Settings
	logger   *zap.SugaredLogger
}

func NewImportHandler(manager *session.Manager, settings *settings.Settings, logger *zap.SugaredLogger) *ImportHandler {
	return &ImportHandler{
		manager:  manager,
		settings: settings,
		logger:   logger,
	}
}

// ImportDocument godoc
// @Summary Import a document
// @Description Replaces the content of a document with an uploaded txt, html, md or json file. The document is created if needed.
// @Tags Import
// @Accept multipart/form-data
// @Produce json
// @Param documentId path string true "Document ID"
// @Param file formData file true "File to import"
// @Success 200 {object} ImportResponse
// @Failure 400 {object} ImportResponse
// @Router /api/documents/{documentId}/import [post]
func (h *ImportHandler) ImportDocument(ctx *fiber.Ctx) error {
	documentID := ctx.Params("documentId")
	if !h.manager.IsValidDocumentID(documentID) {
		return ctx.Status(400).JSON(ImportResponse{Code: 1, Message: "invalidDocumentId"})
	}

	s, importErr := h.doImport(ctx, documentID)
	if importErr != nil {
		h.logger.Warnw("import failed", "document", documentID, "error", importErr)
		status := 400
		if importErr.Status == "internalError" {
			status = 500
		}
		return ctx.Status(status).JSON(ImportResponse{Code: 1, Message: importErr.Status})
	}

	return ctx.Status(200).JSON(ImportResponse{
		Code:    0,
		Message: "ok",
		Data:    &ImportData{DocumentID: s.ID, Version: s.Version()},
	})
}

func (h *ImportHandler) doImport(ctx *fiber.Ctx, documentID string) (*session.Session, *ImportError) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return nil, &ImportError{Status: "uploadFailed", Message: "no file uploaded"}
	}

	if h.settings.Import.MaxFileSize > 0 && fileHeader.Size > h.settings.Import.MaxFileSize {
		return nil, &ImportError{Status: "maxFileSize"}
	}

	fileEnding := strings.ToLower(filepath.Ext(fileHeader.Filename))
	format, ok := knownFileEndings[fileEnding]
	if !ok {
		return nil, &ImportError{Status: "uploadFailed", Message: "unknown file type " + fileEnding}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, &ImportError{Status: "uploadFailed", Message: "could not open file"}
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, &ImportError{Status: "uploadFailed", Message: "could not read file"}
	}
	if format != io2.FormatJSON && format != io2.FormatPDF && !utf8.Valid(content) {
		return nil, &ImportError{Status: "uploadFailed", Message: "file is not valid UTF-8"}
	}

	s, err := h.manager.Import(documentID, format, content)
	if err != nil {
		if exception.IsImportError(err) {
			return nil, &ImportError{Status: "importFailed", Message: err.Error()}
		}
		return nil, &ImportError{Status: "internalError", Message: err.Error()}
	}
	return s, nil
}
