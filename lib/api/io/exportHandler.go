package io

import (
	io2 "github.com/ether/etherdoc/lib/io"
	"github.com/ether/etherdoc/lib/api/utils"
	"github.com/ether/etherdoc/lib/session"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var typesToExport = map[string]string{
	"txt":      io2.FormatText,
	"html":     io2.FormatHTML,
	"markdown": io2.FormatMarkdown,
	"md":       io2.FormatMarkdown,
	"json":     io2.FormatJSON,
	"pdf":      io2.FormatPDF,
}

// GetExport godoc
// @Summary Export a document
// @Description Exports the content of a document as txt, html, markdown, json or pdf
// @Tags Export
// @Produce octet-stream
// @Param documentId path string true "Document ID"
// @Param type path string true "Export type (txt, html, markdown, json, pdf)"
// @Success 200 {file} binary "Exported file"
// @Failure 400 {string} string "Invalid export type"
// @Failure 404 {object} errors.Error "Document not found"
// @Router /api/documents/{documentId}/export/{type} [get]
func GetExport(ctx *fiber.Ctx, manager *session.Manager, logger *zap.SugaredLogger) error {
	documentID := ctx.Params("documentId")
	exportType := ctx.Params("type")
	format, ok := typesToExport[exportType]
	if !ok {
		return ctx.Status(400).SendString("Invalid export type")
	}
	ctx.Response().Header.Set("Access-Control-Allow-Origin", "*")

	body, contentType, err := manager.Export(documentID, format)
	if err != nil {
		return utils.SendError(ctx, err)
	}
	logger.Infow("exporting document", "document", documentID, "format", format)

	ctx.Set(fiber.HeaderContentType, contentType)
	ctx.Attachment(documentID + "." + format)
	return ctx.Send(body)
}
