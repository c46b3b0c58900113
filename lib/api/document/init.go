package document

import (
	"github.com/ether/etherdoc/lib"
	apiError "github.com/ether/etherdoc/lib/api/errors"
	"github.com/ether/etherdoc/lib/api/utils"
	"github.com/ether/etherdoc/lib/io"
	"github.com/ether/etherdoc/lib/session"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type CreateDocumentRequest struct {
	ID   string `json:"id" validate:"required,max=50"`
	Text string `json:"text"`
}

type DocumentListResponse struct {
	DocumentIDs []string `json:"documentIds"`
}

type VersionResponse struct {
	DocumentID string `json:"documentId"`
	Version    int    `json:"version"`
}

type TextResponse struct {
	Text string `json:"text"`
}

func versionOf(s *session.Session) VersionResponse {
	return VersionResponse{DocumentID: s.ID, Version: s.Version()}
}

// ListDocuments godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Success 200 {object} DocumentListResponse
// @Failure 500 {object} errors.Error
// @Router /api/documents [get]
func ListDocuments(manager *session.Manager) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		ids, err := manager.GetDocumentIds()
		if err != nil {
			return utils.SendError(ctx, err)
		}
		return ctx.JSON(DocumentListResponse{DocumentIDs: ids})
	}
}

// CreateDocument godoc
// @Summary Create a document
// @Description Creates an empty document, or one holding the given plain text
// @Tags Documents
// @Accept json
// @Produce json
// @Param body body CreateDocumentRequest true "Document"
// @Success 201 {object} VersionResponse
// @Failure 400 {object} errors.Error
// @Failure 409 {object} errors.Error
// @Router /api/documents [post]
func CreateDocument(manager *session.Manager, validate *validator.Validate) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var req CreateDocumentRequest
		if handled, err := utils.ParseBody(ctx, validate, &req); handled {
			return err
		}
		exists, err := manager.DoesDocumentExist(req.ID)
		if err != nil {
			return utils.SendError(ctx, err)
		}
		if exists {
			return ctx.Status(fiber.StatusConflict).JSON(apiError.DocumentAlreadyExistsError)
		}
		s, err := manager.CreateDocument(req.ID, nil)
		if err != nil {
			return utils.SendError(ctx, err)
		}
		if req.Text != "" {
			if s, err = manager.Import(req.ID, io.FormatText, []byte(req.Text)); err != nil {
				return utils.SendError(ctx, err)
			}
		}
		return ctx.Status(fiber.StatusCreated).JSON(versionOf(s))
	}
}

// GetDocument godoc
// @Summary Get a document
// @Description Returns the tree, selection, comments and undo state of a document
// @Tags Documents
// @Produce json
// @Param documentId path string true "Document ID"
// @Success 200 {object} ws.Snapshot
// @Failure 404 {object} errors.Error
// @Router /api/documents/{documentId} [get]
func GetDocument(manager *session.Manager) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		s, err := utils.GetSessionSafe(ctx, manager)
		if err != nil {
			return utils.SendError(ctx, err)
		}
		return ctx.JSON(s.Snapshot())
	}
}

func DeleteDocument(manager *session.Manager) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := manager.RemoveDocument(ctx.Params("documentId")); err != nil {
			return utils.SendError(ctx, err)
		}
		return ctx.SendStatus(fiber.StatusNoContent)
	}
}

func GetText(manager *session.Manager) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		s, err := utils.GetSessionSafe(ctx, manager)
		if err != nil {
			return utils.SendError(ctx, err)
		}
		return ctx.JSON(TextResponse{Text: io.GetText(s.Editor.Snapshot())})
	}
}

func Init(store *lib.InitStore) {
	documents := store.C.Group("/api/documents")
	documents.Get("/", ListDocuments(store.Manager))
	documents.Post("/", CreateDocument(store.Manager, store.Validator))
	documents.Get("/:documentId", GetDocument(store.Manager))
	documents.Delete("/:documentId", DeleteDocument(store.Manager))
	documents.Get("/:documentId/text", GetText(store.Manager))

	initEditing(documents, store)
}
