package document

import (
	"github.com/ether/etherdoc/lib"
	"github.com/ether/etherdoc/lib/api/utils"
	document2 "github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/editor"
	"github.com/ether/etherdoc/lib/history"
	"github.com/ether/etherdoc/lib/models/doc"
	"github.com/ether/etherdoc/lib/models/ws"
	"github.com/ether/etherdoc/lib/session"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type HistoryResponse struct {
	Steps   []history.StepInfo `json:"steps"`
	CanUndo bool               `json:"canUndo"`
	CanRedo bool               `json:"canRedo"`
}

type HighlightsResponse struct {
	Highlights []doc.Range `json:"highlights"`
}

// withSession resolves the document of the request and runs fn on it.
// Errors returned by fn are mapped to API errors.
func withSession(manager *session.Manager, fn func(ctx *fiber.Ctx, s *session.Session) error) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		s, err := utils.GetSessionSafe(ctx, manager)
		if err != nil {
			return utils.SendError(ctx, err)
		}
		if err := fn(ctx, s); err != nil {
			if _, ok := err.(*fiber.Error); ok {
				return err
			}
			return utils.SendError(ctx, err)
		}
		return nil
	}
}

// withBody is withSession for handlers that take a validated JSON body.
func withBody[T any](manager *session.Manager, validate *validator.Validate, fn func(ctx *fiber.Ctx, s *session.Session, body *T) error) fiber.Handler {
	return withSession(manager, func(ctx *fiber.Ctx, s *session.Session) error {
		var body T
		if handled, err := utils.ParseBody(ctx, validate, &body); handled {
			return err
		}
		return fn(ctx, s, &body)
	})
}

// ApplyOperation godoc
// @Summary Apply an operation
// @Description Commits a raw operation as one undo step
// @Tags Editing
// @Accept json
// @Produce json
// @Param documentId path string true "Document ID"
// @Param body body ws.OperationRequest true "Operation"
// @Success 200 {object} VersionResponse
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /api/documents/{documentId}/operations [post]
func ApplyOperation(manager *session.Manager, validate *validator.Validate) fiber.Handler {
	return withBody(manager, validate, func(ctx *fiber.Ctx, s *session.Session, req *ws.OperationRequest) error {
		op, err := document2.DecodeOperation(req.Operation)
		if err != nil {
			return err
		}
		if _, err := s.Editor.ApplyOperation(op, req.Label); err != nil {
			return err
		}
		return ctx.JSON(versionOf(s))
	})
}

// HandleKey godoc
// @Summary Send a key press
// @Description Runs Tab, Shift+Tab, Enter and Backspace through the list state machine
// @Tags Editing
// @Accept json
// @Produce json
// @Param documentId path string true "Document ID"
// @Param body body editor.KeyEvent true "Key"
// @Success 200 {object} editor.KeyResult
// @Router /api/documents/{documentId}/keys [post]
func HandleKey(manager *session.Manager, validate *validator.Validate) fiber.Handler {
	return withBody(manager, validate, func(ctx *fiber.Ctx, s *session.Session, key *editor.KeyEvent) error {
		res, err := s.Editor.HandleKey(*key)
		if err != nil {
			return err
		}
		return ctx.JSON(res)
	})
}

func InsertText(manager *session.Manager, validate *validator.Validate) fiber.Handler {
	return withBody(manager, validate, func(ctx *fiber.Ctx, s *session.Session, req *ws.TextRequest) error {
		if err := s.Editor.InsertText(req.Text); err != nil {
			return err
		}
		return ctx.JSON(versionOf(s))
	})
}

func SetSelection(manager *session.Manager, validate *validator.Validate) fiber.Handler {
	return withBody(manager, validate, func(ctx *fiber.Ctx, s *session.Session, req *ws.SelectionRequest) error {
		if err := s.Editor.SetSelection(req.Range); err != nil {
			return err
		}
		return ctx.JSON(req.Range)
	})
}

func Blur(manager *session.Manager) fiber.Handler {
	return withSession(manager, func(ctx *fiber.Ctx, s *session.Session) error {
		s.Editor.Blur()
		return ctx.SendStatus(fiber.StatusNoContent)
	})
}

func Undo(manager *session.Manager) fiber.Handler {
	return withSession(manager, func(ctx *fiber.Ctx, s *session.Session) error {
		if err := s.Editor.Undo(); err != nil {
			return err
		}
		return ctx.JSON(versionOf(s))
	})
}

func Redo(manager *session.Manager) fiber.Handler {
	return withSession(manager, func(ctx *fiber.Ctx, s *session.Session) error {
		if err := s.Editor.Redo(); err != nil {
			return err
		}
		return ctx.JSON(versionOf(s))
	})
}

func GetHistory(manager *session.Manager) fiber.Handler {
	return withSession(manager, func(ctx *fiber.Ctx, s *session.Session) error {
		return ctx.JSON(HistoryResponse{
			Steps:   s.Editor.Steps(),
			CanUndo: s.Editor.CanUndo(),
			CanRedo: s.Editor.CanRedo(),
		})
	})
}

// RunCommand godoc
// @Summary Run a toolbar command
// @Description Inserts images, tables and links, toggles lists and marks, styles table cells
// @Tags Editing
// @Accept json
// @Produce json
// @Param documentId path string true "Document ID"
// @Param body body ws.CommandRequest true "Command"
// @Success 200 {object} ws.CommandResult
// @Failure 400 {object} errors.Error
// @Failure 422 {object} errors.Error
// @Router /api/documents/{documentId}/commands [post]
func RunCommand(manager *session.Manager, validate *validator.Validate) fiber.Handler {
	return withBody(manager, validate, func(ctx *fiber.Ctx, s *session.Session, req *ws.CommandRequest) error {
		result, err := session.RunCommand(s, *req)
		if err != nil {
			return err
		}
		return ctx.JSON(result)
	})
}

func Search(manager *session.Manager, validate *validator.Validate) fiber.Handler {
	return withBody(manager, validate, func(ctx *fiber.Ctx, s *session.Session, req *ws.SearchRequest) error {
		return ctx.JSON(ws.SearchResult{Query: req.Query, Matches: s.Editor.Search(req.Query)})
	})
}

func ClearSearch(manager *session.Manager) fiber.Handler {
	return withSession(manager, func(ctx *fiber.Ctx, s *session.Session) error {
		s.Editor.ClearSearch()
		return ctx.SendStatus(fiber.StatusNoContent)
	})
}

func GetHighlights(manager *session.Manager) fiber.Handler {
	return withSession(manager, func(ctx *fiber.Ctx, s *session.Session) error {
		return ctx.JSON(HighlightsResponse{Highlights: s.Editor.Highlights()})
	})
}

func initEditing(documents fiber.Router, store *lib.InitStore) {
	manager, validate := store.Manager, store.Validator
	documents.Post("/:documentId/operations", ApplyOperation(manager, validate))
	documents.Post("/:documentId/keys", HandleKey(manager, validate))
	documents.Post("/:documentId/text", InsertText(manager, validate))
	documents.Put("/:documentId/selection", SetSelection(manager, validate))
	documents.Post("/:documentId/blur", Blur(manager))
	documents.Post("/:documentId/undo", Undo(manager))
	documents.Post("/:documentId/redo", Redo(manager))
	documents.Get("/:documentId/history", GetHistory(manager))
	documents.Post("/:documentId/commands", RunCommand(manager, validate))
	documents.Post("/:documentId/search", Search(manager, validate))
	documents.Delete("/:documentId/search", ClearSearch(manager))
	documents.Get("/:documentId/highlights", GetHighlights(manager))
}
