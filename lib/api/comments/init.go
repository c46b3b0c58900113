package comments

import (
	"github.com/ether/etherdoc/lib"
	apiError "github.com/ether/etherdoc/lib/api/errors"
	"github.com/ether/etherdoc/lib/api/utils"
	"github.com/ether/etherdoc/lib/models/ws"
	"github.com/ether/etherdoc/lib/session"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type CommentBody struct {
	Author  string `json:"author" validate:"required,max=100"`
	Content string `json:"content" validate:"required,max=10000"`
}

type CommentResponse struct {
	ID string `json:"id"`
}

func run(ctx *fiber.Ctx, manager *session.Manager, validate *validator.Validate, req ws.CommentRequest, status int) error {
	s, err := utils.GetSessionSafe(ctx, manager)
	if err != nil {
		return utils.SendError(ctx, err)
	}
	if err := validate.Struct(req); err != nil {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(apiError.NewValidationError(err))
	}
	id, err := session.RunCommentAction(s, req)
	if err != nil {
		return utils.SendError(ctx, err)
	}
	if status == fiber.StatusNoContent {
		return ctx.SendStatus(status)
	}
	return ctx.Status(status).JSON(CommentResponse{ID: id})
}

// withBody parses a CommentBody and runs action with it.
func withBody(manager *session.Manager, validate *validator.Validate, action string, status int) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var body CommentBody
		if handled, err := utils.ParseBody(ctx, validate, &body); handled {
			return err
		}
		return run(ctx, manager, validate, ws.CommentRequest{
			Action:  action,
			ID:      ctx.Params("commentId"),
			Author:  body.Author,
			Content: body.Content,
		}, status)
	}
}

func byID(manager *session.Manager, validate *validator.Validate, action string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		return run(ctx, manager, validate, ws.CommentRequest{Action: action, ID: ctx.Params("commentId")}, fiber.StatusNoContent)
	}
}

// ListComments godoc
// @Summary List comments
// @Description Returns the active, resolved and orphaned comments of a document
// @Tags Comments
// @Produce json
// @Param documentId path string true "Document ID"
// @Success 200 {object} editor.CommentLists
// @Failure 404 {object} errors.Error
// @Router /api/documents/{documentId}/comments [get]
func ListComments(manager *session.Manager) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		s, err := utils.GetSessionSafe(ctx, manager)
		if err != nil {
			return utils.SendError(ctx, err)
		}
		return ctx.JSON(s.Editor.CommentLists())
	}
}

func Init(store *lib.InitStore) {
	manager, validate := store.Manager, store.Validator
	comments := store.C.Group("/api/documents/:documentId/comments")
	comments.Get("/", ListComments(manager))
	// Adds a comment on the current selection.
	comments.Post("/", withBody(manager, validate, ws.CommentActionAdd, fiber.StatusCreated))
	comments.Delete("/:commentId", byID(manager, validate, ws.CommentActionDelete))
	comments.Post("/:commentId/resolve", byID(manager, validate, ws.CommentActionResolve))
	comments.Post("/:commentId/unresolve", byID(manager, validate, ws.CommentActionUnresolve))
	comments.Post("/:commentId/locate", byID(manager, validate, ws.CommentActionLocate))
	comments.Post("/:commentId/replies", withBody(manager, validate, ws.CommentActionReply, fiber.StatusCreated))
}
