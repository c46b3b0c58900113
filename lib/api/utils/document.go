package utils

import (
	apiError "github.com/ether/etherdoc/lib/api/errors"
	"github.com/ether/etherdoc/lib/session"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// GetSessionSafe returns the session of the :documentId route parameter.
// The document has to exist.
func GetSessionSafe(ctx *fiber.Ctx, manager *session.Manager) (*session.Session, error) {
	return manager.GetSession(ctx.Params("documentId"))
}

// SendError writes err as an API error with the status of its code.
func SendError(ctx *fiber.Ctx, err error) error {
	status, body := apiError.FromError(err)
	return ctx.Status(status).JSON(body)
}

// ParseBody decodes the JSON body into into and validates it. On failure the
// error response is already written and handled is true.
func ParseBody(ctx *fiber.Ctx, validate *validator.Validate, into any) (handled bool, err error) {
	if err := ctx.BodyParser(into); err != nil {
		return true, ctx.Status(fiber.StatusBadRequest).JSON(apiError.InvalidRequestError)
	}
	if err := validate.Struct(into); err != nil {
		return true, ctx.Status(fiber.StatusUnprocessableEntity).JSON(apiError.NewValidationError(err))
	}
	return false, nil
}
