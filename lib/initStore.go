package lib

import (
	"github.com/ether/etherdoc/lib/db"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/session"
	"github.com/ether/etherdoc/lib/settings"
	"github.com/ether/etherdoc/lib/ws"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type InitStore struct {
	C                 *fiber.App
	RetrievedSettings *settings.Settings
	Store             db.DataStore
	Manager           *session.Manager
	Hub               *ws.Hub
	Handler           *ws.MessageHandler
	Validator         *validator.Validate
	Logger            *zap.SugaredLogger
	Hooks             *hooks.Hook
}
