package api

import (
	"net/http"

	"github.com/ether/etherdoc/lib"
	"github.com/ether/etherdoc/lib/api/comments"
	"github.com/ether/etherdoc/lib/api/document"
	apiError "github.com/ether/etherdoc/lib/api/errors"
	"github.com/ether/etherdoc/lib/api/io"
	"github.com/ether/etherdoc/lib/api/stats"
	"github.com/ether/etherdoc/lib/ws"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
)

func InitAPI(store *lib.InitStore) {
	document.Init(store)
	comments.Init(store)
	io.Init(store)
	stats.Init(store)

	store.C.Get("/api/documents/:documentId/ws", func(c *fiber.Ctx) error {
		documentID := c.Params("documentId")
		if !store.Manager.IsValidDocumentID(documentID) {
			return c.Status(fiber.StatusBadRequest).JSON(apiError.NewInvalidParamError("documentId"))
		}
		ip := c.IP()
		return adaptor.HTTPHandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ws.ServeWs(writer, request, documentID, ip, store.RetrievedSettings, store.Logger, store.Handler)
		})(c)
	})
}
