package io

import (
	"github.com/ether/etherdoc/lib"
	"github.com/gofiber/fiber/v2"
)

func Init(store *lib.InitStore) {
	importHandler := NewImportHandler(store.Manager, store.RetrievedSettings, store.Logger)

	store.C.Get("/api/documents/:documentId/export/:type", func(ctx *fiber.Ctx) error {
		return GetExport(ctx, store.Manager, store.Logger)
	})
	store.C.Post("/api/documents/:documentId/import", importHandler.ImportDocument)
}
