package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	_ "docvault/docs"
	"docvault/internal/database"
	"docvault/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse the request, call the service, map the error.
func RegisterRoutes(app *fiber.App, pinger database.Pinger, docSvc service.DocumentService) {
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", HealthCheck(pinger))
	app.Get("/healthz", LivenessProbe())

	pdfs := app.Group("/api/pdfs")
	pdfs.Get("/", ListDocuments(docSvc))
	pdfs.Post("/upload", UploadDocument(docSvc))
	pdfs.Get("/view/:id", ViewDocument(docSvc))
	pdfs.Get("/:id", GetDocument(docSvc))
}
