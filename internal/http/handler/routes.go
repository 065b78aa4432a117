package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	_ "imgupload/docs"
	"imgupload/internal/service"
)

// AppConfig returns the Fiber settings the routes rely on: the request body cap and the error envelope.
func AppConfig(bodyLimit int) fiber.Config {
	return fiber.Config{
		AppName:      "imgupload",
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler(),
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// uploadGuards run in front of the two upload endpoints only (e.g. a rate limiter).
func RegisterRoutes(app *fiber.App, svc service.ImageService, assets http.FileSystem, uploadGuards ...fiber.Handler) {
	app.Get("/health", HealthCheck(svc))
	app.Get("/healthz", LivenessProbe())

	app.Get("/", StaticAsset(assets, "index.html"))
	app.Get("/style.css", StaticAsset(assets, "style.css"))
	app.Get("/upload.js", StaticAsset(assets, "upload.js"))

	app.Get("/uploads/thumbnails/:name", ServeImage(svc, true))
	app.Get("/uploads/:name", ServeImage(svc, false))

	api := app.Group("/api")
	api.Post("/upload", guarded(uploadGuards, UploadImage(svc))...)
	api.Post("/upload-multiple", guarded(uploadGuards, UploadImages(svc))...)
	api.Get("/images", ListImages(svc))
	api.Delete("/images/:filename", DeleteImage(svc))
}

// RegisterDocs serves the Swagger UI and doc.json under /swagger/. The document leaves host and schemes
// empty, so the UI targets whichever host served it.
func RegisterDocs(app *fiber.App) {
	app.Get("/swagger/*", swagger.HandlerDefault)
}

func guarded(guards []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+1)
	out = append(out, guards...)
	return append(out, h)
}
