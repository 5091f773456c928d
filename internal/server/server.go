// Package server assembles the fiber application: middleware, API routes,
// uploaded file serving and the embedded web client.
package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/sirupsen/logrus"

	"github.com/BayRex1/bayrex-apk/internal/blob"
	"github.com/BayRex1/bayrex-apk/internal/catalog"
	"github.com/BayRex1/bayrex-apk/internal/config"
	"github.com/BayRex1/bayrex-apk/internal/handlers"
	"github.com/BayRex1/bayrex-apk/internal/metrics"
	"github.com/BayRex1/bayrex-apk/internal/middleware"
	"github.com/BayRex1/bayrex-apk/internal/session"
	"github.com/BayRex1/bayrex-apk/internal/store"
	"github.com/BayRex1/bayrex-apk/web"
)

// multipartOverhead leaves room for form fields and part headers on top of
// the two files a request may carry.
const multipartOverhead = 1 << 20

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Config  *config.Config
	Log     logrus.FieldLogger
	Store   store.Store
	Blobs   blob.BlobStore
	Guard   *session.Guard
	Metrics *metrics.Metrics
}

// New returns a ready to listen fiber app.
func New(d Deps) *fiber.App {
	cfg := d.Config
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	app := fiber.New(fiber.Config{
		AppName:               "BayRex APK " + catalog.ServiceVersion,
		ServerHeader:          "BayRex",
		BodyLimit:             bodyLimit(cfg.UploadMaxBytes),
		ReadTimeout:           10 * time.Minute,
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler(d.Log, cfg.IsProduction()),
	})

	// Global middleware
	app.Use(d.Metrics.Middleware())
	app.Use(middleware.Logger(d.Log))
	app.Use(middleware.Recovery(d.Log))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), catalog.UploadsPrefix+"/")
		},
	}))
	app.Use(middleware.CORS())

	svc := catalog.NewService(d.Store, cfg.AdminUsername)
	authHandler := handlers.NewAuthHandler(d.Guard, cfg.IsProduction(), d.Log)
	catalogHandler := handlers.NewCatalogHandler(svc)
	uploadHandler := handlers.NewUploadHandler(d.Blobs)
	appHandler := handlers.NewAppHandler(handlers.AppHandlerConfig{
		Store:       d.Store,
		Catalog:     svc,
		Intake:      blob.NewIntake(d.Blobs, cfg.UploadMaxBytes),
		Blobs:       d.Blobs,
		Metrics:     d.Metrics,
		BaseURL:     cfg.BaseURL,
		DeleteFiles: cfg.DeleteFiles,
		Log:         d.Log,
	})

	app.Get("/metrics", d.Metrics.Handler())

	// API routes
	api := app.Group("/api")

	// Public routes
	api.Get("/health", catalogHandler.Health)
	api.Get("/info", catalogHandler.Info)
	api.Post("/login", authHandler.Login)
	api.Post("/logout", authHandler.Logout)
	api.Get("/check-auth", authHandler.CheckAuth)
	api.Get("/apps", appHandler.List)
	api.Get("/apps/:id", appHandler.Get)
	api.Post("/apps/:id/download", appHandler.Download)
	api.Get("/stats", catalogHandler.Stats)
	api.Get("/categories", catalogHandler.Categories)
	api.Get("/search", catalogHandler.Search)

	// Admin routes
	requireAdmin := middleware.RequireAdmin(d.Guard)
	audit := middleware.AuditLogger(d.Log)
	api.Post("/apps", requireAdmin, audit, appHandler.Create)
	api.Put("/apps/:id", requireAdmin, audit, appHandler.Update)
	api.Delete("/apps/:id", requireAdmin, audit, appHandler.Delete)

	api.All("/*", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not found")
	})

	// Uploaded files
	app.Get(catalog.UploadsPrefix+"/"+string(blob.KindAPK)+"/:name", uploadHandler.Serve(blob.KindAPK))
	app.Get(catalog.UploadsPrefix+"/"+string(blob.KindIcon)+"/:name", uploadHandler.Serve(blob.KindIcon))

	// Everything else is the web client
	app.Use(web.Handler())

	return app
}

func bodyLimit(uploadMax int64) int {
	limit := 2*uploadMax + multipartOverhead
	const maxInt = int(^uint(0) >> 1)
	if limit > int64(maxInt) {
		return maxInt
	}
	return int(limit)
}
