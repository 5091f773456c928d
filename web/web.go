// Package web embeds the single-page catalog client.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
)

//go:embed static
var assets embed.FS

// FS returns the client assets rooted at the shell directory.
func FS() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves the static assets and falls back to index.html for every
// unknown path so client-side routes load the shell.
func Handler() fiber.Handler {
	return filesystem.New(filesystem.Config{
		Root:         http.FS(FS()),
		Index:        "index.html",
		NotFoundFile: "index.html",
		MaxAge:       3600,
	})
}
