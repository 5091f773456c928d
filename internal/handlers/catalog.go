package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/BayRex1/bayrex-apk/internal/catalog"
)

type CatalogHandler struct {
	catalog *catalog.Service
}

func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalog: svc}
}

// Stats returns aggregate catalog statistics
func (h *CatalogHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.catalog.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.catalog.Categories(),
	})
}

// Search is the quick search used by the header search box
func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	res, err := h.catalog.Search(c.UserContext(), c.Query("q"), c.QueryInt("limit", catalog.DefaultSearchLimit))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    res,
	})
}

func (h *CatalogHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "BayRex APK Server is running",
		"version": catalog.ServiceVersion,
	})
}

func (h *CatalogHandler) Info(c *fiber.Ctx) error {
	info, err := h.catalog.Info(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    info,
	})
}
