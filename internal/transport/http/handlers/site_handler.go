package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mangaexporter/backend/internal/core/ports"
)

type SiteHandler struct {
	service ports.ExportService
}

func NewSiteHandler(service ports.ExportService) *SiteHandler {
	return &SiteHandler{service: service}
}

func (h *SiteHandler) GetSites(c *fiber.Ctx) error {
	return c.JSON(h.service.Sites())
}
