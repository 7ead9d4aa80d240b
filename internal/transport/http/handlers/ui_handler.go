package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/web"
)

type UIHandler struct {
	page   []byte
	logger *logger.Logger
}

// NewUIHandler renders the page once; the bridge settings do not change while
// the server runs.
func NewUIHandler(bridge web.BridgeConfig, logger *logger.Logger) (*UIHandler, error) {
	page, err := web.Page(bridge)
	if err != nil {
		return nil, err
	}
	return &UIHandler{page: page, logger: logger}, nil
}

func (h *UIHandler) Index(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(h.page)
}
