package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/transport/http/dto"
)

type OutputHandler struct {
	opener    ports.Opener
	outputDir string
	logger    *logger.Logger
}

func NewOutputHandler(opener ports.Opener, outputDir string, logger *logger.Logger) *OutputHandler {
	return &OutputHandler{opener: opener, outputDir: outputDir, logger: logger}
}

func (h *OutputHandler) OpenOutput(c *fiber.Ctx) error {
	if h.opener == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.NewErrorResponse("no desktop to open folders on"))
	}
	if err := h.opener.Open(h.outputDir); err != nil {
		h.logger.Errorw("output_open_failed", "path", h.outputDir, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.NewErrorResponse(err.Error()))
	}
	return c.JSON(dto.OpenOutputResponse{Status: dto.StatusOK, Path: h.outputDir})
}
