package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/core/services"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/transport/http/dto"
)

type ExportHandler struct {
	service ports.ExportService
	logger  *logger.Logger
}

func NewExportHandler(service ports.ExportService, logger *logger.Logger) *ExportHandler {
	return &ExportHandler{service: service, logger: logger}
}

func (h *ExportHandler) StartExport(c *fiber.Ctx) error {
	var req dto.StartExportRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("export_start_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.NewErrorResponse("invalid request body"))
	}

	h.logger.Infow("export_start_request", "site", req.Site)
	summary, err := h.service.Start(c.UserContext(), req.ToDomain())
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			h.logger.Warnw("export_start_validation_failed", "details", verr.Problems)
			return c.Status(fiber.StatusBadRequest).JSON(dto.NewErrorResponse(verr.Error(), verr.Problems...))
		case errors.Is(err, services.ErrExportValidation):
			return c.Status(fiber.StatusBadRequest).JSON(dto.NewErrorResponse(err.Error()))
		case errors.Is(err, services.ErrExportConflict):
			h.logger.Warnw("export_start_conflict")
			return c.Status(fiber.StatusConflict).JSON(dto.NewErrorResponse(err.Error()))
		case errors.Is(err, services.ErrExportClosed):
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.NewErrorResponse(err.Error()))
		}
		h.logger.Errorw("export_start_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.NewErrorResponse(err.Error()))
	}

	h.logger.Infow("export_start_success", "session_id", summary.ID, "site", summary.Site)
	return c.JSON(dto.StartExportResponse{Status: dto.StatusStarted, ID: summary.ID})
}

func (h *ExportHandler) GetProgress(c *fiber.Ctx) error {
	var after int64
	if raw := c.Query("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.NewErrorResponse("invalid after"))
		}
		after = n
	}

	id := c.Query("id")
	record, err := h.service.Progress(id, after)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.NewErrorResponse("session not found"))
		}
		h.logger.Errorw("export_progress_failed", "session_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.NewErrorResponse(err.Error()))
	}
	return c.JSON(record)
}

func (h *ExportHandler) GetSessions(c *fiber.Ctx) error {
	return c.JSON(h.service.Sessions())
}

func (h *ExportHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	entries, err := h.service.History(c.UserContext(), limit)
	if err != nil {
		if errors.Is(err, services.ErrHistoryUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.NewErrorResponse(err.Error()))
		}
		h.logger.Errorw("export_history_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.NewErrorResponse(err.Error()))
	}

	h.logger.Infow("export_history_success", "count", len(entries))
	return c.JSON(entries)
}
