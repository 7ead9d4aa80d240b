package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/infrastructure/push"
)

type PushHandler struct {
	hub    *push.Hub
	logger *logger.Logger
}

func NewPushHandler(hub *push.Hub, logger *logger.Logger) *PushHandler {
	return &PushHandler{hub: hub, logger: logger}
}

func (h *PushHandler) Handle(c *websocket.Conn) {
	h.logger.Infow("push_session_start", "remote", c.RemoteAddr().String())
	h.hub.Serve(c)
}
