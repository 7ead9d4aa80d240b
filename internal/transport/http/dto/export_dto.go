package dto

import "github.com/mangaexporter/backend/internal/domain"

const (
	StatusStarted = "started"
	StatusError   = "error"
	StatusOK      = "ok"
)

// StartExportRequest is the body of POST /api/export/start.
type StartExportRequest struct {
	Cookies domain.Cookies `json:"cookies"`
	Site    string         `json:"site,omitempty"`
}

func (r *StartExportRequest) ToDomain() domain.ExportRequest {
	return domain.ExportRequest{Cookies: r.Cookies, Site: r.Site}
}

type StartExportResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type ErrorResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func NewErrorResponse(message string, details ...string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: message, Details: details}
}

type OpenOutputResponse struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}
