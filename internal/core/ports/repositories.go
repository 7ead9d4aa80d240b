package ports

import (
	"context"

	"github.com/mangaexporter/backend/internal/domain"
)

type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.ExportHistory) error
	GetBySessionID(ctx context.Context, sessionID string) (*domain.ExportHistory, error)
	GetAll(ctx context.Context, limit int) ([]domain.ExportHistory, error)
}
