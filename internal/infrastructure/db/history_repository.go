package db

import (
	"context"
	"errors"

	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type historyRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoryRepository(db *gorm.DB, log *logger.Logger) ports.HistoryRepository {
	return &historyRepository{
		db:  db,
		log: log,
	}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.ExportHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Errorw("history_repo_create_failed", "session_id", entry.SessionID, "status", entry.Status, "error", err)
		return err
	}
	r.log.Infow("history_repo_create_ok", "id", entry.ID, "session_id", entry.SessionID, "status", entry.Status)
	return nil
}

func (r *historyRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.ExportHistory, error) {
	var entry domain.ExportHistory
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("history_repo_get_failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	return &entry, nil
}

func (r *historyRepository) GetAll(ctx context.Context, limit int) ([]domain.ExportHistory, error) {
	var entries []domain.ExportHistory
	err := r.db.WithContext(ctx).
		Order("finished_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		r.log.Errorw("history_repo_list_failed", "error", err)
		return nil, err
	}
	r.log.Infow("history_repo_list_ok", "count", len(entries))
	return entries, nil
}
