package db

import (
	"context"
	"sync"
	"time"

	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
)

// HistoryRepoStub keeps history in memory for runs without a database.
type HistoryRepoStub struct {
	logger  *logger.Logger
	mu      sync.RWMutex
	entries []domain.ExportHistory
	nextID  uint
}

func NewHistoryRepoStub(log *logger.Logger) ports.HistoryRepository {
	return &HistoryRepoStub{logger: log}
}

func (r *HistoryRepoStub) Create(ctx context.Context, entry *domain.ExportHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now()
	entry.ID = r.nextID
	entry.CreatedAt = now
	entry.UpdatedAt = now
	r.entries = append(r.entries, *entry)

	r.logger.Infow("export history",
		"session_id", entry.SessionID,
		"site", entry.Site,
		"status", entry.Status,
		"exit_code", entry.ExitCode,
	)
	return nil
}

func (r *HistoryRepoStub) GetBySessionID(ctx context.Context, sessionID string) (*domain.ExportHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		if r.entries[i].SessionID == sessionID {
			entry := r.entries[i]
			return &entry, nil
		}
	}
	return nil, nil
}

// GetAll returns entries newest first.
func (r *HistoryRepoStub) GetAll(ctx context.Context, limit int) ([]domain.ExportHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ExportHistory, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r.entries[i])
	}
	return out, nil
}
