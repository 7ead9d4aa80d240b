package db

import (
	"github.com/mangaexporter/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.ExportHistory{}); err != nil {
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		return err
	}

	return nil
}

func createCustomIndexes(db *gorm.DB) error {
	// History listing is always newest first
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_export_histories_finished
		ON export_histories (finished_at DESC)
		WHERE deleted_at IS NULL
	`).Error; err != nil {
		return err
	}

	return nil
}
