package domain

import (
	"time"

	"gorm.io/gorm"
)

// ExportHistory is the persisted outcome of a finished export. Cookies are
// never stored, only a fingerprint of the skey.
type ExportHistory struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SessionID             string       `gorm:"size:36;uniqueIndex;not null" json:"session_id"`
	Site                  string       `gorm:"size:64;not null" json:"site"`
	Status                ExportStatus `gorm:"size:20;not null" json:"status"`
	Percent               int          `json:"percent"`
	Step                  int          `json:"step"`
	LogCount              int          `json:"log_count"`
	ExitCode              int          `json:"exit_code"`
	CredentialFingerprint string       `gorm:"size:32;index" json:"credential_fingerprint"`
	StartedAt             time.Time    `gorm:"not null" json:"started_at"`
	FinishedAt            time.Time    `gorm:"not null" json:"finished_at"`
}

func HistoryFromSession(s *ExportSession) *ExportHistory {
	h := &ExportHistory{
		SessionID:             s.ID,
		Site:                  s.Site,
		Status:                s.Record.Status,
		Percent:               s.Record.Percent,
		Step:                  s.Record.Step,
		LogCount:              len(s.Record.Logs),
		CredentialFingerprint: s.Fingerprint,
		StartedAt:             s.StartedAt,
	}
	if s.ExitCode != nil {
		h.ExitCode = *s.ExitCode
	}
	if s.FinishedAt != nil {
		h.FinishedAt = *s.FinishedAt
	}
	return h
}
