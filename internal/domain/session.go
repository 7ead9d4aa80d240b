package domain

import "time"

// ExportSession is one run of the export script.
type ExportSession struct {
	ID          string
	Site        string
	Fingerprint string
	StartedAt   time.Time
	FinishedAt  *time.Time
	ExitCode    *int
	Record      ProgressRecord
}

// Live reports whether the session still owns a running process.
func (s *ExportSession) Live() bool {
	return s.FinishedAt == nil
}

type SessionSummary struct {
	ID         string       `json:"id"`
	Site       string       `json:"site"`
	Status     ExportStatus `json:"status"`
	Percent    int          `json:"percent"`
	Step       int          `json:"step"`
	LogCount   int          `json:"log_count"`
	ExitCode   *int         `json:"exit_code,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

func (s *ExportSession) Summary() SessionSummary {
	return SessionSummary{
		ID:         s.ID,
		Site:       s.Site,
		Status:     s.Record.Status,
		Percent:    s.Record.Percent,
		Step:       s.Record.Step,
		LogCount:   len(s.Record.Logs),
		ExitCode:   s.ExitCode,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}
