package ports

import (
	"context"

	"github.com/mangaexporter/backend/internal/domain"
)

type ExportService interface {
	// Start validates the request, opens a session and launches the export
	// script in the background. It returns once the process is spawned.
	Start(ctx context.Context, req domain.ExportRequest) (*domain.SessionSummary, error)
	// Progress returns the record of sessionID, or of the most recent session
	// when sessionID is empty. Only log entries after the given seq are kept.
	Progress(sessionID string, after int64) (domain.ProgressRecord, error)
	Sessions() []domain.SessionSummary
	History(ctx context.Context, limit int) ([]domain.ExportHistory, error)
	Sites() []domain.Site
	// Terminate kills every live export process and waits for it to be reaped.
	Terminate(ctx context.Context) error
	// Shutdown terminates like Terminate and refuses further exports.
	Shutdown(ctx context.Context) error
}

// ProgressPublisher pushes snapshots to whatever window is showing them.
// Implementations must not block.
type ProgressPublisher interface {
	Publish(record domain.ProgressRecord)
}

// Opener shows a file or folder to the user.
type Opener interface {
	Open(target string) error
}
