package bridge

import (
	"context"
	"time"

	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
)

// DefaultInterval is how often the UI polls for progress.
const DefaultInterval = 500 * time.Millisecond

// Renderer shows progress to the user. Every log entry reaches Log exactly
// once.
type Renderer interface {
	Percent(percent int)
	Step(step int)
	Log(entry domain.LogEntry)
	Done(record domain.ProgressRecord)
}

type progressSource interface {
	Progress(sessionID string, after int64) (domain.ProgressRecord, error)
}

type Poller struct {
	source   progressSource
	renderer Renderer
	interval time.Duration
	logger   *logger.Logger

	lastSeq     int64
	lastPercent int
	lastStep    int
}

func NewPoller(source progressSource, renderer Renderer, interval time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		source:      source,
		renderer:    renderer,
		interval:    interval,
		logger:      log,
		lastPercent: -1,
		lastStep:    -1,
	}
}

// Watch polls sessionID until it reaches a terminal status or ctx ends.
// Failed polls are logged and retried on the next tick.
func (p *Poller) Watch(ctx context.Context, sessionID string) (domain.ProgressRecord, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.ProgressRecord{}, ctx.Err()
		case <-ticker.C:
		}

		record, err := p.source.Progress(sessionID, p.lastSeq)
		if err != nil {
			p.logger.Warnw("bridge_poll_failed", "session_id", sessionID, "error", err)
			continue
		}

		p.render(record)
		if record.Status.Terminal() {
			p.renderer.Done(record)
			return record, nil
		}
	}
}

func (p *Poller) render(record domain.ProgressRecord) {
	if record.Percent != p.lastPercent {
		p.lastPercent = record.Percent
		p.renderer.Percent(record.Percent)
	}
	if record.Step != p.lastStep {
		p.lastStep = record.Step
		p.renderer.Step(record.Step)
	}
	for _, entry := range record.Logs {
		if entry.Seq <= p.lastSeq {
			continue
		}
		p.renderer.Log(entry)
		p.lastSeq = entry.Seq
	}
}
