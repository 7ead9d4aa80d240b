package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/pkg/utils/crypto"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	historyWriteTimeout = 5 * time.Second
)

type ExportServiceConfig struct {
	Sessions  *SessionManager
	Executor  ports.Executor
	History   ports.HistoryRepository
	Publisher ports.ProgressPublisher
	Logger    *logger.Logger
	Export    config.ExportConfig
}

// ExportService launches the export script and turns its output into
// session progress.
type ExportService struct {
	sessions  *SessionManager
	executor  ports.Executor
	history   ports.HistoryRepository
	publisher ports.ProgressPublisher
	logger    *logger.Logger
	cfg       config.ExportConfig

	mu      sync.Mutex
	running map[string]*exportRun
	closed  bool
}

type exportRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewExportService(cfg ExportServiceConfig) *ExportService {
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = NewSessionManager(cfg.Export.KeepSessions)
	}
	return &ExportService{
		sessions:  sessions,
		executor:  cfg.Executor,
		history:   cfg.History,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		cfg:       cfg.Export,
		running:   make(map[string]*exportRun),
	}
}

// SetPublisher swaps the window the snapshots go to. The desktop host only
// has one after its window started.
func (s *ExportService) SetPublisher(p ports.ProgressPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

func (s *ExportService) Start(ctx context.Context, req domain.ExportRequest) (*domain.SessionSummary, error) {
	if problems := req.Validate(); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	site, ok := domain.FindSite(req.SiteID())
	if !ok {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("unknown site %q", req.SiteID())}}
	}
	if site.Status != domain.SiteStatusActive {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("site %s is not available yet", site.Name)}}
	}

	arg, err := req.Cookies.Argument()
	if err != nil {
		return nil, fmt.Errorf("serialize cookies: %w", err)
	}
	fingerprint := crypto.Fingerprint(req.Cookies.Skey)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrExportClosed
	}
	session, err := s.sessions.Open(site.ID, fingerprint)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	// the run outlives the request that started it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if s.cfg.Timeout > 0 {
		runCtx, cancel = withTimeout(runCtx, cancel, s.cfg.Timeout)
	}
	run := &exportRun{cancel: cancel, done: make(chan struct{})}
	s.running[session.ID] = run
	s.mu.Unlock()

	s.logger.Infow("export_session_opened",
		"session_id", session.ID,
		"site", site.ID,
		"credential", fingerprint,
	)
	s.publish(session.Record)

	go s.execute(runCtx, session, s.runSpec(session, arg), run)

	summary := session.Summary()
	return &summary, nil
}

func withTimeout(parent context.Context, cancelParent context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		cancel()
		cancelParent()
	}
}

func (s *ExportService) runSpec(session domain.ExportSession, cookieArg string) ports.RunSpec {
	args := make([]string, 0, len(s.cfg.Args)+2)
	args = append(args, s.cfg.Args...)
	args = append(args, s.cfg.Script, cookieArg)

	env := []string{
		"MANGA_EXPORT_SESSION=" + session.ID,
		"MANGA_EXPORT_SITE=" + session.Site,
		"MANGA_EXPORT_OUTPUT_DIR=" + s.cfg.OutputDir,
		"MANGA_EXPORT_FORMAT=" + s.cfg.Format,
	}
	keys := make([]string, 0, len(s.cfg.Env))
	for k := range s.cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		// viper lowercases map keys
		env = append(env, strings.ToUpper(k)+"="+s.cfg.Env[k])
	}

	return ports.RunSpec{
		Binary: s.cfg.Command,
		Args:   args,
		Dir:    s.cfg.Workdir,
		Env:    env,
	}
}

func (s *ExportService) execute(ctx context.Context, session domain.ExportSession, spec ports.RunSpec, run *exportRun) {
	defer close(run.done)
	defer run.cancel()

	id := session.ID
	started := time.Now()
	s.logger.Infow("export_process_start", "session_id", id, "binary", spec.Binary, "script", s.cfg.Script)

	lastPercent := 0
	onStdout := func(line string) {
		events, err := domain.DecodeLine(line)
		if err != nil {
			s.logger.Debugw("export_script_output", "session_id", id, "line", line)
			return
		}
		if len(events) == 0 {
			return
		}
		record, changed := s.sessions.Apply(id, events)
		if !changed {
			return
		}
		if record.Percent < lastPercent {
			s.logger.Debugw("export_percent_decreased", "session_id", id, "from", lastPercent, "to", record.Percent)
		}
		lastPercent = record.Percent
		s.publish(record)
	}

	onStderr := func(line string) {
		if strings.TrimSpace(line) == "" {
			return
		}
		s.logger.Warnw("export_script_stderr", "session_id", id, "line", line)
		if record, changed := s.sessions.AppendLog(id, domain.LogEntry{
			Type:    domain.LogTypeError,
			Message: line,
		}); changed {
			s.publish(record)
		}
	}

	code, err := s.executor.Run(ctx, spec, onStdout, onStderr)
	switch {
	case err != nil:
		if code == 0 {
			code = -1
		}
		s.logger.Errorw("export_process_failed", "session_id", id, "error", err)
		s.sessions.AppendLog(id, domain.LogEntry{
			Type:    domain.LogTypeError,
			Message: fmt.Sprintf("Export failed: %v", err),
		})
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.logger.Warnw("export_process_timeout", "session_id", id, "timeout", s.cfg.Timeout)
		s.sessions.AppendLog(id, domain.LogEntry{
			Type:    domain.LogTypeError,
			Message: fmt.Sprintf("Export timed out after %s", s.cfg.Timeout),
		})
		if code == 0 {
			code = -1
		}
	case errors.Is(ctx.Err(), context.Canceled):
		s.logger.Warnw("export_process_terminated", "session_id", id)
		s.sessions.AppendLog(id, domain.LogEntry{
			Type:    domain.LogTypeError,
			Message: "Export terminated",
		})
		if code == 0 {
			code = -1
		}
	}

	finished, ferr := s.sessions.Finish(id, code)

	s.mu.Lock()
	delete(s.running, id)
	s.mu.Unlock()

	if ferr != nil {
		s.logger.Errorw("export_session_finish_failed", "session_id", id, "error", ferr)
		return
	}

	s.logger.Infow("export_process_exit",
		"session_id", id,
		"exit_code", code,
		"status", finished.Record.Status,
		"percent", finished.Record.Percent,
		"logs", len(finished.Record.Logs),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	s.publish(finished.Record)
	s.recordHistory(&finished)
}

func (s *ExportService) recordHistory(session *domain.ExportSession) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := s.history.Create(ctx, domain.HistoryFromSession(session)); err != nil {
		s.logger.Warnw("export_history_write_failed", "session_id", session.ID, "error", err)
	}
}

func (s *ExportService) publish(record domain.ProgressRecord) {
	s.mu.Lock()
	p := s.publisher
	s.mu.Unlock()
	if p == nil {
		return
	}
	p.Publish(record)
}

func (s *ExportService) Progress(sessionID string, after int64) (domain.ProgressRecord, error) {
	if sessionID == "" {
		return s.sessions.Latest().Since(after), nil
	}
	record, err := s.sessions.Record(sessionID)
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	return record.Since(after), nil
}

func (s *ExportService) Sessions() []domain.SessionSummary {
	return s.sessions.Summaries()
}

func (s *ExportService) Sites() []domain.Site {
	return domain.Sites()
}

func (s *ExportService) History(ctx context.Context, limit int) ([]domain.ExportHistory, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.history.GetAll(ctx, limit)
}

// Terminate kills every live export and waits until each one is reaped or
// ctx expires. The service keeps accepting new exports.
func (s *ExportService) Terminate(ctx context.Context) error {
	s.mu.Lock()
	runs := make([]*exportRun, 0, len(s.running))
	for id, run := range s.running {
		s.logger.Infow("export_process_kill", "session_id", id)
		runs = append(runs, run)
	}
	s.mu.Unlock()

	for _, run := range runs {
		run.cancel()
	}
	for _, run := range runs {
		select {
		case <-run.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown refuses new exports and terminates the running ones.
func (s *ExportService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Terminate(ctx)
}

// Live reports whether an export process is currently running.
func (s *ExportService) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running) > 0
}

var _ ports.ExportService = (*ExportService)(nil)
