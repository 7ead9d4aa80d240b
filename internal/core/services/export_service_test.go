package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubExecutor struct {
	stdout  []string
	stderr  []string
	code    int
	err     error
	release chan struct{}

	mu    sync.Mutex
	specs []ports.RunSpec
}

func (s *stubExecutor) Run(ctx context.Context, spec ports.RunSpec, onStdout, onStderr func(string)) (int, error) {
	s.mu.Lock()
	s.specs = append(s.specs, spec)
	s.mu.Unlock()

	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return -1, nil
		}
	}
	for _, line := range s.stdout {
		onStdout(line)
	}
	for _, line := range s.stderr {
		onStderr(line)
	}
	return s.code, s.err
}

func (s *stubExecutor) lastSpec() ports.RunSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specs[len(s.specs)-1]
}

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []domain.ProgressRecord
}

func (p *recordingPublisher) Publish(record domain.ProgressRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, record)
}

func (p *recordingPublisher) all() []domain.ProgressRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProgressRecord(nil), p.snapshots...)
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []domain.ExportHistory
}

func (h *memoryHistory) Create(ctx context.Context, entry *domain.ExportHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, *entry)
	return nil
}

func (h *memoryHistory) GetBySessionID(ctx context.Context, sessionID string) (*domain.ExportHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.entries {
		if h.entries[i].SessionID == sessionID {
			e := h.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (h *memoryHistory) GetAll(ctx context.Context, limit int) ([]domain.ExportHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit > len(h.entries) {
		limit = len(h.entries)
	}
	return append([]domain.ExportHistory(nil), h.entries[:limit]...), nil
}

type fixture struct {
	svc       *ExportService
	exec      *stubExecutor
	publisher *recordingPublisher
	history   *memoryHistory
	logs      *observer.ObservedLogs
}

func newFixture(t *testing.T, exec *stubExecutor, mutate ...func(*config.ExportConfig)) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	cfg := config.ExportConfig{
		Command:      "python3",
		Args:         []string{"-u"},
		Script:       "run_export.py",
		OutputDir:    "output",
		Format:       "JSON",
		KeepSessions: 5,
		Env:          map[string]string{"pythonioencoding": "utf-8"},
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	f := &fixture{
		exec:      exec,
		publisher: &recordingPublisher{},
		history:   &memoryHistory{},
		logs:      logs,
	}
	f.svc = NewExportService(ExportServiceConfig{
		Executor:  exec,
		History:   f.history,
		Publisher: f.publisher,
		Logger:    logger.FromZap(zap.New(core)),
		Export:    cfg,
	})
	return f
}

func validRequest() domain.ExportRequest {
	return domain.ExportRequest{Cookies: domain.Cookies{Skey: "secret-skey", Tfv: "tfv-value"}}
}

func (f *fixture) waitTerminal(t *testing.T, id string) domain.ProgressRecord {
	t.Helper()
	var rec domain.ProgressRecord
	require.Eventually(t, func() bool {
		var err error
		rec, err = f.svc.Progress(id, 0)
		return err == nil && rec.Status.Terminal() && !f.svc.Live()
	}, 5*time.Second, 5*time.Millisecond)
	return rec
}

func TestStartRejectsMissingCredentials(t *testing.T) {
	f := newFixture(t, &stubExecutor{})

	for _, cookies := range []domain.Cookies{{Tfv: "t"}, {Skey: "s"}, {}} {
		_, err := f.svc.Start(context.Background(), domain.ExportRequest{Cookies: cookies})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrExportValidation))

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.NotEmpty(t, verr.Problems)
	}

	rec, err := f.svc.Progress("", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportStatusIdle, rec.Status)
	assert.Empty(t, f.svc.Sessions())
	assert.Empty(t, f.publisher.all())
}

func TestStartRejectsPlannedSite(t *testing.T) {
	f := newFixture(t, &stubExecutor{})
	req := validRequest()
	req.Site = domain.SiteMangaDex

	_, err := f.svc.Start(context.Background(), req)
	assert.ErrorIs(t, err, ErrExportValidation)

	req.Site = "nowhere"
	_, err = f.svc.Start(context.Background(), req)
	assert.ErrorIs(t, err, ErrExportValidation)
}

func TestStartResetsRecordBeforeOutput(t *testing.T) {
	exec := &stubExecutor{release: make(chan struct{})}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)

	rec, err := f.svc.Progress(summary.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Percent)
	assert.Equal(t, 0, rec.Step)
	assert.Empty(t, rec.Logs)
	assert.Equal(t, domain.ExportStatusRunning, rec.Status)

	latest, _ := f.svc.Progress("", 0)
	assert.Equal(t, summary.ID, latest.ID)

	close(exec.release)
	f.waitTerminal(t, summary.ID)
}

func TestStartBuildsScriptInvocation(t *testing.T) {
	exec := &stubExecutor{}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	f.waitTerminal(t, summary.ID)

	spec := exec.lastSpec()
	assert.Equal(t, "python3", spec.Binary)
	require.Len(t, spec.Args, 3)
	assert.Equal(t, "-u", spec.Args[0])
	assert.Equal(t, "run_export.py", spec.Args[1])
	assert.JSONEq(t, `{"skey":"secret-skey","tfv":"tfv-value"}`, spec.Args[2])
	assert.Contains(t, spec.Env, "MANGA_EXPORT_SITE=mangapark")
	assert.Contains(t, spec.Env, "MANGA_EXPORT_FORMAT=JSON")
	assert.Contains(t, spec.Env, "MANGA_EXPORT_SESSION="+summary.ID)
	assert.Contains(t, spec.Env, "PYTHONIOENCODING=utf-8")
}

func TestExportAppliesStreamAndCompletes(t *testing.T) {
	exec := &stubExecutor{
		stdout: []string{`{"percent":10}`, `{"step":1,"log":"fetching"}`},
		code:   0,
	}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	rec := f.waitTerminal(t, summary.ID)

	assert.Equal(t, 10, rec.Percent)
	assert.Equal(t, 1, rec.Step)
	require.Len(t, rec.Logs, 1)
	assert.Equal(t, "fetching", rec.Logs[0].Message)
	assert.Equal(t, domain.ExportStatusCompleted, rec.Status)

	snapshots := f.publisher.all()
	require.GreaterOrEqual(t, len(snapshots), 4)
	assert.Equal(t, domain.ExportStatusRunning, snapshots[0].Status)
	assert.Equal(t, domain.ExportStatusCompleted, snapshots[len(snapshots)-1].Status)

	require.Eventually(t, func() bool {
		h, _ := f.history.GetBySessionID(context.Background(), summary.ID)
		return h != nil
	}, time.Second, 5*time.Millisecond)
	h, _ := f.history.GetBySessionID(context.Background(), summary.ID)
	assert.Equal(t, domain.ExportStatusCompleted, h.Status)
	assert.Equal(t, 1, h.LogCount)
	assert.Len(t, h.CredentialFingerprint, 32)
}

func TestExportNonzeroExitWithoutOutput(t *testing.T) {
	f := newFixture(t, &stubExecutor{code: 2})

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	rec := f.waitTerminal(t, summary.ID)

	assert.Equal(t, domain.ExportStatusError, rec.Status)
	assert.Equal(t, 0, rec.Percent)
	assert.Equal(t, 0, rec.Step)
	assert.Empty(t, rec.Logs)
}

func TestExportIgnoresPlainDiagnostics(t *testing.T) {
	exec := &stubExecutor{stdout: []string{"Loading config...", `{"percent":5}`, "", "still loading"}}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	rec := f.waitTerminal(t, summary.ID)

	assert.Equal(t, 5, rec.Percent)
	assert.Empty(t, rec.Logs)
	assert.Equal(t, domain.ExportStatusCompleted, rec.Status)

	diag := f.logs.FilterMessage("export_script_output").All()
	require.Len(t, diag, 2)
	assert.Equal(t, "Loading config...", diag[0].ContextMap()["line"])

	for _, entry := range f.logs.All() {
		for _, v := range entry.ContextMap() {
			assert.NotEqual(t, "secret-skey", v)
		}
	}
}

func TestExportStderrBecomesErrorLog(t *testing.T) {
	exec := &stubExecutor{
		stdout: []string{`{"percent":50,"status":"running"}`},
		stderr: []string{"Traceback (most recent call last):", "   "},
		code:   0,
	}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	rec := f.waitTerminal(t, summary.ID)

	require.Len(t, rec.Logs, 1)
	assert.Equal(t, domain.LogTypeError, rec.Logs[0].Type)
	assert.Equal(t, "Traceback (most recent call last):", rec.Logs[0].Message)
	assert.NotEmpty(t, rec.Logs[0].Time)
	assert.Equal(t, domain.ExportStatusCompleted, rec.Status)
}

func TestExportExecutorErrorMarksError(t *testing.T) {
	f := newFixture(t, &stubExecutor{err: errors.New("start command: not found")})

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	rec := f.waitTerminal(t, summary.ID)

	assert.Equal(t, domain.ExportStatusError, rec.Status)
	require.Len(t, rec.Logs, 1)
	assert.Contains(t, rec.Logs[0].Message, "not found")
}

func TestSecondStartWhileLiveConflicts(t *testing.T) {
	exec := &stubExecutor{release: make(chan struct{}), stdout: []string{`{"percent":30}`}}
	f := newFixture(t, exec)

	first, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrExportConflict)

	rec, err := f.svc.Progress("", 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, rec.ID)
	assert.Equal(t, domain.ExportStatusRunning, rec.Status)

	close(exec.release)
	done := f.waitTerminal(t, first.ID)
	assert.Equal(t, 30, done.Percent)

	_, err = f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
}

func TestTerminateKillsLiveExport(t *testing.T) {
	exec := &stubExecutor{release: make(chan struct{})}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Terminate(ctx))

	rec, err := f.svc.Progress(summary.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportStatusError, rec.Status)
	require.NotEmpty(t, rec.Logs)
	assert.Equal(t, "Export terminated", rec.Logs[len(rec.Logs)-1].Message)
	assert.False(t, f.svc.Live())

	_, err = f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err, "terminate keeps the service usable")
	require.NoError(t, f.svc.Shutdown(ctx))

	_, err = f.svc.Start(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrExportClosed)
}

func TestExportTimeout(t *testing.T) {
	exec := &stubExecutor{release: make(chan struct{})}
	f := newFixture(t, exec, func(c *config.ExportConfig) { c.Timeout = 20 * time.Millisecond })

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	rec := f.waitTerminal(t, summary.ID)

	assert.Equal(t, domain.ExportStatusError, rec.Status)
	require.NotEmpty(t, rec.Logs)
	assert.Contains(t, rec.Logs[len(rec.Logs)-1].Message, "timed out")
}

func TestProgressAfterSequence(t *testing.T) {
	exec := &stubExecutor{stdout: []string{`{"log":"a"}`, `{"log":"b"}`, `{"log":"c"}`}}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	f.waitTerminal(t, summary.ID)

	rec, err := f.svc.Progress(summary.ID, 1)
	require.NoError(t, err)
	require.Len(t, rec.Logs, 2)
	assert.Equal(t, int64(2), rec.Logs[0].Seq)
	assert.Equal(t, int64(3), rec.LastSeq)

	_, err = f.svc.Progress("unknown", 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHistoryLimits(t *testing.T) {
	f := newFixture(t, &stubExecutor{})
	entries, err := f.svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	f.svc.history = nil
	_, err = f.svc.History(context.Background(), 10)
	assert.ErrorIs(t, err, ErrHistoryUnavailable)
}

func TestExportPercentMayDecrease(t *testing.T) {
	exec := &stubExecutor{stdout: []string{`{"percent":60}`, `{"percent":30}`, `{"percent":250}`, `{"percent":-4}`}}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	rec := f.waitTerminal(t, summary.ID)

	assert.Equal(t, 0, rec.Percent)
	assert.Len(t, f.logs.FilterMessage("export_percent_decreased").All(), 2)
}

func TestExportNonzeroExitOverridesScriptCompletion(t *testing.T) {
	exec := &stubExecutor{stdout: []string{`{"percent":100,"status":"completed"}`}, code: 1}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	rec := f.waitTerminal(t, summary.ID)

	assert.Equal(t, domain.ExportStatusError, rec.Status)
	assert.Equal(t, 100, rec.Percent)
}

func TestExportKeepsValidFieldsOfOddLines(t *testing.T) {
	exec := &stubExecutor{stdout: []string{`{"percent":1e20}`, `{"percent":"50","log":"fetching"}`}}
	f := newFixture(t, exec)

	summary, err := f.svc.Start(context.Background(), validRequest())
	require.NoError(t, err)
	rec := f.waitTerminal(t, summary.ID)

	assert.Equal(t, 100, rec.Percent)
	require.Len(t, rec.Logs, 1)
	assert.Equal(t, "fetching", rec.Logs[0].Message)
	assert.Equal(t, domain.ExportStatusCompleted, rec.Status)
}
