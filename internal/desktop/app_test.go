package desktop

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleService struct {
	terminated int
	shutdown   int
}

func (s *lifecycleService) Start(context.Context, domain.ExportRequest) (*domain.SessionSummary, error) {
	return nil, nil
}
func (s *lifecycleService) Progress(string, int64) (domain.ProgressRecord, error) {
	return domain.NewIdleRecord(), nil
}
func (s *lifecycleService) Sessions() []domain.SessionSummary { return nil }
func (s *lifecycleService) History(context.Context, int) ([]domain.ExportHistory, error) {
	return nil, nil
}
func (s *lifecycleService) Sites() []domain.Site { return domain.Sites() }
func (s *lifecycleService) Terminate(context.Context) error {
	s.terminated++
	return nil
}
func (s *lifecycleService) Shutdown(context.Context) error {
	s.shutdown++
	return nil
}

type emitted struct {
	event string
	data  []interface{}
}

func newTestApp(svc *lifecycleService) (*App, *[]emitted, *[]string) {
	var events []emitted
	var scripts []string
	app := NewApp(svc, web.BridgeConfig{BaseURL: "http://localhost:5000"}, time.Second, logger.Nop())
	app.emit = func(_ context.Context, event string, data ...interface{}) {
		events = append(events, emitted{event: event, data: data})
	}
	app.execJS = func(_ context.Context, js string) { scripts = append(scripts, js) }
	return app, &events, &scripts
}

func TestPublishDroppedBeforeStartup(t *testing.T) {
	app, events, _ := newTestApp(&lifecycleService{})

	app.Publish(domain.NewRunningRecord("s"))
	assert.Empty(t, *events)

	app.startup(context.Background())
	app.Publish(domain.NewRunningRecord("s"))
	require.Len(t, *events, 1)
	assert.Equal(t, ProgressEvent, (*events)[0].event)
	rec, ok := (*events)[0].data[0].(domain.ProgressRecord)
	require.True(t, ok)
	assert.Equal(t, "s", rec.ID)
}

func TestDomReadyInjectsBridge(t *testing.T) {
	app, _, scripts := newTestApp(&lifecycleService{})
	app.domReady(context.Background())

	require.Len(t, *scripts, 1)
	assert.Contains(t, (*scripts)[0], `"baseURL":"http://localhost:5000"`)
	assert.Contains(t, (*scripts)[0], "/api/export/start")
}

func TestCloseTerminatesExports(t *testing.T) {
	svc := &lifecycleService{}
	app, events, _ := newTestApp(svc)
	app.startup(context.Background())

	assert.False(t, app.beforeClose(context.Background()))
	assert.Equal(t, 1, svc.terminated)

	app.shutdown(context.Background())
	assert.Equal(t, 1, svc.shutdown)

	app.Publish(domain.NewRunningRecord("late"))
	assert.Empty(t, *events)
}

func TestServePageIsRaw(t *testing.T) {
	app, _, _ := newTestApp(&lifecycleService{})
	rec := httptest.NewRecorder()
	app.servePage(rec, httptest.NewRequest("GET", "/", nil))

	assert.Contains(t, rec.Body.String(), `id="skeyCookie"`)
	assert.NotContains(t, rec.Body.String(), "__EXPORTER__")
}
