package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fidde/signal_explorer/internal/apm"
	"github.com/fidde/signal_explorer/internal/catalog"
	"github.com/fidde/signal_explorer/internal/kvstore/memory"
	"github.com/fidde/signal_explorer/pkg/dataframe"
	"github.com/fidde/signal_explorer/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSignals is a test implementation of SignalService.
type mockSignals struct {
	listResult models.ListServicesResult
	getResult  models.GetServiceResult
	opsResult  models.ListOperationsResult
	depsResult models.ListDependenciesResult
	mapResult  models.ServiceMapResult
	series     []models.TimeSeries
	frame      dataframe.Frame
	err        error

	lastRequest       apm.Request
	lastMetricRequest apm.MetricRequest
	lastRawQuery      string
}

func (m *mockSignals) ListServices(ctx context.Context, req apm.Request) (models.ListServicesResult, error) {
	m.lastRequest = req
	return m.listResult, m.err
}

func (m *mockSignals) GetService(ctx context.Context, req apm.Request) (models.GetServiceResult, error) {
	m.lastRequest = req
	return m.getResult, m.err
}

func (m *mockSignals) ListServiceOperations(ctx context.Context, req apm.Request) (models.ListOperationsResult, error) {
	m.lastRequest = req
	return m.opsResult, m.err
}

func (m *mockSignals) ListServiceDependencies(ctx context.Context, req apm.Request) (models.ListDependenciesResult, error) {
	m.lastRequest = req
	return m.depsResult, m.err
}

func (m *mockSignals) GetServiceMap(ctx context.Context, req apm.Request) (models.ServiceMapResult, error) {
	m.lastRequest = req
	return m.mapResult, m.err
}

func (m *mockSignals) QueryRate(ctx context.Context, req apm.MetricRequest) ([]models.TimeSeries, error) {
	m.lastMetricRequest = req
	return m.series, m.err
}

func (m *mockSignals) QueryLatency(ctx context.Context, req apm.MetricRequest) ([]models.TimeSeries, error) {
	m.lastMetricRequest = req
	return m.series, m.err
}

func (m *mockSignals) RawQuery(ctx context.Context, query string) (dataframe.Frame, error) {
	m.lastRawQuery = query
	return m.frame, m.err
}

// fakeRefresher is a test implementation of CatalogRefresher. Refreshed
// names are reported on a channel because the handler refreshes in the
// background.
type fakeRefresher struct {
	names     []string
	err       error
	refreshed chan string
}

func newFakeRefresher(names ...string) *fakeRefresher {
	return &fakeRefresher{
		names:     names,
		refreshed: make(chan string, 8),
	}
}

func (f *fakeRefresher) Providers() []string {
	return f.names
}

func (f *fakeRefresher) Refresh(ctx context.Context, name string) (models.CachedDataSource, error) {
	f.refreshed <- name
	if f.err != nil {
		return models.CachedDataSource{}, f.err
	}
	return models.CachedDataSource{Name: name, Status: models.CacheStatusUpdated}, nil
}

// mockTailPPL is a test implementation of apm.PPLExecutor for the live tail.
type mockTailPPL struct {
	mu      sync.Mutex
	queries []string
	frame   dataframe.Frame
	err     error
}

func (m *mockTailPPL) Query(ctx context.Context, query string) (dataframe.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	return m.frame, m.err
}

func (m *mockTailPPL) queryLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

type testServerOptions struct {
	auth         AuthConfig
	tail         apm.PPLExecutor
	pollInterval time.Duration
	refresher    CatalogRefresher
}

func newTestServer(t *testing.T, opts testServerOptions) (*Server, *mockSignals, *catalog.Manager) {
	t.Helper()

	signals := &mockSignals{}
	manager := catalog.NewManager(memory.New(), testLogger())

	refresher := opts.refresher
	if refresher == nil {
		refresher = newFakeRefresher()
	}

	s := NewServer(Options{
		Addr:             "127.0.0.1:0",
		Signals:          signals,
		Catalog:          manager,
		Refresher:        refresher,
		Tail:             opts.tail,
		TailPollInterval: opts.pollInterval,
		Auth:             opts.auth,
		Logger:           testLogger(),
	})

	return s, signals, manager
}

func TestRouter_ListServicesWired(t *testing.T) {
	s, _, _ := newTestServer(t, testServerOptions{})

	body := `{"index": "otel-v1-apm-service", "startTime": "2025-06-01T00:00:00Z", "endTime": "2025-06-02T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/apm/services/list", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	s, _, _ := newTestServer(t, testServerOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rr := httptest.NewRecorder()

	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t, testServerOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/apm/services/list", nil)
	rr := httptest.NewRecorder()

	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}
