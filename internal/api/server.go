// Package api provides the REST and WebSocket surface of the service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fidde/signal_explorer/internal/apm"
	"github.com/fidde/signal_explorer/internal/catalog"
	"github.com/fidde/signal_explorer/pkg/dataframe"
	"github.com/fidde/signal_explorer/pkg/models"
)

// SignalService executes the typed signal query operations.
type SignalService interface {
	ListServices(ctx context.Context, req apm.Request) (models.ListServicesResult, error)
	GetService(ctx context.Context, req apm.Request) (models.GetServiceResult, error)
	ListServiceOperations(ctx context.Context, req apm.Request) (models.ListOperationsResult, error)
	ListServiceDependencies(ctx context.Context, req apm.Request) (models.ListDependenciesResult, error)
	GetServiceMap(ctx context.Context, req apm.Request) (models.ServiceMapResult, error)
	QueryRate(ctx context.Context, req apm.MetricRequest) ([]models.TimeSeries, error)
	QueryLatency(ctx context.Context, req apm.MetricRequest) ([]models.TimeSeries, error)
	RawQuery(ctx context.Context, query string) (dataframe.Frame, error)
}

// CatalogRefresher fetches live metadata for a named data source.
type CatalogRefresher interface {
	Providers() []string
	Refresh(ctx context.Context, name string) (models.CachedDataSource, error)
}

// Options wires the server's collaborators.
type Options struct {
	Addr             string
	Signals          SignalService
	Catalog          *catalog.Manager
	Refresher        CatalogRefresher
	Tail             apm.PPLExecutor
	TailPollInterval time.Duration
	Auth             AuthConfig
	Logger           *slog.Logger
}

// Server is the REST API server.
type Server struct {
	signals   SignalService
	catalog   *catalog.Manager
	refresher CatalogRefresher
	tail      *tailHandler
	router    *chi.Mux
	server    *http.Server
	logger    *slog.Logger
}

// NewServer creates the API server with its routes and middleware.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		signals:   opts.Signals,
		catalog:   opts.Catalog,
		refresher: opts.Refresher,
		tail:      newTailHandler(opts.Tail, opts.TailPollInterval, opts.Logger),
		router:    chi.NewRouter(),
		logger:    opts.Logger,
	}

	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// Health and self-metrics stay outside auth
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		if opts.Auth.Enabled {
			r.Use(jwtAuth(opts.Auth))
		}

		r.Route("/apm", func(r chi.Router) {
			r.Post("/services/list", s.listServices)
			r.Post("/services/get", s.getService)
			r.Post("/services/operations", s.listServiceOperations)
			r.Post("/services/dependencies", s.listServiceDependencies)
			r.Post("/service-map", s.getServiceMap)
			r.Post("/metrics/rate", s.queryRate)
			r.Post("/metrics/latency", s.queryLatency)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/datasources", s.getDataSources)
			r.Put("/datasources/{name}", s.putDataSource)
			r.Get("/datasources/{name}/databases/{db}", s.getDatabase)
			r.Get("/datasources/{name}/databases/{db}/tables/{table}", s.getTable)
			r.Post("/datasources/{name}/refresh", s.refreshDataSource)
			r.Get("/accelerations", s.getAccelerations)
			r.Delete("/cache", s.clearCache)
		})

		r.Post("/query", s.rawQuery)
		r.Get("/livetail", s.tail.handle)
	})

	s.server = &http.Server{
		Addr:    opts.Addr,
		Handler: s.router,
	}

	return s
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown stops the live tail pollers and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.tail.closeAll()
	return s.server.Shutdown(ctx)
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
