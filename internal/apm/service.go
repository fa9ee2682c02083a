// Package apm exposes the typed signal operations: service discovery over
// the PPL backend and golden-signal metrics over the Prometheus backend.
package apm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fidde/signal_explorer/internal/telemetry"
	"github.com/fidde/signal_explorer/internal/transform"
	"github.com/fidde/signal_explorer/pkg/dataframe"
	"github.com/fidde/signal_explorer/pkg/models"
	"github.com/fidde/signal_explorer/pkg/ppl"
	"github.com/fidde/signal_explorer/pkg/promql"
)

// Operation identifiers, used as telemetry labels and CLI verbs.
const (
	OpListServices            = "list_services"
	OpGetService              = "get_service"
	OpListServiceOperations   = "list_service_operations"
	OpListServiceDependencies = "list_service_dependencies"
	OpGetServiceMap           = "get_service_map"
	OpQueryRate               = "query_rate"
	OpQueryLatency            = "query_latency"
	OpRawQuery                = "raw_query"
)

const (
	defaultInterval = "5m"
	defaultStep     = "60s"
)

// PPLExecutor runs one PPL statement.
type PPLExecutor interface {
	Query(ctx context.Context, query string) (dataframe.Frame, error)
}

// RangeQuerier runs one PromQL range query.
type RangeQuerier interface {
	QueryRange(ctx context.Context, query string, start, end int64, step string) ([]models.TimeSeries, error)
}

// Request selects the documents for one service discovery operation.
// StartTime and EndTime are ISO timestamps; MaxResults of zero means
// unbounded.
type Request struct {
	Index         string            `json:"index"`
	StartTime     string            `json:"startTime"`
	EndTime       string            `json:"endTime"`
	KeyAttributes map[string]string `json:"keyAttributes,omitempty"`
	MaxResults    int               `json:"maxResults,omitempty"`
}

// Validate checks the fields every discovery operation needs.
func (r Request) Validate() error {
	if r.Index == "" {
		return errors.New("index is required")
	}
	if r.StartTime == "" || r.EndTime == "" {
		return errors.New("startTime and endTime are required")
	}
	return nil
}

// MetricRequest selects one golden-signal metrics query. StartTime and
// EndTime are epoch seconds.
type MetricRequest struct {
	Metric    string            `json:"metric"`
	Filters   map[string]string `json:"filters,omitempty"`
	Interval  string            `json:"interval,omitempty"`
	Stat      string            `json:"stat,omitempty"`
	StartTime int64             `json:"startTime"`
	EndTime   int64             `json:"endTime"`
	Step      string            `json:"step,omitempty"`
}

// Validate checks the fields every metrics query needs.
func (r MetricRequest) Validate() error {
	if r.Metric == "" {
		return errors.New("metric is required")
	}
	if r.StartTime == 0 || r.EndTime == 0 {
		return errors.New("startTime and endTime are required")
	}
	return nil
}

// Service executes the typed operations against the two backends. Query
// execution errors propagate; response transformation is best-effort and
// never fails.
type Service struct {
	ppl    PPLExecutor
	prom   RangeQuerier
	logger *slog.Logger
}

// NewService creates the operation layer over the given backend clients.
func NewService(pplExec PPLExecutor, prom RangeQuerier, logger *slog.Logger) *Service {
	return &Service{
		ppl:    pplExec,
		prom:   prom,
		logger: logger,
	}
}

// ListServices returns the deduplicated services seen in the window.
func (s *Service) ListServices(ctx context.Context, req Request) (models.ListServicesResult, error) {
	frame, err := s.run(ctx, OpListServices, ppl.BuildListServicesQuery(params(req)))
	if err != nil {
		return models.ListServicesResult{}, err
	}
	return transform.ListServicesResponse(frame), nil
}

// GetService returns one service's key and group-by attributes.
func (s *Service) GetService(ctx context.Context, req Request) (models.GetServiceResult, error) {
	frame, err := s.run(ctx, OpGetService, ppl.BuildGetServiceQuery(params(req)))
	if err != nil {
		return models.GetServiceResult{}, err
	}
	return transform.GetServiceResponse(frame), nil
}

// ListServiceOperations returns the service's operations with row counts.
func (s *Service) ListServiceOperations(ctx context.Context, req Request) (models.ListOperationsResult, error) {
	frame, err := s.run(ctx, OpListServiceOperations, ppl.BuildListServiceOperationsQuery(params(req)))
	if err != nil {
		return models.ListOperationsResult{}, err
	}
	return transform.ListServiceOperationsResponse(frame), nil
}

// ListServiceDependencies returns the service's downstream dependencies
// with call counts.
func (s *Service) ListServiceDependencies(ctx context.Context, req Request) (models.ListDependenciesResult, error) {
	frame, err := s.run(ctx, OpListServiceDependencies, ppl.BuildListServiceDependenciesQuery(params(req)))
	if err != nil {
		return models.ListDependenciesResult{}, err
	}
	return transform.ListServiceDependenciesResponse(frame), nil
}

// GetServiceMap returns the service topology in the window.
func (s *Service) GetServiceMap(ctx context.Context, req Request) (models.ServiceMapResult, error) {
	frame, err := s.run(ctx, OpGetServiceMap, ppl.BuildGetServiceMapQuery(params(req)))
	if err != nil {
		return models.ServiceMapResult{}, err
	}
	return transform.ServiceMapResponse(frame), nil
}

// RawQuery executes a caller-supplied PPL statement verbatim and returns
// the frame untransformed.
func (s *Service) RawQuery(ctx context.Context, query string) (dataframe.Frame, error) {
	return s.run(ctx, OpRawQuery, query)
}

// QueryRate returns request rate series for the filtered metric.
func (s *Service) QueryRate(ctx context.Context, req MetricRequest) ([]models.TimeSeries, error) {
	query := promql.BuildRateQuery(req.Metric, promql.BuildFilters(req.Filters), interval(req), promql.Stat(req.Stat))
	return s.runRange(ctx, OpQueryRate, query, req)
}

// QueryLatency returns latency series, either a quantile or the mean.
func (s *Service) QueryLatency(ctx context.Context, req MetricRequest) ([]models.TimeSeries, error) {
	query := promql.BuildLatencyQuery(promql.BuildFilters(req.Filters), interval(req), req.Stat)
	return s.runRange(ctx, OpQueryLatency, query, req)
}

func (s *Service) run(ctx context.Context, op, query string) (dataframe.Frame, error) {
	start := time.Now()
	frame, err := s.ppl.Query(ctx, query)
	s.observe(op, start, err)
	if err != nil {
		s.logger.Error("signal query failed", "operation", op, "error", err)
		return dataframe.Frame{}, fmt.Errorf("failed to execute %s query: %w", op, err)
	}
	return frame, nil
}

func (s *Service) runRange(ctx context.Context, op, query string, req MetricRequest) ([]models.TimeSeries, error) {
	step := req.Step
	if step == "" {
		step = defaultStep
	}

	start := time.Now()
	series, err := s.prom.QueryRange(ctx, query, req.StartTime, req.EndTime, step)
	s.observe(op, start, err)
	if err != nil {
		s.logger.Error("signal query failed", "operation", op, "error", err)
		return nil, fmt.Errorf("failed to execute %s query: %w", op, err)
	}
	return series, nil
}

func (s *Service) observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	telemetry.QueriesTotal.WithLabelValues(op, status).Inc()
	telemetry.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func params(req Request) ppl.Params {
	return ppl.Params{
		Index:         req.Index,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		KeyAttributes: req.KeyAttributes,
		MaxResults:    req.MaxResults,
	}
}

func interval(req MetricRequest) string {
	if req.Interval == "" {
		return defaultInterval
	}
	return req.Interval
}
