package apm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/fidde/signal_explorer/pkg/dataframe"
	"github.com/fidde/signal_explorer/pkg/models"
)

type mockPPL struct {
	lastQuery string
	frame     dataframe.Frame
	err       error
}

func (m *mockPPL) Query(_ context.Context, query string) (dataframe.Frame, error) {
	m.lastQuery = query
	return m.frame, m.err
}

type mockProm struct {
	lastQuery string
	lastStart int64
	lastEnd   int64
	lastStep  string
	series    []models.TimeSeries
	err       error
}

func (m *mockProm) QueryRange(_ context.Context, query string, start, end int64, step string) ([]models.TimeSeries, error) {
	m.lastQuery = query
	m.lastStart = start
	m.lastEnd = end
	m.lastStep = step
	return m.series, m.err
}

func newTestService(pplMock *mockPPL, promMock *mockProm) *Service {
	return NewService(pplMock, promMock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func makeFrame(names []string, rows [][]interface{}) dataframe.Frame {
	fields := make([]dataframe.Field, len(names))
	for i, name := range names {
		values := make([]interface{}, len(rows))
		for j, row := range rows {
			values[j] = row[i]
		}
		fields[i] = dataframe.Field{Name: name, Values: values}
	}
	return dataframe.Frame{Fields: fields, Size: len(rows)}
}

func TestListServices(t *testing.T) {
	pplMock := &mockPPL{
		frame: makeFrame(
			[]string{"serviceName", "environmentType", "platformType", "timestamp"},
			[][]interface{}{
				{"checkout", "eks:prod-cluster/default", "AWS::EKS", "2025-06-01T10:00:00Z"},
				{"checkout", "eks:prod-cluster/default", "AWS::EKS", "2025-06-01T10:05:00Z"},
				{"payments", "generic:default", nil, "2025-06-01T10:10:00Z"},
			},
		),
	}
	svc := newTestService(pplMock, &mockProm{})

	result, err := svc.ListServices(context.Background(), Request{
		Index:      "otel-v1-apm-service",
		StartTime:  "2025-06-01T00:00:00Z",
		EndTime:    "2025-06-02T00:00:00Z",
		MaxResults: 500,
	})
	if err != nil {
		t.Fatalf("ListServices failed: %v", err)
	}

	wantQuery := "source=otel-v1-apm-service" +
		" | where timestamp >= '2025-06-01T00:00:00Z' and timestamp <= '2025-06-02T00:00:00Z'" +
		" | where eventType = 'SERVICE'" +
		" | fields serviceName, environmentType, platformType, timestamp" +
		" | head 500"
	if pplMock.lastQuery != wantQuery {
		t.Errorf("Query mismatch:\ngot  %s\nwant %s", pplMock.lastQuery, wantQuery)
	}

	if len(result.ServiceSummaries) != 2 {
		t.Fatalf("Expected 2 deduplicated services, got %d", len(result.ServiceSummaries))
	}
	first := result.ServiceSummaries[0].KeyAttributes
	if first.Name != "checkout" || first.Environment != "eks:prod-cluster/default" || first.Type != "Service" {
		t.Errorf("Key attributes mismatch: %+v", first)
	}
	if result.StartTime != 1748772000 || result.EndTime != 1748772600 {
		t.Errorf("Time range mismatch: %d..%d", result.StartTime, result.EndTime)
	}
}

func TestGetService(t *testing.T) {
	keyAttrs := map[string]interface{}{
		"name":        "checkout",
		"environment": "eks:prod-cluster/default",
		"type":        "Service",
	}
	groupAttrs := map[string]interface{}{
		"Platform": map[string]interface{}{"EKS.Cluster": "prod-cluster"},
	}
	pplMock := &mockPPL{
		frame: makeFrame(
			[]string{"service.keyAttributes", "service.groupByAttributes"},
			[][]interface{}{{keyAttrs, groupAttrs}},
		),
	}
	svc := newTestService(pplMock, &mockProm{})

	result, err := svc.GetService(context.Background(), Request{
		Index:     "otel-v1-apm-service",
		StartTime: "2025-06-01T00:00:00Z",
		EndTime:   "2025-06-02T00:00:00Z",
		KeyAttributes: map[string]string{
			"serviceName": "checkout",
			"environment": "eks:prod-cluster/default",
		},
	})
	if err != nil {
		t.Fatalf("GetService failed: %v", err)
	}

	// Sorted key order: environment before serviceName.
	if !strings.Contains(pplMock.lastQuery,
		" | where environment = 'eks:prod-cluster/default' | where serviceName = 'checkout'") {
		t.Errorf("Key attribute predicates wrong or unsorted: %s", pplMock.lastQuery)
	}
	if !strings.Contains(pplMock.lastQuery, " | fields service.keyAttributes, service.groupByAttributes") {
		t.Errorf("Projection mismatch: %s", pplMock.lastQuery)
	}
	if strings.Contains(pplMock.lastQuery, " | head") {
		t.Errorf("Unbounded request should have no head clause: %s", pplMock.lastQuery)
	}

	if result.Service.KeyAttributes["name"] != "checkout" {
		t.Errorf("Key attributes not passed through: %+v", result.Service.KeyAttributes)
	}
}

func TestListServiceOperations(t *testing.T) {
	op := func(name string) map[string]interface{} {
		return map[string]interface{}{"name": name}
	}
	pplMock := &mockPPL{
		frame: makeFrame(
			[]string{"operation", "timestamp"},
			[][]interface{}{
				{op("GET /api/cart"), "2025-06-01T10:00:00Z"},
				{op("GET /api/cart"), "2025-06-01T10:01:00Z"},
				{op("POST /api/cart"), "2025-06-01T10:02:00Z"},
			},
		),
	}
	svc := newTestService(pplMock, &mockProm{})

	result, err := svc.ListServiceOperations(context.Background(), Request{
		Index:         "otel-v1-apm-service",
		StartTime:     "2025-06-01T00:00:00Z",
		EndTime:       "2025-06-02T00:00:00Z",
		KeyAttributes: map[string]string{"serviceName": "checkout"},
	})
	if err != nil {
		t.Fatalf("ListServiceOperations failed: %v", err)
	}

	if !strings.Contains(pplMock.lastQuery, " | where eventType = 'SERVICE_OPERATION'") {
		t.Errorf("Event type mismatch: %s", pplMock.lastQuery)
	}
	if len(result.Operations) != 2 {
		t.Fatalf("Expected 2 operations, got %d", len(result.Operations))
	}
	if result.Operations[0].Name != "GET /api/cart" || result.Operations[0].Count != 2 {
		t.Errorf("Operation grouping mismatch: %+v", result.Operations[0])
	}
}

func TestListServiceDependencies(t *testing.T) {
	dep := func(remote string) map[string]interface{} {
		return map[string]interface{}{
			"remoteService": map[string]interface{}{
				"keyAttributes": map[string]interface{}{"name": remote},
			},
		}
	}
	pplMock := &mockPPL{
		frame: makeFrame(
			[]string{"operation", "timestamp"},
			[][]interface{}{
				{dep("orders-db"), "2025-06-01T10:00:00Z"},
				{dep("orders-db"), "2025-06-01T10:01:00Z"},
				{dep("payments"), "2025-06-01T10:02:00Z"},
			},
		),
	}
	svc := newTestService(pplMock, &mockProm{})

	result, err := svc.ListServiceDependencies(context.Background(), Request{
		Index:         "otel-v1-apm-service",
		StartTime:     "2025-06-01T00:00:00Z",
		EndTime:       "2025-06-02T00:00:00Z",
		KeyAttributes: map[string]string{"serviceName": "checkout"},
	})
	if err != nil {
		t.Fatalf("ListServiceDependencies failed: %v", err)
	}

	if !strings.Contains(pplMock.lastQuery, " | where eventType = 'SERVICE_DEPENDENCY'") {
		t.Errorf("Event type mismatch: %s", pplMock.lastQuery)
	}
	if !strings.Contains(pplMock.lastQuery, " | fields operation, timestamp") {
		t.Errorf("Projection mismatch: %s", pplMock.lastQuery)
	}
	if len(result.Dependencies) != 2 {
		t.Fatalf("Expected 2 dependencies, got %d", len(result.Dependencies))
	}
	if result.Dependencies[0].Name != "orders-db" || result.Dependencies[0].CallCount != 2 {
		t.Errorf("Dependency grouping mismatch: %+v", result.Dependencies[0])
	}
}

func TestGetServiceMap(t *testing.T) {
	side := func(name string) map[string]interface{} {
		return map[string]interface{}{
			"keyAttributes": map[string]interface{}{
				"name":        name,
				"environment": "generic:default",
				"type":        "Service",
			},
			"groupByAttributes": map[string]interface{}{
				"Platform": map[string]interface{}{"PlatformType": "Generic"},
			},
		}
	}
	pplMock := &mockPPL{
		frame: makeFrame(
			[]string{"service", "remoteService", "timestamp"},
			[][]interface{}{
				{side("checkout"), side("orders-db"), "2025-06-01T10:00:00Z"},
				{side("checkout"), side("orders-db"), "2025-06-01T10:01:00Z"},
			},
		),
	}
	svc := newTestService(pplMock, &mockProm{})

	result, err := svc.GetServiceMap(context.Background(), Request{
		Index:     "otel-v1-apm-service",
		StartTime: "2025-06-01T00:00:00Z",
		EndTime:   "2025-06-02T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("GetServiceMap failed: %v", err)
	}

	if !strings.Contains(pplMock.lastQuery, " | fields service, remoteService, timestamp") {
		t.Errorf("Projection mismatch: %s", pplMock.lastQuery)
	}
	if len(result.Nodes) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(result.Nodes))
	}
	if len(result.Edges) != 1 {
		t.Fatalf("Expected 1 aggregated edge, got %d", len(result.Edges))
	}
	if result.Edges[0].CallCount != 2 {
		t.Errorf("Edge call count mismatch: %+v", result.Edges[0])
	}
	if _, ok := result.AvailableGroupByAttributes["Platform.PlatformType"]; !ok {
		t.Errorf("Group-by attributes missing: %+v", result.AvailableGroupByAttributes)
	}
}

func TestQueryRate(t *testing.T) {
	promMock := &mockProm{series: []models.TimeSeries{{Labels: map[string]string{}, Points: []models.Point{}}}}
	svc := newTestService(&mockPPL{}, promMock)

	series, err := svc.QueryRate(context.Background(), MetricRequest{
		Metric:    "request_count",
		Filters:   map[string]string{"serviceName": "checkout"},
		Stat:      "sum",
		StartTime: 1748772000,
		EndTime:   1748775600,
	})
	if err != nil {
		t.Fatalf("QueryRate failed: %v", err)
	}
	if len(series) != 1 {
		t.Errorf("Series not passed through: %d", len(series))
	}

	want := `sum(rate(request_count{serviceName="checkout"}[5m]))`
	if promMock.lastQuery != want {
		t.Errorf("Query mismatch:\ngot  %s\nwant %s", promMock.lastQuery, want)
	}
	if promMock.lastStart != 1748772000 || promMock.lastEnd != 1748775600 {
		t.Errorf("Range not forwarded: %d..%d", promMock.lastStart, promMock.lastEnd)
	}
	if promMock.lastStep != "60s" {
		t.Errorf("Default step not applied: %s", promMock.lastStep)
	}
}

func TestQueryRate_CustomIntervalAndStep(t *testing.T) {
	promMock := &mockProm{}
	svc := newTestService(&mockPPL{}, promMock)

	_, err := svc.QueryRate(context.Background(), MetricRequest{
		Metric:   "request_count",
		Interval: "1m",
		Step:     "15s",
	})
	if err != nil {
		t.Fatalf("QueryRate failed: %v", err)
	}

	if promMock.lastQuery != "rate(request_count[1m])" {
		t.Errorf("Query mismatch: %s", promMock.lastQuery)
	}
	if promMock.lastStep != "15s" {
		t.Errorf("Step not forwarded: %s", promMock.lastStep)
	}
}

func TestQueryLatency(t *testing.T) {
	tests := []struct {
		name string
		stat string
		want string
	}{
		{
			name: "p99 quantile",
			stat: "p99",
			want: `histogram_quantile(0.99, rate(latency_bucket{serviceName="checkout"}[5m]))`,
		},
		{
			name: "default mean",
			stat: "",
			want: `rate(latency_sum{serviceName="checkout"}[5m]) / rate(latency_count{serviceName="checkout"}[5m])`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promMock := &mockProm{}
			svc := newTestService(&mockPPL{}, promMock)

			_, err := svc.QueryLatency(context.Background(), MetricRequest{
				Filters: map[string]string{"serviceName": "checkout"},
				Stat:    tt.stat,
			})
			if err != nil {
				t.Fatalf("QueryLatency failed: %v", err)
			}
			if promMock.lastQuery != tt.want {
				t.Errorf("Query mismatch:\ngot  %s\nwant %s", promMock.lastQuery, tt.want)
			}
		})
	}
}

func TestRawQuery(t *testing.T) {
	pplMock := &mockPPL{
		frame: makeFrame(
			[]string{"serviceName", "count()"},
			[][]interface{}{{"checkout", float64(42)}},
		),
	}
	svc := newTestService(pplMock, &mockProm{})

	query := "source=otel-v1-apm-span-000001 | stats count() by serviceName"
	frame, err := svc.RawQuery(context.Background(), query)
	if err != nil {
		t.Fatalf("RawQuery failed: %v", err)
	}
	if pplMock.lastQuery != query {
		t.Errorf("Query should pass through unchanged, got %s", pplMock.lastQuery)
	}
	if frame.Size != 1 || len(frame.Fields) != 2 {
		t.Errorf("Unexpected frame shape: size=%d fields=%d", frame.Size, len(frame.Fields))
	}
}

func TestExecutionErrorsPropagate(t *testing.T) {
	backendErr := errors.New("backend unreachable")

	svc := newTestService(&mockPPL{err: backendErr}, &mockProm{err: backendErr})

	if _, err := svc.ListServices(context.Background(), Request{Index: "otel"}); !errors.Is(err, backendErr) {
		t.Errorf("ListServices should propagate the backend error, got %v", err)
	}
	if _, err := svc.QueryRate(context.Background(), MetricRequest{Metric: "request_count"}); !errors.Is(err, backendErr) {
		t.Errorf("QueryRate should propagate the backend error, got %v", err)
	}
	if _, err := svc.RawQuery(context.Background(), "source=x"); !errors.Is(err, backendErr) {
		t.Errorf("RawQuery should propagate the backend error, got %v", err)
	}
}
