package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fidde/signal_explorer/pkg/models"
)

func TestPromClient_QueryRange(t *testing.T) {
	var gotPath string
	var gotParams map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotParams = map[string]string{
			"query": r.URL.Query().Get("query"),
			"start": r.URL.Query().Get("start"),
			"end":   r.URL.Query().Get("end"),
			"step":  r.URL.Query().Get("step"),
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"data": {
				"resultType": "matrix",
				"result": [
					{
						"metric": {"serviceName": "checkout"},
						"values": [[1748772000, "12.5"], [1748772060, "13"]]
					},
					{
						"metric": {},
						"values": [[1748772000, "1"]]
					}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewPromClient(PromConfig{Endpoint: server.URL}, testLogger())
	series, err := client.QueryRange(context.Background(), `sum(rate(latency_count{serviceName="checkout"}[5m]))`, 1748772000, 1748775600, "60s")
	if err != nil {
		t.Fatalf("QueryRange failed: %v", err)
	}

	if gotPath != "/api/v1/query_range" {
		t.Errorf("Path mismatch: %s", gotPath)
	}
	if gotParams["start"] != "1748772000" || gotParams["end"] != "1748775600" || gotParams["step"] != "60s" {
		t.Errorf("Params mismatch: %+v", gotParams)
	}
	if !strings.Contains(gotParams["query"], "latency_count") {
		t.Errorf("Query not forwarded: %s", gotParams["query"])
	}

	if len(series) != 2 {
		t.Fatalf("Expected 2 series, got %d", len(series))
	}
	if series[0].Labels["serviceName"] != "checkout" {
		t.Errorf("Labels mismatch: %+v", series[0].Labels)
	}
	wantPoints := []models.Point{
		{Timestamp: 1748772000, Value: 12.5},
		{Timestamp: 1748772060, Value: 13},
	}
	if len(series[0].Points) != 2 || series[0].Points[0] != wantPoints[0] || series[0].Points[1] != wantPoints[1] {
		t.Errorf("Points mismatch: got %+v, want %+v", series[0].Points, wantPoints)
	}
	if series[1].Labels == nil {
		t.Error("Empty metric should decode to an empty label map, not nil")
	}
}

func TestPromClient_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": "error", "errorType": "bad_data", "error": "invalid parameter"}`))
	}))
	defer server.Close()

	client := NewPromClient(PromConfig{Endpoint: server.URL}, testLogger())
	_, err := client.QueryRange(context.Background(), "sum(", 0, 1, "60s")
	if err == nil {
		t.Fatal("Expected error for HTTP 400")
	}
	if !strings.Contains(err.Error(), "bad_data") || !strings.Contains(err.Error(), "invalid parameter") {
		t.Errorf("Error should carry errorType and message: %v", err)
	}
}

func TestPromClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "errorType": "timeout", "error": "query timed out"}`))
	}))
	defer server.Close()

	client := NewPromClient(PromConfig{Endpoint: server.URL}, testLogger())
	_, err := client.QueryRange(context.Background(), "up", 0, 1, "60s")
	if err == nil {
		t.Fatal("Expected error for non-success status")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("Error should carry errorType: %v", err)
	}
}

func TestToTimeSeries_SkipsMalformedPairs(t *testing.T) {
	series := toTimeSeries([]promSeries{
		{
			Metric: map[string]string{"a": "b"},
			Values: [][]interface{}{
				{float64(10), "1.5"},
				{float64(20)},
				{"not-a-ts", "2"},
				{float64(30), "not-a-number"},
				{float64(40), "4"},
			},
		},
	})

	if len(series) != 1 {
		t.Fatalf("Expected 1 series, got %d", len(series))
	}
	if len(series[0].Points) != 2 {
		t.Fatalf("Expected 2 valid points, got %d: %+v", len(series[0].Points), series[0].Points)
	}
	if series[0].Points[0].Timestamp != 10 || series[0].Points[1].Timestamp != 40 {
		t.Errorf("Wrong points kept: %+v", series[0].Points)
	}
}
