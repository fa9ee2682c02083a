package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fidde/signal_explorer/pkg/models"
)

const queryRangePath = "/api/v1/query_range"

// PromConfig holds connection parameters for the Prometheus-compatible
// metrics endpoint.
type PromConfig struct {
	// Endpoint is the base URL, e.g. http://localhost:9090
	Endpoint string `yaml:"endpoint"`

	Timeout time.Duration `yaml:"timeout"`
}

// PromClient executes range queries against a Prometheus-compatible API.
type PromClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewPromClient creates a Prometheus query client.
func NewPromClient(cfg PromConfig, logger *slog.Logger) *PromClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &PromClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type promEnvelope struct {
	Status    string   `json:"status"`
	ErrorType string   `json:"errorType"`
	Error     string   `json:"error"`
	Data      promData `json:"data"`
}

type promData struct {
	ResultType string       `json:"resultType"`
	Result     []promSeries `json:"result"`
}

type promSeries struct {
	Metric map[string]string `json:"metric"`
	Values [][]interface{}   `json:"values"`
}

// QueryRange runs the expression over [start, end] seconds with the given
// step and decodes the matrix result.
func (c *PromClient) QueryRange(ctx context.Context, query string, start, end int64, step string) ([]models.TimeSeries, error) {
	params := url.Values{
		"query": {query},
		"start": {strconv.FormatInt(start, 10)},
		"end":   {strconv.FormatInt(end, 10)},
		"step":  {step},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+queryRangePath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	begin := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prometheus request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Error responses still carry the JSON envelope when they come
		// from the query engine itself.
		var env promEnvelope
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&env); err == nil && env.Error != "" {
			return nil, fmt.Errorf("prometheus query failed: %s: %s", env.ErrorType, env.Error)
		}
		return nil, fmt.Errorf("prometheus query returned HTTP status %s", resp.Status)
	}

	var env promEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode prometheus response: %w", err)
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("prometheus query failed: %s: %s", env.ErrorType, env.Error)
	}

	series := toTimeSeries(env.Data.Result)
	c.logger.Debug("executed prometheus range query",
		"duration_ms", time.Since(begin).Milliseconds(),
		"series", len(series))
	return series, nil
}

// toTimeSeries converts the matrix envelope into the local time series
// model, skipping malformed sample pairs.
func toTimeSeries(result []promSeries) []models.TimeSeries {
	series := make([]models.TimeSeries, 0, len(result))
	for _, s := range result {
		labels := s.Metric
		if labels == nil {
			labels = map[string]string{}
		}

		points := make([]models.Point, 0, len(s.Values))
		for _, pair := range s.Values {
			if p, ok := toPoint(pair); ok {
				points = append(points, p)
			}
		}

		series = append(series, models.TimeSeries{
			Labels: labels,
			Points: points,
		})
	}
	return series
}

// toPoint parses one [timestamp, "value"] sample pair.
func toPoint(pair []interface{}) (models.Point, bool) {
	if len(pair) != 2 {
		return models.Point{}, false
	}
	ts, ok := pair[0].(float64)
	if !ok {
		return models.Point{}, false
	}
	raw, ok := pair[1].(string)
	if !ok {
		return models.Point{}, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.Point{}, false
	}
	return models.Point{
		Timestamp: int64(ts),
		Value:     value,
	}, true
}
