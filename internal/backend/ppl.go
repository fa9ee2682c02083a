// Package backend holds the query clients for the observability
// backends: a PPL endpoint serving trace-derived documents and a
// Prometheus-compatible endpoint serving span metrics.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fidde/signal_explorer/pkg/dataframe"
)

const (
	pplPath        = "/_plugins/_ppl"
	defaultTimeout = 30 * time.Second
)

// PPLConfig holds connection parameters for the PPL endpoint.
type PPLConfig struct {
	// Endpoint is the base URL, e.g. http://localhost:9200
	Endpoint string `yaml:"endpoint"`

	// Username and Password enable basic auth when set
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	Timeout time.Duration `yaml:"timeout"`
}

// PPLClient executes PPL queries over HTTP.
type PPLClient struct {
	endpoint string
	username string
	password string
	client   *http.Client
	logger   *slog.Logger
}

// NewPPLClient creates a PPL query client.
func NewPPLClient(cfg PPLConfig, logger *slog.Logger) *PPLClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &PPLClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type pplRequest struct {
	Query string `json:"query"`
}

type pplColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type pplResponse struct {
	Schema   []pplColumn     `json:"schema"`
	Datarows [][]interface{} `json:"datarows"`
	Total    int             `json:"total"`
	Size     int             `json:"size"`
}

// Query posts the PPL statement and decodes the column-oriented result
// into a frame. Schema order is preserved.
func (c *PPLClient) Query(ctx context.Context, query string) (dataframe.Frame, error) {
	body, err := json.Marshal(pplRequest{Query: query})
	if err != nil {
		return dataframe.Frame{}, fmt.Errorf("failed to encode ppl request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+pplPath, bytes.NewReader(body))
	if err != nil {
		return dataframe.Frame{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return dataframe.Frame{}, fmt.Errorf("ppl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return dataframe.Frame{}, fmt.Errorf("ppl query returned HTTP status %s: %s", resp.Status, errBody)
	}

	var pr pplResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return dataframe.Frame{}, fmt.Errorf("failed to decode ppl response: %w", err)
	}

	c.logger.Debug("executed ppl query",
		"duration_ms", time.Since(start).Milliseconds(),
		"rows", pr.Size)
	return toFrame(pr), nil
}

// toFrame transposes row-oriented datarows into per-column value slices.
// A short row leaves nil in the missing columns.
func toFrame(pr pplResponse) dataframe.Frame {
	fields := make([]dataframe.Field, len(pr.Schema))
	for i, col := range pr.Schema {
		values := make([]interface{}, len(pr.Datarows))
		for j, row := range pr.Datarows {
			if i < len(row) {
				values[j] = row[i]
			}
		}
		fields[i] = dataframe.Field{
			Name:   col.Name,
			Type:   col.Type,
			Values: values,
		}
	}
	return dataframe.Frame{
		Fields: fields,
		Size:   len(pr.Datarows),
	}
}
