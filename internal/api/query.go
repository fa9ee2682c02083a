package api

import (
	"encoding/json"
	"net/http"

	"github.com/fidde/signal_explorer/pkg/dataframe"
)

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse carries the transposed rows of one raw query. Columns
// preserves the backend's schema order.
type QueryResponse struct {
	Columns []string        `json:"columns"`
	Rows    []dataframe.Row `json:"rows"`
	Size    int             `json:"size"`
}

// rawQuery executes a caller-supplied PPL statement. POST /api/v1/query
func (s *Server) rawQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	frame, err := s.signals.RawQuery(ctx, req.Query)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	columns := make([]string, len(frame.Fields))
	for i, field := range frame.Fields {
		columns[i] = field.Name
	}
	respondJSON(w, http.StatusOK, QueryResponse{
		Columns: columns,
		Rows:    frame.Transpose(),
		Size:    frame.Size,
	})
}
