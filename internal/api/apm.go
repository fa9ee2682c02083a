package api

import (
	"encoding/json"
	"net/http"

	"github.com/fidde/signal_explorer/internal/apm"
)

// listServices returns the deduplicated services seen in the time window.
// POST /api/v1/apm/services/list
func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req apm.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.signals.ListServices(ctx, req)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// getService returns one service with its raw attribute objects.
// POST /api/v1/apm/services/get
func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req apm.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.signals.GetService(ctx, req)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// listServiceOperations returns the grouped operations of one service.
// POST /api/v1/apm/services/operations
func (s *Server) listServiceOperations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req apm.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.signals.ListServiceOperations(ctx, req)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// listServiceDependencies returns the grouped downstream calls of one service.
// POST /api/v1/apm/services/dependencies
func (s *Server) listServiceDependencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req apm.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.signals.ListServiceDependencies(ctx, req)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// getServiceMap returns the deduplicated topology of the time window.
// POST /api/v1/apm/service-map
func (s *Server) getServiceMap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req apm.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.signals.GetServiceMap(ctx, req)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// queryRate returns rate time series for a counter metric.
// POST /api/v1/apm/metrics/rate
func (s *Server) queryRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req apm.MetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := s.signals.QueryRate(ctx, req)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"series": series,
	})
}

// queryLatency returns latency time series for a histogram metric.
// POST /api/v1/apm/metrics/latency
func (s *Server) queryLatency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req apm.MetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := s.signals.QueryLatency(ctx, req)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"series": series,
	})
}
