package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fidde/signal_explorer/internal/telemetry"
	"github.com/fidde/signal_explorer/pkg/models"
)

// refreshTimeout bounds one background provider fetch.
const refreshTimeout = 5 * time.Minute

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrDataSourceNotFound) ||
		errors.Is(err, models.ErrDatabaseNotFound) ||
		errors.Is(err, models.ErrTableNotFound)
}

// getDataSources returns the full cached data source tree.
// GET /api/v1/catalog/datasources
func (s *Server) getDataSources(w http.ResponseWriter, r *http.Request) {
	telemetry.CacheOperationsTotal.WithLabelValues("datasources", "get").Inc()
	respondJSON(w, http.StatusOK, s.catalog.GetDataSourceCache())
}

// putDataSource inserts or replaces one cached data source.
// PUT /api/v1/catalog/datasources/{name}
func (s *Server) putDataSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	decodedName, err := url.QueryUnescape(name)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid data source name encoding")
		return
	}

	var ds models.CachedDataSource
	if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if ds.Name == "" {
		ds.Name = decodedName
	} else if ds.Name != decodedName {
		respondError(w, http.StatusBadRequest, "Data source name in body does not match URL")
		return
	}

	if err := s.catalog.AddOrUpdateDataSource(ds); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save data source: "+err.Error())
		return
	}

	telemetry.CacheOperationsTotal.WithLabelValues("datasources", "put").Inc()
	respondJSON(w, http.StatusOK, ds)
}

// getDatabase returns one cached database of a data source.
// GET /api/v1/catalog/datasources/{name}/databases/{db}
func (s *Server) getDatabase(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	db := chi.URLParam(r, "db")

	decodedName, err := url.QueryUnescape(name)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid data source name encoding")
		return
	}
	decodedDB, err := url.QueryUnescape(db)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid database name encoding")
		return
	}

	database, err := s.catalog.GetDatabase(decodedName, decodedDB)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	telemetry.CacheOperationsTotal.WithLabelValues("datasources", "get").Inc()
	respondJSON(w, http.StatusOK, database)
}

// getTable returns one cached table of a database.
// GET /api/v1/catalog/datasources/{name}/databases/{db}/tables/{table}
func (s *Server) getTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	db := chi.URLParam(r, "db")
	table := chi.URLParam(r, "table")

	decodedName, err := url.QueryUnescape(name)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid data source name encoding")
		return
	}
	decodedDB, err := url.QueryUnescape(db)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid database name encoding")
		return
	}
	decodedTable, err := url.QueryUnescape(table)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid table name encoding")
		return
	}

	cached, err := s.catalog.GetTable(decodedName, decodedDB, decodedTable)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	telemetry.CacheOperationsTotal.WithLabelValues("datasources", "get").Inc()
	respondJSON(w, http.StatusOK, cached)
}

// refreshDataSource starts a background fetch of live metadata for one
// data source and returns immediately.
// POST /api/v1/catalog/datasources/{name}/refresh
func (s *Server) refreshDataSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	decodedName, err := url.QueryUnescape(name)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid data source name encoding")
		return
	}

	known := false
	for _, p := range s.refresher.Providers() {
		if p == decodedName {
			known = true
			break
		}
	}
	if !known {
		respondError(w, http.StatusNotFound, "no provider for data source "+decodedName)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if _, err := s.refresher.Refresh(ctx, decodedName); err != nil {
			s.logger.Error("background refresh failed", "dataSource", decodedName, "error", err)
		}
	}()

	telemetry.CacheOperationsTotal.WithLabelValues("datasources", "refresh").Inc()
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":    "Refresh started",
		"dataSource": decodedName,
	})
}

// getAccelerations returns the cached accelerations blob.
// GET /api/v1/catalog/accelerations
func (s *Server) getAccelerations(w http.ResponseWriter, r *http.Request) {
	telemetry.CacheOperationsTotal.WithLabelValues("accelerations", "get").Inc()
	respondJSON(w, http.StatusOK, s.catalog.GetAccelerationsCache())
}

// clearCache removes both catalog cache blobs.
// DELETE /api/v1/catalog/cache
func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.ClearDataSourceCache(); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to clear data source cache: "+err.Error())
		return
	}
	if err := s.catalog.ClearAccelerationsCache(); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to clear accelerations cache: "+err.Error())
		return
	}

	telemetry.CacheOperationsTotal.WithLabelValues("datasources", "clear").Inc()
	telemetry.CacheOperationsTotal.WithLabelValues("accelerations", "clear").Inc()
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Catalog cache cleared",
	})
}
