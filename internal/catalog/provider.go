package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/fidde/signal_explorer/internal/telemetry"
	"github.com/fidde/signal_explorer/pkg/models"
)

// Provider fetches the full metadata tree of one data source from its
// backend. Fetch must return the tree with Status Updated and fresh
// LastUpdated stamps on every level it filled.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (models.CachedDataSource, error)
}

// Refresher runs providers and writes their results into the cache
// manager. A failed fetch is recorded too: the data source entry is kept
// with Status Failed so readers can tell a broken source from an unknown
// one.
type Refresher struct {
	manager   *Manager
	logger    *slog.Logger
	providers map[string]Provider
}

// NewRefresher creates a refresher over the given providers.
func NewRefresher(manager *Manager, logger *slog.Logger, providers ...Provider) *Refresher {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Refresher{
		manager:   manager,
		logger:    logger,
		providers: byName,
	}
}

// Providers returns the registered provider names in sorted order.
func (r *Refresher) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Refresh fetches one data source and persists the outcome. The returned
// error wraps models.ErrDataSourceNotFound when no provider is registered
// under the name.
func (r *Refresher) Refresh(ctx context.Context, name string) (models.CachedDataSource, error) {
	provider, ok := r.providers[name]
	if !ok {
		return models.CachedDataSource{}, fmt.Errorf("data source %s: %w", name, models.ErrDataSourceNotFound)
	}

	ds, err := provider.Fetch(ctx)
	if err != nil {
		failed := r.manager.GetOrCreateDataSource(name)
		failed.Status = models.CacheStatusFailed
		failed.LastUpdated = r.manager.timestamp()
		if saveErr := r.manager.AddOrUpdateDataSource(failed); saveErr != nil {
			r.logger.Error("failed to record failed refresh", "datasource", name, "error", saveErr)
		}
		telemetry.CatalogRefreshTotal.WithLabelValues(name, "failure").Inc()
		return models.CachedDataSource{}, fmt.Errorf("failed to refresh data source %s: %w", name, err)
	}

	if err := r.manager.AddOrUpdateDataSource(ds); err != nil {
		telemetry.CatalogRefreshTotal.WithLabelValues(name, "failure").Inc()
		return models.CachedDataSource{}, fmt.Errorf("failed to store refreshed data source %s: %w", name, err)
	}

	telemetry.CatalogRefreshTotal.WithLabelValues(name, "success").Inc()
	r.logger.Info("refreshed data source",
		"datasource", name,
		"databases", len(ds.Databases))
	return ds, nil
}

// RefreshAll refreshes every registered provider, continuing past
// individual failures.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	names := r.Providers()

	failed := 0
	for _, name := range names {
		if _, err := r.Refresh(ctx, name); err != nil {
			r.logger.Error("data source refresh failed", "datasource", name, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d data source refreshes failed", failed, len(names))
	}
	return nil
}
