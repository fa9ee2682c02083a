// Package catalog maintains a local cache of data source metadata
// (databases, tables, columns and accelerations) backed by a key-value
// store, and refreshes it from backend catalog providers.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fidde/signal_explorer/internal/kvstore"
	"github.com/fidde/signal_explorer/pkg/models"
)

const (
	dataSourceCacheKey    = "catalog/datasources"
	accelerationsCacheKey = "catalog/accelerations"
)

// Manager owns the two catalog cache blobs. All read-modify-write cycles
// go through a process-local mutex; processes sharing a file or sqlite
// store are last-writer-wins.
type Manager struct {
	store  kvstore.Store
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewManager creates a catalog cache manager on top of the given store.
func NewManager(store kvstore.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func defaultDataSourceCache() models.DataSourceCacheData {
	return models.DataSourceCacheData{
		Version:     models.CatalogCacheVersion,
		DataSources: []models.CachedDataSource{},
	}
}

func defaultAccelerationsCache() models.AccelerationsCacheData {
	return models.AccelerationsCacheData{
		Version:       models.CatalogCacheVersion,
		Accelerations: []models.CachedAcceleration{},
		LastUpdated:   "",
		Status:        models.CacheStatusEmpty,
	}
}

// GetDataSourceCache returns the cached data source tree. A missing or
// unreadable cache reads as the empty default, never as an error.
func (m *Manager) GetDataSourceCache() models.DataSourceCacheData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadDataSourceCache()
}

// SaveDataSourceCache persists the whole data source tree.
func (m *Manager) SaveDataSourceCache(data models.DataSourceCacheData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveDataSourceCache(data)
}

// GetAccelerationsCache returns the cached accelerations list, falling
// back to the empty default when the cache is missing or unreadable.
func (m *Manager) GetAccelerationsCache() models.AccelerationsCacheData {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.store.Get(accelerationsCacheKey)
	if err != nil {
		return defaultAccelerationsCache()
	}

	var data models.AccelerationsCacheData
	if err := json.Unmarshal(raw, &data); err != nil {
		m.logger.Warn("discarding unreadable accelerations cache", "error", err)
		return defaultAccelerationsCache()
	}
	return data
}

// SaveAccelerationsCache persists the accelerations list.
func (m *Manager) SaveAccelerationsCache(data models.AccelerationsCacheData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode accelerations cache: %w", err)
	}
	if err := m.store.Set(accelerationsCacheKey, raw); err != nil {
		return fmt.Errorf("failed to save accelerations cache: %w", err)
	}
	return nil
}

// AddOrUpdateDataSource replaces the data source with the same name, or
// appends it, and persists the tree.
func (m *Manager) AddOrUpdateDataSource(ds models.CachedDataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.loadDataSourceCache()
	replaced := false
	for i := range data.DataSources {
		if data.DataSources[i].Name == ds.Name {
			data.DataSources[i] = ds
			replaced = true
			break
		}
	}
	if !replaced {
		data.DataSources = append(data.DataSources, ds)
	}
	return m.saveDataSourceCache(data)
}

// GetOrCreateDataSource returns the cached data source with the given
// name. When absent it returns a fresh empty entry without persisting it;
// the entry only reaches the store once something is written back.
func (m *Manager) GetOrCreateDataSource(name string) models.CachedDataSource {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.loadDataSourceCache()
	for _, ds := range data.DataSources {
		if ds.Name == name {
			return ds
		}
	}
	return models.CachedDataSource{
		Name:        name,
		Databases:   []models.CachedDatabase{},
		LastUpdated: m.timestamp(),
		Status:      models.CacheStatusEmpty,
	}
}

// GetDatabase returns the named database of the named data source. Unlike
// the cache-level getters it fails fast: the error wraps
// models.ErrDataSourceNotFound or models.ErrDatabaseNotFound and carries
// the missing name.
func (m *Manager) GetDatabase(dataSourceName, databaseName string) (models.CachedDatabase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ds, err := m.findDataSource(dataSourceName)
	if err != nil {
		return models.CachedDatabase{}, err
	}
	for _, db := range ds.Databases {
		if db.Name == databaseName {
			return db, nil
		}
	}
	return models.CachedDatabase{}, fmt.Errorf("database %s: %w", databaseName, models.ErrDatabaseNotFound)
}

// GetTable returns the named table, failing fast like GetDatabase with
// models.ErrTableNotFound when the table is absent.
func (m *Manager) GetTable(dataSourceName, databaseName, tableName string) (models.CachedTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ds, err := m.findDataSource(dataSourceName)
	if err != nil {
		return models.CachedTable{}, err
	}
	for _, db := range ds.Databases {
		if db.Name != databaseName {
			continue
		}
		for _, table := range db.Tables {
			if table.Name == tableName {
				return table, nil
			}
		}
		return models.CachedTable{}, fmt.Errorf("table %s: %w", tableName, models.ErrTableNotFound)
	}
	return models.CachedTable{}, fmt.Errorf("database %s: %w", databaseName, models.ErrDatabaseNotFound)
}

// UpdateDatabase replaces the named database inside its parent data
// source and persists the tree. The database keeps its own name; the
// parent must already exist.
func (m *Manager) UpdateDatabase(dataSourceName string, database models.CachedDatabase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.loadDataSourceCache()
	for i := range data.DataSources {
		if data.DataSources[i].Name != dataSourceName {
			continue
		}
		for j := range data.DataSources[i].Databases {
			if data.DataSources[i].Databases[j].Name == database.Name {
				data.DataSources[i].Databases[j] = database
				return m.saveDataSourceCache(data)
			}
		}
		return fmt.Errorf("database %s: %w", database.Name, models.ErrDatabaseNotFound)
	}
	return fmt.Errorf("data source %s: %w", dataSourceName, models.ErrDataSourceNotFound)
}

// ClearDataSourceCache removes the data source cache key entirely.
func (m *Manager) ClearDataSourceCache() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(dataSourceCacheKey); err != nil {
		return fmt.Errorf("failed to clear data source cache: %w", err)
	}
	m.logger.Info("cleared data source cache")
	return nil
}

// ClearAccelerationsCache removes the accelerations cache key entirely.
func (m *Manager) ClearAccelerationsCache() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(accelerationsCacheKey); err != nil {
		return fmt.Errorf("failed to clear accelerations cache: %w", err)
	}
	m.logger.Info("cleared accelerations cache")
	return nil
}

// loadDataSourceCache reads the tree without locking; callers hold m.mu.
func (m *Manager) loadDataSourceCache() models.DataSourceCacheData {
	raw, err := m.store.Get(dataSourceCacheKey)
	if err != nil {
		return defaultDataSourceCache()
	}

	var data models.DataSourceCacheData
	if err := json.Unmarshal(raw, &data); err != nil {
		m.logger.Warn("discarding unreadable data source cache", "error", err)
		return defaultDataSourceCache()
	}
	return data
}

func (m *Manager) saveDataSourceCache(data models.DataSourceCacheData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode data source cache: %w", err)
	}
	if err := m.store.Set(dataSourceCacheKey, raw); err != nil {
		return fmt.Errorf("failed to save data source cache: %w", err)
	}
	return nil
}

func (m *Manager) findDataSource(name string) (models.CachedDataSource, error) {
	data := m.loadDataSourceCache()
	for _, ds := range data.DataSources {
		if ds.Name == name {
			return ds, nil
		}
	}
	return models.CachedDataSource{}, fmt.Errorf("data source %s: %w", name, models.ErrDataSourceNotFound)
}

func (m *Manager) timestamp() string {
	return m.now().UTC().Format(time.RFC3339)
}
