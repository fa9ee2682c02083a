package models

// CatalogCacheVersion is stored in both cache blobs. It is written but not
// validated; there is no migration logic.
const CatalogCacheVersion = "1.0"

// CacheStatus indicates whether child metadata has been fetched for a
// catalog entry.
type CacheStatus string

// Catalog entry lifecycle: created Empty on first reference, Updated once
// child metadata is written back, Failed when a refresh errors. Entries
// never expire; only an explicit clear removes them.
const (
	CacheStatusEmpty   CacheStatus = "Empty"
	CacheStatusUpdated CacheStatus = "Updated"
	CacheStatusFailed  CacheStatus = "Failed"
)

// CachedColumn describes one column of a catalog table.
type CachedColumn struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

// CachedTable describes one table of a catalog database.
type CachedTable struct {
	Name    string         `json:"name"`
	Columns []CachedColumn `json:"columns,omitempty"`
}

// CachedDatabase describes one database of a cached data source.
type CachedDatabase struct {
	Name        string        `json:"name"`
	Tables      []CachedTable `json:"tables"`
	LastUpdated string        `json:"lastUpdated"`
	Status      CacheStatus   `json:"status"`
}

// CachedDataSource is the root of one data source's metadata tree.
// Databases holds at most one entry per name.
type CachedDataSource struct {
	Name        string           `json:"name"`
	Databases   []CachedDatabase `json:"databases"`
	LastUpdated string           `json:"lastUpdated"`
	Status      CacheStatus      `json:"status"`
}

// DataSourceCacheData is the blob stored under the data-source cache key.
type DataSourceCacheData struct {
	Version     string             `json:"version"`
	DataSources []CachedDataSource `json:"dataSources"`
}

// CachedAcceleration is one acceleration (skipping/covering/materialized
// index) definition attached to a catalog table.
type CachedAcceleration struct {
	FlintIndexName string `json:"flintIndexName"`
	Type           string `json:"type"`
	Database       string `json:"database"`
	Table          string `json:"table"`
	IndexName      string `json:"indexName"`
	AutoRefresh    bool   `json:"autoRefresh"`
	Status         string `json:"status"`
}

// AccelerationsCacheData is the blob stored under the accelerations cache key.
type AccelerationsCacheData struct {
	Version       string               `json:"version"`
	Accelerations []CachedAcceleration `json:"accelerations"`
	LastUpdated   string               `json:"lastUpdated"`
	Status        CacheStatus          `json:"status"`
}
