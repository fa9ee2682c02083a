package models

import "errors"

// Lookup errors returned by stores and the catalog cache. Callers are
// expected to check with errors.Is; messages produced by the wrapping
// layer carry the missing name.
var (
	ErrKeyNotFound        = errors.New("key not found")
	ErrDataSourceNotFound = errors.New("data source not found")
	ErrDatabaseNotFound   = errors.New("database not found")
	ErrTableNotFound      = errors.New("table not found")
)
