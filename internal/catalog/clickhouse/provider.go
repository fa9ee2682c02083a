// Package clickhouse fetches catalog metadata from a ClickHouse server's
// system tables.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/fidde/signal_explorer/pkg/models"
)

const (
	defaultMaxOpenConns = 5
	defaultMaxIdleConns = 2
	defaultDialTimeout  = 10 * time.Second
	defaultMaxRetries   = 3
	defaultRetryDelay   = 1 * time.Second
)

// Databases internal to ClickHouse itself, never part of the catalog.
const systemDatabases = "'system', 'INFORMATION_SCHEMA', 'information_schema'"

// Config holds connection parameters for one ClickHouse data source.
type Config struct {
	// Name is the data source name in the catalog
	Name string `yaml:"name"`

	// Addr is the native protocol address, host:port
	Addr string `yaml:"addr"`

	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Provider lists databases, tables and columns from the system tables of
// one ClickHouse server.
type Provider struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a ClickHouse catalog provider.
func New(cfg Config, logger *slog.Logger) *Provider {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Provider{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the data source name this provider fills.
func (p *Provider) Name() string {
	return p.cfg.Name
}

// Fetch connects, reads system.databases, system.tables and
// system.columns, and assembles them into a cached data source tree.
func (p *Provider) Fetch(ctx context.Context) (models.CachedDataSource, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return models.CachedDataSource{}, err
	}
	defer conn.Close()

	databases, err := p.fetchDatabases(ctx, conn)
	if err != nil {
		return models.CachedDataSource{}, fmt.Errorf("failed to list databases: %w", err)
	}
	tables, err := p.fetchTables(ctx, conn)
	if err != nil {
		return models.CachedDataSource{}, fmt.Errorf("failed to list tables: %w", err)
	}
	columns, err := p.fetchColumns(ctx, conn)
	if err != nil {
		return models.CachedDataSource{}, fmt.Errorf("failed to list columns: %w", err)
	}

	ds := assemble(p.cfg.Name, databases, tables, columns, p.now().UTC().Format(time.RFC3339))
	p.logger.Info("fetched clickhouse catalog",
		"datasource", p.cfg.Name,
		"databases", len(databases),
		"tables", len(tables))
	return ds, nil
}

// connect dials with retry and exponential backoff.
func (p *Provider) connect(ctx context.Context) (driver.Conn, error) {
	opts := &clickhouse.Options{
		Addr: []string{p.cfg.Addr},
		Auth: clickhouse.Auth{
			Database: p.cfg.Database,
			Username: p.cfg.Username,
			Password: p.cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      p.cfg.DialTimeout,
		MaxOpenConns:     defaultMaxOpenConns,
		MaxIdleConns:     defaultMaxIdleConns,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}

	var conn driver.Conn
	var err error
	retryDelay := defaultRetryDelay

	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		conn, err = clickhouse.Open(opts)
		if err == nil {
			if err = conn.Ping(ctx); err == nil {
				return conn, nil
			}
		}

		p.logger.Debug("clickhouse connection attempt failed",
			"addr", p.cfg.Addr,
			"attempt", attempt,
			"error", err)

		if attempt < p.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
				retryDelay *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to ClickHouse after %d attempts: %w", p.cfg.MaxRetries, err)
}

func (p *Provider) fetchDatabases(ctx context.Context, conn driver.Conn) ([]string, error) {
	query := "SELECT name FROM system.databases WHERE name NOT IN (" + systemDatabases + ") ORDER BY name"

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		databases = append(databases, name)
	}

	return databases, rows.Err()
}

type tableRow struct {
	Database string
	Name     string
}

func (p *Provider) fetchTables(ctx context.Context, conn driver.Conn) ([]tableRow, error) {
	query := "SELECT database, name FROM system.tables WHERE database NOT IN (" + systemDatabases + ") ORDER BY database, name"

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []tableRow
	for rows.Next() {
		var t tableRow
		if err := rows.Scan(&t.Database, &t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	return tables, rows.Err()
}

type columnRow struct {
	Database string
	Table    string
	Name     string
	Type     string
}

func (p *Provider) fetchColumns(ctx context.Context, conn driver.Conn) ([]columnRow, error) {
	query := "SELECT database, table, name, type FROM system.columns WHERE database NOT IN (" + systemDatabases + ") ORDER BY database, table, position"

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []columnRow
	for rows.Next() {
		var c columnRow
		if err := rows.Scan(&c.Database, &c.Table, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}

	return columns, rows.Err()
}

// assemble groups the flat system-table rows into the cached tree. Row
// order is preserved, so the ORDER BY clauses above make the result
// deterministic.
func assemble(name string, databases []string, tables []tableRow, columns []columnRow, stamp string) models.CachedDataSource {
	columnsByTable := make(map[string][]models.CachedColumn)
	for _, c := range columns {
		key := c.Database + "." + c.Table
		columnsByTable[key] = append(columnsByTable[key], models.CachedColumn{
			Name:     c.Name,
			DataType: c.Type,
		})
	}

	tablesByDatabase := make(map[string][]models.CachedTable)
	for _, t := range tables {
		tablesByDatabase[t.Database] = append(tablesByDatabase[t.Database], models.CachedTable{
			Name:    t.Name,
			Columns: columnsByTable[t.Database+"."+t.Name],
		})
	}

	ds := models.CachedDataSource{
		Name:        name,
		Databases:   []models.CachedDatabase{},
		LastUpdated: stamp,
		Status:      models.CacheStatusUpdated,
	}
	for _, db := range databases {
		tables := tablesByDatabase[db]
		if tables == nil {
			tables = []models.CachedTable{}
		}
		ds.Databases = append(ds.Databases, models.CachedDatabase{
			Name:        db,
			Tables:      tables,
			LastUpdated: stamp,
			Status:      models.CacheStatusUpdated,
		})
	}
	return ds
}
