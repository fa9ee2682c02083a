// Package s3 fetches catalog metadata from an S3 bucket laid out as
// database/table prefixes.
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fidde/signal_explorer/pkg/models"
)

// Config holds connection parameters for one S3-backed data source.
type Config struct {
	// Name is the data source name in the catalog
	Name string `yaml:"name"`

	// Bucket holds the data; first-level prefixes are databases,
	// second-level prefixes are tables
	Bucket string `yaml:"bucket"`

	// Region is the AWS region for the bucket
	Region string `yaml:"region"`

	// Endpoint is an optional custom endpoint (for MinIO, LocalStack, etc.)
	Endpoint string `yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `yaml:"use_path_style"`
}

// Provider lists a bucket's prefix hierarchy into a cached data source
// tree. Column metadata is not available at listing level and is left
// empty.
type Provider struct {
	cfg    Config
	client *s3.Client
	logger *slog.Logger
	now    func() time.Time
}

// New creates an S3 catalog provider. The client is built on first use.
func New(cfg Config, logger *slog.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// NewWithClient creates a provider with a pre-configured client.
func NewWithClient(client *s3.Client, cfg Config, logger *slog.Logger) *Provider {
	p := New(cfg, logger)
	p.client = client
	return p
}

// Name returns the data source name this provider fills.
func (p *Provider) Name() string {
	return p.cfg.Name
}

// Fetch lists the bucket's first two prefix levels into databases and
// tables.
func (p *Provider) Fetch(ctx context.Context) (models.CachedDataSource, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return models.CachedDataSource{}, err
	}

	databaseNames, err := p.listPrefixes(ctx, client, "")
	if err != nil {
		return models.CachedDataSource{}, fmt.Errorf("failed to list databases in bucket %s: %w", p.cfg.Bucket, err)
	}

	stamp := p.now().UTC().Format(time.RFC3339)
	ds := models.CachedDataSource{
		Name:        p.cfg.Name,
		Databases:   []models.CachedDatabase{},
		LastUpdated: stamp,
		Status:      models.CacheStatusUpdated,
	}

	tableCount := 0
	for _, dbName := range databaseNames {
		tableNames, err := p.listPrefixes(ctx, client, dbName+"/")
		if err != nil {
			return models.CachedDataSource{}, fmt.Errorf("failed to list tables in %s: %w", dbName, err)
		}

		db := models.CachedDatabase{
			Name:        dbName,
			Tables:      []models.CachedTable{},
			LastUpdated: stamp,
			Status:      models.CacheStatusUpdated,
		}
		for _, tableName := range tableNames {
			db.Tables = append(db.Tables, models.CachedTable{Name: tableName})
		}
		tableCount += len(tableNames)
		ds.Databases = append(ds.Databases, db)
	}

	p.logger.Info("fetched s3 catalog",
		"datasource", p.cfg.Name,
		"bucket", p.cfg.Bucket,
		"databases", len(databaseNames),
		"tables", tableCount)
	return ds, nil
}

func (p *Provider) ensureClient(ctx context.Context) (*s3.Client, error) {
	if p.client != nil {
		return p.client, nil
	}

	var opts []func(*config.LoadOptions) error
	if p.cfg.Region != "" {
		opts = append(opts, config.WithRegion(p.cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if p.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(p.cfg.Endpoint)
		})
	}
	if p.cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	p.client = s3.NewFromConfig(awsCfg, s3Opts...)
	return p.client, nil
}

// listPrefixes returns the immediate child prefixes under parent, with
// the parent prefix and trailing delimiter stripped.
func (p *Provider) listPrefixes(ctx context.Context, client *s3.Client, parent string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.cfg.Bucket),
		Prefix:    aws.String(parent),
		Delimiter: aws.String("/"),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, cp := range page.CommonPrefixes {
			if name := prefixName(aws.ToString(cp.Prefix), parent); name != "" {
				names = append(names, name)
			}
		}
	}

	return names, nil
}

// prefixName turns a common prefix like "sales/orders/" under parent
// "sales/" into "orders".
func prefixName(full, parent string) string {
	name := strings.TrimPrefix(full, parent)
	return strings.TrimSuffix(name, "/")
}
