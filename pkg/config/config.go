// Package config provides the configuration of the feature store client,
// the orchestrator and the CLI.
//
// The configuration is organized into logical sections:
//   - Storage: data lake bucket, production and staging roots, S3 transport
//   - Catalog: catalog database and partition registration batch size
//   - Query: query database, work group and poll backoff
//   - Dispatch: how action requests reach the orchestrator
//   - Parquet: file encoding of partition batches
//   - Logging and Tracing
//
// Example usage:
//
//	cfg, err := config.Load("featurestore.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/featurestore/pkg/logger"
)

// Dispatch modes.
const (
	DispatchLambda = "lambda"
	DispatchLocal  = "local"
)

// MaxPartitionBatchSize is the catalog's ceiling on partitions per call.
const MaxPartitionBatchSize = 100

// Config is the root configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Catalog  CatalogConfig  `yaml:"catalog" json:"catalog"`
	Query    QueryConfig    `yaml:"query" json:"query"`
	Dispatch DispatchConfig `yaml:"dispatch" json:"dispatch"`
	Parquet  ParquetConfig  `yaml:"parquet" json:"parquet"`
	Logging  logger.Config  `yaml:"logging" json:"logging"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
}

// StorageConfig locates the data lake.
type StorageConfig struct {
	// Bucket holds production data and schema descriptors
	Bucket string `yaml:"bucket" json:"bucket"`
	// StageBucket holds staged uploads and query results; defaults to Bucket
	StageBucket string `yaml:"stage_bucket" json:"stage_bucket"`
	// Root is the production key prefix
	Root string `yaml:"root" json:"root"`
	// StageRoot is the staging key prefix
	StageRoot string `yaml:"stage_root" json:"stage_root"`

	Region       string `yaml:"region" json:"region"`
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style" json:"use_path_style"`

	// UploadPartSize is the multipart part size in bytes
	UploadPartSize int64 `yaml:"upload_part_size" json:"upload_part_size"`
	// UploadConcurrency bounds parallel staged uploads
	UploadConcurrency int `yaml:"upload_concurrency" json:"upload_concurrency"`
}

// CatalogConfig configures the metadata catalog.
type CatalogConfig struct {
	Database           string `yaml:"database" json:"database"`
	PartitionBatchSize int    `yaml:"partition_batch_size" json:"partition_batch_size"`
}

// QueryConfig configures the query engine and the completion wait.
type QueryConfig struct {
	// Database defaults to the catalog database
	Database    string          `yaml:"database" json:"database"`
	WorkGroup   string          `yaml:"work_group" json:"work_group"`
	PollBackoff []time.Duration `yaml:"poll_backoff" json:"poll_backoff"`
}

// DispatchConfig selects the orchestrator transport.
type DispatchConfig struct {
	Mode     string `yaml:"mode" json:"mode"`
	Function string `yaml:"function" json:"function"`
}

// ParquetConfig controls partition file encoding.
type ParquetConfig struct {
	Compression    string `yaml:"compression" json:"compression"`
	MaxRowsPerFile int64  `yaml:"max_rows_per_file" json:"max_rows_per_file"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// NewDefault returns a configuration with every default applied.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero field with its default.
func (c *Config) ApplyDefaults() {
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "data-lake"
	}
	if c.Storage.StageBucket == "" {
		c.Storage.StageBucket = c.Storage.Bucket
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "feature_store"
	}
	if c.Storage.StageRoot == "" {
		c.Storage.StageRoot = "feature_store_stage"
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "ap-south-1"
	}
	if c.Storage.UploadPartSize == 0 {
		c.Storage.UploadPartSize = 16 * 1024 * 1024
	}
	if c.Storage.UploadConcurrency == 0 {
		c.Storage.UploadConcurrency = 4
	}

	if c.Catalog.Database == "" {
		c.Catalog.Database = "feature_store"
	}
	if c.Catalog.PartitionBatchSize == 0 {
		c.Catalog.PartitionBatchSize = 99
	}

	if c.Query.Database == "" {
		c.Query.Database = c.Catalog.Database
	}
	if len(c.Query.PollBackoff) == 0 {
		c.Query.PollBackoff = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}
	}

	if c.Dispatch.Mode == "" {
		c.Dispatch.Mode = DispatchLambda
	}
	if c.Dispatch.Function == "" {
		c.Dispatch.Function = "feature-store-lambda"
	}

	if c.Parquet.Compression == "" {
		c.Parquet.Compression = "snappy"
	}
	if c.Parquet.MaxRowsPerFile == 0 {
		c.Parquet.MaxRowsPerFile = 1_000_000
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "json"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "featurestore"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch {
	case c.Storage.Bucket == "" || c.Storage.StageBucket == "":
		return fmt.Errorf("storage: bucket is required")
	case c.Storage.Root == "" || c.Storage.StageRoot == "":
		return fmt.Errorf("storage: root and stage_root are required")
	case c.Storage.Root == c.Storage.StageRoot && c.Storage.Bucket == c.Storage.StageBucket:
		return fmt.Errorf("storage: stage_root must differ from root")
	case c.Storage.UploadConcurrency < 1:
		return fmt.Errorf("storage: upload_concurrency must be positive")
	case c.Catalog.Database == "":
		return fmt.Errorf("catalog: database is required")
	case c.Catalog.PartitionBatchSize < 1 || c.Catalog.PartitionBatchSize > MaxPartitionBatchSize:
		return fmt.Errorf("catalog: partition_batch_size must be in 1..%d, got %d",
			MaxPartitionBatchSize, c.Catalog.PartitionBatchSize)
	case len(c.Query.PollBackoff) == 0:
		return fmt.Errorf("query: poll_backoff must not be empty")
	case c.Parquet.MaxRowsPerFile < 1:
		return fmt.Errorf("parquet: max_rows_per_file must be positive")
	}

	for i, d := range c.Query.PollBackoff {
		if d < 0 {
			return fmt.Errorf("query: poll_backoff[%d] is negative", i)
		}
	}

	switch c.Dispatch.Mode {
	case DispatchLambda:
		if c.Dispatch.Function == "" {
			return fmt.Errorf("dispatch: function is required in lambda mode")
		}
	case DispatchLocal:
	default:
		return fmt.Errorf("dispatch: unknown mode %q", c.Dispatch.Mode)
	}

	switch c.Parquet.Compression {
	case "snappy", "gzip", "zstd", "none":
	default:
		return fmt.Errorf("parquet: unsupported compression %q", c.Parquet.Compression)
	}

	return nil
}
