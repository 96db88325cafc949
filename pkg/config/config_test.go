package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsOverFile(t *testing.T) {
	t.Setenv("FS_BUCKET", "lake-test")

	path := filepath.Join(t.TempDir(), "featurestore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  bucket: ${FS_BUCKET}
  endpoint: ${FS_ENDPOINT:-http://localhost:4566}
  use_path_style: true
query:
  poll_backoff: [1s, 2s]
dispatch:
  mode: local
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "lake-test", cfg.Storage.Bucket)
	assert.Equal(t, "lake-test", cfg.Storage.StageBucket)
	assert.Equal(t, "http://localhost:4566", cfg.Storage.Endpoint)
	assert.True(t, cfg.Storage.UsePathStyle)
	assert.Equal(t, "feature_store", cfg.Storage.Root)
	assert.Equal(t, "feature_store", cfg.Query.Database)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, cfg.Query.PollBackoff)
	assert.Equal(t, DispatchLocal, cfg.Dispatch.Mode)
}

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, NewDefault(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty bucket", func(c *Config) { c.Storage.Bucket = "" }, false},
		{"stage equals prod", func(c *Config) { c.Storage.StageRoot = c.Storage.Root }, false},
		{"zero batch", func(c *Config) { c.Catalog.PartitionBatchSize = 0 }, false},
		{"batch at ceiling", func(c *Config) { c.Catalog.PartitionBatchSize = MaxPartitionBatchSize }, true},
		{"no backoff", func(c *Config) { c.Query.PollBackoff = nil }, false},
		{"negative backoff", func(c *Config) { c.Query.PollBackoff = []time.Duration{-time.Second} }, false},
		{"unknown dispatch", func(c *Config) { c.Dispatch.Mode = "grpc" }, false},
		{"lambda without function", func(c *Config) { c.Dispatch.Function = "" }, false},
		{"unknown compression", func(c *Config) { c.Parquet.Compression = "lzo" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("FS_SET", "value")
	t.Setenv("FS_EMPTY", "")

	assert.Equal(t, "a=value b= c=fallback d=fb", substituteEnvVars("a=${FS_SET} b=${FS_UNSET_XYZ} c=${FS_EMPTY:-fallback} d=${FS_UNSET_XYZ:-fb}"))
	assert.Equal(t, "unterminated ${X", substituteEnvVars("unterminated ${X"))
}
