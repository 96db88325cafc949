// Package columnar encodes partition batches as Parquet and decodes
// Parquet and CSV inputs and query results into Arrow records.
package columnar

import (
	"fmt"
	"path"
	"strings"

	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/ajitpratap0/featurestore/pkg/config"
)

// Format represents a tabular file format
type Format string

const (
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// CSV is comma separated text with a header row
	CSV Format = "csv"
)

// FormatInfo provides information about a file format
type FormatInfo struct {
	Format        Format
	Name          string
	FileExtension string
	MIMEType      string
}

// GetFormatInfo returns information about a format
func GetFormatInfo(format Format) *FormatInfo {
	switch format {
	case Parquet:
		return &FormatInfo{
			Format:        Parquet,
			Name:          "Apache Parquet",
			FileExtension: ".parquet",
			MIMEType:      "application/x-parquet",
		}
	case CSV:
		return &FormatInfo{
			Format:        CSV,
			Name:          "Comma Separated Values",
			FileExtension: ".csv",
			MIMEType:      "text/csv",
		}
	default:
		return nil
	}
}

// FormatOf guesses the format of a file from its name.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".parquet", ".pq":
		return Parquet, nil
	case ".csv":
		return CSV, nil
	default:
		return "", fmt.Errorf("unsupported file format: %s", name)
	}
}

// WriterConfig configures Parquet writers
type WriterConfig struct {
	Compression    string
	MaxRowsPerFile int64
	RowGroupSize   int64
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Compression:    "snappy",
		MaxRowsPerFile: 1_000_000,
		RowGroupSize:   128 * 1024,
	}
}

// WriterConfigFrom builds a writer configuration from the parquet section.
func WriterConfigFrom(cfg config.ParquetConfig) *WriterConfig {
	wc := DefaultWriterConfig()
	if cfg.Compression != "" {
		wc.Compression = cfg.Compression
	}
	if cfg.MaxRowsPerFile > 0 {
		wc.MaxRowsPerFile = cfg.MaxRowsPerFile
	}
	return wc
}

// Codec resolves a compression name.
func Codec(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("unsupported compression: %s", name)
	}
}

// FileName names the n-th file of a partition upload,
// part-<n>-<id>.<codec>.parquet.
func FileName(n int, id, compression string) string {
	codec := strings.ToLower(compression)
	if codec == "" {
		codec = "snappy"
	}
	if codec == "none" || codec == "uncompressed" {
		return fmt.Sprintf("part-%d-%s.parquet", n, id)
	}
	return fmt.Sprintf("part-%d-%s.%s.parquet", n, id, codec)
}
