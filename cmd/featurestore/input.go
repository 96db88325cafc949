package main

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/featurestore/pkg/formats/columnar"
)

// readInput loads a Parquet or CSV file into one record. CSV column types
// are inferred from the first data row.
func readInput(ctx context.Context, path string) (arrow.Record, error) {
	format, err := columnar.FormatOf(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case columnar.CSV:
		f, err := os.Open(path) //nolint:gosec // G304: path is a command argument
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		return columnar.InferCSV(f, memory.DefaultAllocator)
	default:
		data, err := os.ReadFile(path) //nolint:gosec // G304: path is a command argument
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return columnar.ReadParquet(ctx, data, memory.DefaultAllocator)
	}
}
