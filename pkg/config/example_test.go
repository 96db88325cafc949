package config_test

import (
	"fmt"

	"github.com/ajitpratap0/featurestore/pkg/config"
)

// ExampleNewDefault demonstrates the defaults every deployment starts from.
func ExampleNewDefault() {
	cfg := config.NewDefault()

	fmt.Printf("Bucket: %s\n", cfg.Storage.Bucket)
	fmt.Printf("Stage root: %s\n", cfg.Storage.StageRoot)
	fmt.Printf("Catalog database: %s\n", cfg.Catalog.Database)
	fmt.Printf("Partition batch size: %d\n", cfg.Catalog.PartitionBatchSize)
	fmt.Printf("Poll backoff: %v\n", cfg.Query.PollBackoff)

	// Output:
	// Bucket: data-lake
	// Stage root: feature_store_stage
	// Catalog database: feature_store
	// Partition batch size: 99
	// Poll backoff: [5s 10s 15s]
}

// ExampleConfig_Validate shows how a bad batch size is rejected.
func ExampleConfig_Validate() {
	cfg := config.NewDefault()
	cfg.Catalog.PartitionBatchSize = 500

	fmt.Println(cfg.Validate())

	// Output:
	// catalog: partition_batch_size must be in 1..100, got 500
}
