package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/logger"
)

// Catalog is the metadata catalog surface.
type Catalog interface {
	// CreateTable creates a table. The catalog rejects an existing name.
	CreateTable(ctx context.Context, params CreateTableParams) error
	// BatchAddPartitions adds partitions in one call. Callers keep each
	// call within the catalog's batch ceiling.
	BatchAddPartitions(ctx context.Context, params AddPartitionsParams) error
}

// RegisterPartitions adds every partition of params, at most batchSize per
// catalog call. It stops at the first failed batch; earlier batches stay
// registered.
func RegisterPartitions(ctx context.Context, cat Catalog, params AddPartitionsParams, batchSize int, log *zap.Logger) error {
	log = logger.OrNop(log)
	chunks := params.Chunks(batchSize)
	for i, chunk := range chunks {
		if err := cat.BatchAddPartitions(ctx, chunk); err != nil {
			log.Error("partition batch failed",
				zap.String("table", params.TableName),
				zap.Int("batch", i),
				zap.Int("batches", len(chunks)),
				zap.Error(err))
			return err
		}
		log.Debug("partition batch registered",
			zap.String("table", params.TableName),
			zap.Int("batch", i),
			zap.Int("partitions", len(chunk.PartitionInputList)))
	}
	return nil
}
