package orchestrator

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/action"
	"github.com/ajitpratap0/featurestore/pkg/catalog"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/metrics"
	"github.com/ajitpratap0/featurestore/pkg/observability"
)

// promote copies each staged object to its production key, in order, and
// stops at the first failure. Nothing already copied is removed.
func (h *Handler) promote(ctx context.Context, pairs []action.PathPair, log *zap.Logger) error {
	for _, p := range pairs {
		if err := h.checkPair(p); err != nil {
			return err
		}
	}

	for i, p := range pairs {
		if err := h.store.Copy(ctx, h.stageBucket, p.Stage, h.bucket, p.Prod); err != nil {
			log.Error("promotion stopped",
				zap.Int("promoted", i),
				zap.Int("total", len(pairs)),
				zap.String("stage_key", p.Stage),
				zap.Error(err))
			observability.SpanFromContext(ctx).AddEvent("promotion stopped",
				attribute.Int("promoted", i),
				attribute.String("stage_key", p.Stage))
			return err
		}
		metrics.ObjectsPromoted.Inc()
	}
	log.Debug("objects promoted", zap.Int("count", len(pairs)))
	return nil
}

// checkPair keeps promotion within the staging and production roots.
func (h *Handler) checkPair(p action.PathPair) error {
	if !strings.HasPrefix(p.Stage, h.stageRoot+"/") {
		return errors.New(errors.ErrorTypeValidation, "staged key outside the staging root").
			WithDetail("key", p.Stage)
	}
	if !strings.HasPrefix(p.Prod, h.root+"/") {
		return errors.New(errors.ErrorTypeValidation, "production key outside the production root").
			WithDetail("key", p.Prod)
	}
	return nil
}

// instrumented counts catalog mutations by outcome.
type instrumented struct {
	catalog.Catalog
}

func (c instrumented) CreateTable(ctx context.Context, params catalog.CreateTableParams) error {
	err := c.Catalog.CreateTable(ctx, params)
	metrics.CatalogCalls.WithLabelValues("create_table", observability.Status(err)).Inc()
	return err
}

func (c instrumented) BatchAddPartitions(ctx context.Context, params catalog.AddPartitionsParams) error {
	err := c.Catalog.BatchAddPartitions(ctx, params)
	metrics.CatalogCalls.WithLabelValues("batch_add_partitions", observability.Status(err)).Inc()
	if err == nil {
		metrics.PartitionsRegistered.Add(float64(len(params.PartitionInputList)))
	}
	return err
}
