// Package featurestore is the library surface of the feature store.
//
// A Client creates feature groups, appends time-partitioned batches to
// them, registers partitions and tables over data already in place, and
// runs queries whose CSV results it reads back as Arrow records. Writes
// are staged locally and committed through the orchestrator.
//
// Every operation has two forms. The typed form (Create, Append, Register,
// CreateTableOver, Dump, Read, Versions) returns its payload and an error;
// Status always returns a report. The boundary form (CreateFeatureGroup,
// AppendPartitions, ...) logs any failure and reports it as a false success
// flag with a zero payload.
package featurestore

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/internal/orchestrator"
	"github.com/ajitpratap0/featurestore/pkg/action"
	"github.com/ajitpratap0/featurestore/pkg/catalog"
	"github.com/ajitpratap0/featurestore/pkg/cloud"
	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/layout"
	"github.com/ajitpratap0/featurestore/pkg/logger"
	"github.com/ajitpratap0/featurestore/pkg/metrics"
	"github.com/ajitpratap0/featurestore/pkg/observability"
	"github.com/ajitpratap0/featurestore/pkg/query"
	"github.com/ajitpratap0/featurestore/pkg/stage"
	"github.com/ajitpratap0/featurestore/pkg/storage"
)

// Client is the feature store client.
type Client struct {
	store      storage.ObjectStore
	dispatcher action.Dispatcher
	catalog    catalog.Catalog
	writer     *stage.Writer
	queries    *query.Manager
	layout     layout.Layout
	mem        memory.Allocator
	logger     *zap.Logger

	queryOpts []query.Option
}

// Option configures a Client.
type Option func(*Client)

// WithCatalog enables RegisterTable, which mutates the catalog directly.
func WithCatalog(cat catalog.Catalog) Option {
	return func(c *Client) { c.catalog = cat }
}

// WithQueryOptions configures the query lifecycle manager.
func WithQueryOptions(opts ...query.Option) Option {
	return func(c *Client) { c.queryOpts = append(c.queryOpts, opts...) }
}

// WithAllocator sets the allocator of decoded records.
func WithAllocator(mem memory.Allocator) Option {
	return func(c *Client) { c.mem = mem }
}

// New creates a client that stages objects in store and commits them
// through dispatcher.
func New(store storage.ObjectStore, dispatcher action.Dispatcher, cfg *config.Config, log *zap.Logger, opts ...Option) *Client {
	log = logger.OrNop(log)
	c := &Client{
		store:      store,
		dispatcher: dispatcher,
		writer:     stage.NewWriter(store, cfg, log),
		layout:     layout.New(cfg),
		mem:        memory.DefaultAllocator,
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queries = query.NewManager(dispatched{c.dispatcher}, cfg.Query, log, c.queryOpts...)
	return c
}

// NewFromConfig wires a client to AWS: S3 for objects, Glue for the
// catalog and, per the dispatch mode, either the orchestrator function or
// an in-process orchestrator over Athena.
func NewFromConfig(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	awsCfg, err := cloud.LoadAWSConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	store := storage.NewS3Store(awsCfg, cfg.Storage, log)
	glue := catalog.NewGlueCatalogFromConfig(awsCfg, log)

	var dispatcher action.Dispatcher
	switch cfg.Dispatch.Mode {
	case config.DispatchLocal:
		engine := query.NewAthenaEngineFromConfig(awsCfg, log)
		dispatcher = action.Local(orchestrator.New(store, glue, engine, cfg, log))
	default:
		dispatcher = action.NewLambdaDispatcherFromConfig(awsCfg, cfg.Dispatch.Function, log)
	}

	opts = append([]Option{WithCatalog(glue)}, opts...)
	return New(store, dispatcher, cfg, log, opts...), nil
}

// observe runs one operation under a span and counts its outcome.
func (c *Client) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "featurestore."+op)
	err := fn(ctx)
	span.End(err)
	metrics.OperationsTotal.WithLabelValues(op, observability.Status(err)).Inc()
	return err
}

// swallow logs err and reports whether the operation succeeded.
func (c *Client) swallow(op string, err error, fields ...zap.Field) bool {
	if err == nil {
		return true
	}
	fields = append(fields, zap.String("operation", op), zap.Error(err))
	c.logger.Error("feature store operation failed", fields...)
	return false
}

// call dispatches req and decodes the payload of a successful response
// into out.
func call(ctx context.Context, d action.Dispatcher, req action.Request, out interface{}) error {
	resp, err := d.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// dispatched starts and probes queries through the orchestrator.
type dispatched struct {
	d action.Dispatcher
}

func (q dispatched) Start(ctx context.Context, in query.StartInput) (string, error) {
	req, err := action.NewDump(in)
	if err != nil {
		return "", err
	}
	var payload action.DumpPayload
	if err := call(ctx, q.d, req, &payload); err != nil {
		return "", err
	}
	return payload.QueryExecutionID, nil
}

func (q dispatched) Report(ctx context.Context, id string) (query.Report, error) {
	req, err := action.NewDumpStatus(id)
	if err != nil {
		return query.Report{}, err
	}
	var report action.StatusReport
	if err := call(ctx, q.d, req, &report); err != nil {
		return query.Report{}, err
	}
	return report, nil
}
