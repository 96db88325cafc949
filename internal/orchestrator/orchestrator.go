// Package orchestrator implements the trusted side of the staged commit
// protocol. It promotes staged objects to production, mutates the catalog
// and starts and reports on queries, one action request at a time.
//
// A commit is not transactional: objects promoted before a failed copy or
// catalog call stay in production and are not rolled back.
package orchestrator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/action"
	"github.com/ajitpratap0/featurestore/pkg/catalog"
	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/logger"
	"github.com/ajitpratap0/featurestore/pkg/metrics"
	"github.com/ajitpratap0/featurestore/pkg/observability"
	"github.com/ajitpratap0/featurestore/pkg/query"
	"github.com/ajitpratap0/featurestore/pkg/storage"
)

// Response messages of rejected envelopes.
const (
	MsgIllegalAction = "Illegal Action"
	MsgMissingArgs   = "Missing Args"
)

// Handler executes action requests.
type Handler struct {
	store       storage.ObjectStore
	catalog     catalog.Catalog
	queries     query.Backend
	bucket      string
	stageBucket string
	root        string
	stageRoot   string
	batchSize   int
	logger      *zap.Logger
}

// New creates a handler. Staged objects are read from the stage bucket
// and promoted into the production bucket named by cfg.
func New(store storage.ObjectStore, cat catalog.Catalog, engine query.Engine, cfg *config.Config, log *zap.Logger) *Handler {
	batch := cfg.Catalog.PartitionBatchSize
	if batch < 1 || batch > config.MaxPartitionBatchSize {
		batch = config.MaxPartitionBatchSize - 1
	}
	return &Handler{
		store:       store,
		catalog:     instrumented{cat},
		queries:     query.Direct{Engine: engine},
		bucket:      cfg.Storage.Bucket,
		stageBucket: cfg.Storage.StageBucket,
		root:        cfg.Storage.Root,
		stageRoot:   cfg.Storage.StageRoot,
		batchSize:   batch,
		logger:      logger.OrNop(log),
	}
}

type actionFunc func(ctx context.Context, req action.Request, log *zap.Logger) (interface{}, error)

func (h *Handler) route(a action.Action) (actionFunc, bool) {
	switch a {
	case action.Create:
		return h.create, true
	case action.Upload:
		return h.upload, true
	case action.CreatePartition:
		return h.createPartition, true
	case action.Dump:
		return h.dump, true
	case action.DumpStatus:
		return h.dumpStatus, true
	}
	return nil, false
}

// Handle executes one request. It never fails: every failure is reported
// in a response with StatusError.
func (h *Handler) Handle(ctx context.Context, req action.Request) action.Response {
	fn, ok := h.route(req.Action)
	if !ok {
		h.logger.Warn("rejected request", zap.String("action", string(req.Action)), zap.String("reason", MsgIllegalAction))
		metrics.ActionsTotal.WithLabelValues("ILLEGAL", action.StatusError).Inc()
		return action.Error(MsgIllegalAction, nil)
	}

	timer := metrics.NewTimer(string(req.Action))
	if !req.HasArgs() {
		h.logger.Warn("rejected request", zap.String("action", string(req.Action)), zap.String("reason", MsgMissingArgs))
		timer.ObserveAction(action.StatusError)
		return action.Error(MsgMissingArgs, nil)
	}

	ctx = logger.ContextWith(ctx, logger.ActionKey, string(req.Action))
	ctx, span := observability.StartSpan(ctx, "orchestrator."+string(req.Action))
	log := logger.WithContext(ctx, h.logger)

	payload, err := fn(ctx, req, log)
	span.End(err)
	if err != nil {
		log.Error("action failed", zap.Error(err))
		timer.ObserveAction(action.StatusError)
		return action.Error(string(req.Action)+" failed", err)
	}

	log.Info("action completed", zap.Duration("duration", timer.ObserveAction(action.StatusOK)))
	return action.OK(payload)
}

func (h *Handler) create(ctx context.Context, req action.Request, log *zap.Logger) (interface{}, error) {
	var params catalog.CreateTableParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, err
	}
	if len(req.Args.Paths) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "create requires the schema descriptor path")
	}

	if err := h.promote(ctx, req.Args.Paths[:1], log); err != nil {
		return nil, err
	}
	if err := h.catalog.CreateTable(ctx, params); err != nil {
		return nil, err
	}
	log.Info("table created",
		zap.String("database", params.DatabaseName),
		zap.String("table", params.TableInput.Name),
		zap.String("location", params.TableInput.StorageDescriptor.Location))

	return action.CommitPayload{
		Database: params.DatabaseName,
		Table:    params.TableInput.Name,
		Promoted: 1,
	}, nil
}

func (h *Handler) upload(ctx context.Context, req action.Request, log *zap.Logger) (interface{}, error) {
	var params catalog.AddPartitionsParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, err
	}

	span := observability.SpanFromContext(ctx)
	span.SetAttribute("table", params.TableName)
	span.SetAttribute("partitions", len(params.PartitionInputList))

	if err := h.promote(ctx, req.Args.Paths, log); err != nil {
		return nil, err
	}
	span.SetAttribute("promoted", len(req.Args.Paths))
	if err := catalog.RegisterPartitions(ctx, h.catalog, params, h.batchSize, log); err != nil {
		return nil, err
	}

	return action.CommitPayload{
		Database:   params.DatabaseName,
		Table:      params.TableName,
		Promoted:   len(req.Args.Paths),
		Partitions: len(params.PartitionInputList),
	}, nil
}

func (h *Handler) createPartition(ctx context.Context, req action.Request, log *zap.Logger) (interface{}, error) {
	var params catalog.AddPartitionsParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, err
	}
	if err := catalog.RegisterPartitions(ctx, h.catalog, params, h.batchSize, log); err != nil {
		return nil, err
	}
	return action.CommitPayload{
		Database:   params.DatabaseName,
		Table:      params.TableName,
		Partitions: len(params.PartitionInputList),
	}, nil
}

func (h *Handler) dump(ctx context.Context, req action.Request, log *zap.Logger) (interface{}, error) {
	var in query.StartInput
	if err := req.DecodeParams(&in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.QueryString) == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "empty query string")
	}

	id, err := h.queries.Start(ctx, in)
	if err != nil {
		return nil, err
	}
	log.Info("query started", zap.String("query_id", id), zap.String("output", in.OutputLocation))
	return action.DumpPayload{QueryExecutionID: id}, nil
}

func (h *Handler) dumpStatus(ctx context.Context, req action.Request, _ *zap.Logger) (interface{}, error) {
	var params action.StatusParams
	if err := req.DecodeParams(&params); err != nil {
		return nil, err
	}
	if params.QueryID == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "missing query_id")
	}

	report, err := h.queries.Report(ctx, params.QueryID)
	if err != nil {
		return nil, err
	}
	metrics.QueryProbes.WithLabelValues(string(report.State)).Inc()
	return report, nil
}
