package query

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/formats/columnar"
	"github.com/ajitpratap0/featurestore/pkg/logger"
)

// DefaultBackoff is the wait before each status probe of AwaitCompletion.
var DefaultBackoff = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}

// Report is one observation of an execution together with where its
// result lives. Schema is set only for a succeeded execution.
type Report struct {
	QueryID        string      `json:"query_id"`
	State          State       `json:"query_status"`
	ResultLocation string      `json:"s3_path"`
	Schema         []ColumnDef `json:"schema"`
}

// Backend starts executions and reports on them. A report on a succeeded
// execution carries the result schema.
type Backend interface {
	Start(ctx context.Context, in StartInput) (string, error)
	Report(ctx context.Context, id string) (Report, error)
}

// Direct is a Backend calling an Engine in process.
type Direct struct {
	Engine Engine
}

// Start submits the query.
func (d Direct) Start(ctx context.Context, in StartInput) (string, error) {
	return d.Engine.StartQuery(ctx, in)
}

// Report probes the status once and, only when the execution succeeded,
// reads its result schema.
func (d Direct) Report(ctx context.Context, id string) (Report, error) {
	st, err := d.Engine.GetStatus(ctx, id)
	if err != nil {
		return Report{}, err
	}

	r := Report{QueryID: id, State: st.State, ResultLocation: st.ResultLocation}
	if st.State != Succeeded {
		return r, nil
	}
	r.Schema, err = d.Engine.GetResultSchema(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return r, nil
}

// Manager drives the query lifecycle.
type Manager struct {
	backend   Backend
	database  string
	workGroup string
	backoff   []time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithSleep replaces the wait between probes.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = sleep }
}

// NewManager creates a manager over backend.
func NewManager(backend Backend, cfg config.QueryConfig, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		backend:   backend,
		database:  cfg.Database,
		workGroup: cfg.WorkGroup,
		backoff:   cfg.PollBackoff,
		sleep:     sleepCtx,
		logger:    logger.OrNop(log),
	}
	if len(m.backoff) == 0 {
		m.backoff = DefaultBackoff
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit starts sql with its results written under resultLocation.
func (m *Manager) Submit(ctx context.Context, sql, resultLocation string) (string, error) {
	id, err := m.backend.Start(ctx, StartInput{
		QueryString:    sql,
		Database:       m.database,
		OutputLocation: resultLocation,
		WorkGroup:      m.workGroup,
	})
	if err != nil {
		return "", errors.WrapKind(err, errors.ErrQuerySubmission, "submit query").
			WithDetail("output", resultLocation)
	}
	return id, nil
}

// Poll probes an execution once. A failed probe reports Unknown.
func (m *Manager) Poll(ctx context.Context, id string) Report {
	r, err := m.backend.Report(ctx, id)
	if err != nil {
		m.logger.Warn("query status probe failed", zap.String("query_id", id), zap.Error(err))
		return Report{QueryID: id, State: Unknown}
	}
	return r
}

// AwaitCompletion waits before each probe per the backoff sequence and
// stops at the first terminal state. When the sequence runs out first it
// returns the last observed report with ErrQueryNotComplete; the caller
// polls again later.
func (m *Manager) AwaitCompletion(ctx context.Context, id string) (Report, error) {
	log := m.logger.With(zap.String("query_id", id))
	last := Report{QueryID: id, State: Unknown}

	for _, wait := range m.backoff {
		log.Debug("waiting before status probe", zap.Duration("wait", wait))
		if err := m.sleep(ctx, wait); err != nil {
			return last, err
		}
		last = m.Poll(ctx, id)
		if last.State.Terminal() {
			log.Info("query finished", zap.String("state", string(last.State)))
			return last, nil
		}
	}

	log.Warn("query not yet completed, try later", zap.String("state", string(last.State)))
	return last, errors.Newf(errors.ErrQueryNotComplete, "query %s still %s", id, last.State).
		WithDetail("query_id", id)
}

// ResultSchema maps the result columns of a succeeded report to the Arrow
// schema its CSV result decodes with.
func (m *Manager) ResultSchema(r Report) (*arrow.Schema, error) {
	switch {
	case r.State == Succeeded:
	case r.State.Terminal():
		return nil, errors.New(errors.ErrorTypeQuery, "query has no result").
			WithDetail("query_id", r.QueryID).
			WithDetail("state", string(r.State))
	default:
		return nil, errors.Newf(errors.ErrQueryNotComplete, "query %s still %s", r.QueryID, r.State).
			WithDetail("query_id", r.QueryID)
	}
	fields := make([]arrow.Field, len(r.Schema))
	for i, c := range r.Schema {
		fields[i] = arrow.Field{
			Name:     c.Name,
			Type:     columnar.EngineType(c.Type),
			Nullable: c.Nullable != NotNull,
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return errors.Wrap(ctx.Err(), errors.ErrorTypeQuery, "query wait cancelled")
	case <-timer.C:
		return nil
	}
}
