package query

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/logger"
)

// AthenaAPI is the subset of the Athena client the engine uses.
type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, opts ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, opts ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, in *athena.GetQueryResultsInput, opts ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// AthenaEngine implements Engine on Amazon Athena.
type AthenaEngine struct {
	client AthenaAPI
	logger *zap.Logger
}

// NewAthenaEngine wraps an Athena client.
func NewAthenaEngine(client AthenaAPI, log *zap.Logger) *AthenaEngine {
	return &AthenaEngine{client: client, logger: logger.OrNop(log)}
}

// NewAthenaEngineFromConfig builds the Athena client from an AWS configuration.
func NewAthenaEngineFromConfig(awsCfg aws.Config, log *zap.Logger) *AthenaEngine {
	return NewAthenaEngine(athena.NewFromConfig(awsCfg), log)
}

// StartQuery issues StartQueryExecution.
func (a *AthenaEngine) StartQuery(ctx context.Context, in StartInput) (string, error) {
	req := &athena.StartQueryExecutionInput{
		QueryString:           aws.String(in.QueryString),
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String(in.Database)},
		ResultConfiguration:   &types.ResultConfiguration{OutputLocation: aws.String(in.OutputLocation)},
	}
	if in.WorkGroup != "" {
		req.WorkGroup = aws.String(in.WorkGroup)
	}

	out, err := a.client.StartQueryExecution(ctx, req)
	if err != nil {
		return "", errors.WrapKind(err, errors.ErrRemoteCall, "start query execution")
	}
	id := aws.ToString(out.QueryExecutionId)
	if id == "" {
		return "", errors.Newf(errors.ErrRemoteCall, "start query execution returned no id")
	}

	a.logger.Info("query started",
		zap.String("query_id", id),
		zap.String("database", in.Database),
		zap.String("output", in.OutputLocation))
	return id, nil
}

// GetStatus issues GetQueryExecution.
func (a *AthenaEngine) GetStatus(ctx context.Context, id string) (Status, error) {
	out, err := a.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{QueryExecutionId: aws.String(id)})
	if err != nil {
		return Status{}, errors.WrapKind(err, errors.ErrRemoteCall, "get query execution").
			WithDetail("query_id", id)
	}

	qe := out.QueryExecution
	if qe == nil || qe.Status == nil {
		return Status{}, errors.Newf(errors.ErrRemoteCall, "query %s has no status", id)
	}
	st := Status{State: State(qe.Status.State)}
	if st.State == "" {
		st.State = Unknown
	}
	if qe.Status.StateChangeReason != nil {
		st.Reason = aws.ToString(qe.Status.StateChangeReason)
	}
	if qe.ResultConfiguration != nil {
		st.ResultLocation = aws.ToString(qe.ResultConfiguration.OutputLocation)
	}
	return st, nil
}

// GetResultSchema reads the result column metadata with a single-row
// GetQueryResults probe.
func (a *AthenaEngine) GetResultSchema(ctx context.Context, id string) ([]ColumnDef, error) {
	out, err := a.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(id),
		MaxResults:       aws.Int32(1),
	})
	if err != nil {
		return nil, errors.WrapKind(err, errors.ErrRemoteCall, "get query results").
			WithDetail("query_id", id)
	}
	if out.ResultSet == nil || out.ResultSet.ResultSetMetadata == nil {
		return nil, errors.Newf(errors.ErrRemoteCall, "query %s has no result metadata", id)
	}

	info := out.ResultSet.ResultSetMetadata.ColumnInfo
	cols := make([]ColumnDef, len(info))
	for i, c := range info {
		cols[i] = columnDef(c)
	}
	return cols, nil
}

func columnDef(c types.ColumnInfo) ColumnDef {
	name := aws.ToString(c.Label)
	if name == "" {
		name = aws.ToString(c.Name)
	}
	nullable := string(c.Nullable)
	if nullable == "" {
		nullable = NullableUnknown
	}
	return ColumnDef{Name: name, Type: aws.ToString(c.Type), Nullable: nullable}
}
