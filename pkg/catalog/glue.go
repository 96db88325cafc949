package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/logger"
	"github.com/ajitpratap0/featurestore/pkg/schema"
)

// GlueAPI is the subset of the Glue client the catalog uses.
type GlueAPI interface {
	CreateTable(ctx context.Context, in *glue.CreateTableInput, opts ...func(*glue.Options)) (*glue.CreateTableOutput, error)
	BatchCreatePartition(ctx context.Context, in *glue.BatchCreatePartitionInput, opts ...func(*glue.Options)) (*glue.BatchCreatePartitionOutput, error)
}

// GlueCatalog implements Catalog on AWS Glue.
type GlueCatalog struct {
	client GlueAPI
	logger *zap.Logger
}

// NewGlueCatalog wraps a Glue client.
func NewGlueCatalog(client GlueAPI, log *zap.Logger) *GlueCatalog {
	return &GlueCatalog{client: client, logger: logger.OrNop(log)}
}

// NewGlueCatalogFromConfig builds the Glue client from an AWS configuration.
func NewGlueCatalogFromConfig(awsCfg aws.Config, log *zap.Logger) *GlueCatalog {
	return NewGlueCatalog(glue.NewFromConfig(awsCfg), log)
}

// CreateTable issues CreateTable.
func (g *GlueCatalog) CreateTable(ctx context.Context, params CreateTableParams) error {
	ti := params.TableInput
	_, err := g.client.CreateTable(ctx, &glue.CreateTableInput{
		DatabaseName: aws.String(params.DatabaseName),
		TableInput: &types.TableInput{
			Name:              aws.String(ti.Name),
			TableType:         aws.String(ti.TableType),
			StorageDescriptor: toGlueStorage(ti.StorageDescriptor),
			PartitionKeys:     toGlueColumns(ti.PartitionKeys),
		},
	})
	if err != nil {
		var exists *types.AlreadyExistsException
		if errors.As(err, &exists) {
			return errors.WrapKind(err, errors.ErrAlreadyExists, "table already exists").
				WithDetail("table", params.DatabaseName+"."+ti.Name)
		}
		return errors.WrapKind(err, errors.ErrRemoteCall, "create table").
			WithDetail("table", params.DatabaseName+"."+ti.Name)
	}

	g.logger.Info("table created",
		zap.String("database", params.DatabaseName),
		zap.String("table", ti.Name),
		zap.String("location", ti.StorageDescriptor.Location))
	return nil
}

// BatchAddPartitions issues BatchCreatePartition. Any per-partition error
// in the response fails the call.
func (g *GlueCatalog) BatchAddPartitions(ctx context.Context, params AddPartitionsParams) error {
	inputs := make([]types.PartitionInput, len(params.PartitionInputList))
	for i, p := range params.PartitionInputList {
		inputs[i] = types.PartitionInput{
			Values:            p.Values,
			StorageDescriptor: toGlueStorage(p.StorageDescriptor),
		}
	}

	out, err := g.client.BatchCreatePartition(ctx, &glue.BatchCreatePartitionInput{
		DatabaseName:       aws.String(params.DatabaseName),
		TableName:          aws.String(params.TableName),
		PartitionInputList: inputs,
	})
	if err != nil {
		return errors.WrapKind(err, errors.ErrRemoteCall, "batch create partition").
			WithDetail("table", params.DatabaseName+"."+params.TableName)
	}

	if len(out.Errors) > 0 {
		return partitionErrors(params, out.Errors)
	}

	g.logger.Info("partitions added",
		zap.String("database", params.DatabaseName),
		zap.String("table", params.TableName),
		zap.Int("partitions", len(inputs)))
	return nil
}

func partitionErrors(params AddPartitionsParams, perrs []types.PartitionError) error {
	kind := errors.ErrPartitionAlreadyExists
	msgs := make([]string, 0, len(perrs))
	for _, pe := range perrs {
		code, msg := "", ""
		if pe.ErrorDetail != nil {
			code = aws.ToString(pe.ErrorDetail.ErrorCode)
			msg = aws.ToString(pe.ErrorDetail.ErrorMessage)
		}
		if code != "AlreadyExistsException" {
			kind = errors.ErrRemoteCall
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s %s", strings.Join(pe.PartitionValues, "/"), code, msg))
	}
	return errors.Newf(kind, "%d of %d partitions rejected: %s",
		len(perrs), len(params.PartitionInputList), strings.Join(msgs, "; ")).
		WithDetail("table", params.DatabaseName+"."+params.TableName)
}

func toGlueColumns(cols []schema.Column) []types.Column {
	out := make([]types.Column, len(cols))
	for i, c := range cols {
		out[i] = types.Column{Name: aws.String(c.Name), Type: aws.String(string(c.Type))}
	}
	return out
}

func toGlueStorage(sd StorageDescriptor) *types.StorageDescriptor {
	return &types.StorageDescriptor{
		Columns:      toGlueColumns(sd.Columns),
		Location:     aws.String(sd.Location),
		InputFormat:  aws.String(sd.InputFormat),
		OutputFormat: aws.String(sd.OutputFormat),
		SerdeInfo: &types.SerDeInfo{
			Name:                 aws.String(sd.SerdeInfo.Name),
			SerializationLibrary: aws.String(sd.SerdeInfo.SerializationLibrary),
			Parameters:           sd.SerdeInfo.Parameters,
		},
		Parameters: sd.Parameters,
	}
}
