// Command orchestrator hosts the commit orchestrator as an AWS Lambda
// function. It promotes staged objects, mutates the Glue catalog and runs
// Athena queries on behalf of feature store clients.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/internal/orchestrator"
	"github.com/ajitpratap0/featurestore/pkg/action"
	"github.com/ajitpratap0/featurestore/pkg/catalog"
	"github.com/ajitpratap0/featurestore/pkg/cloud"
	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/logger"
	"github.com/ajitpratap0/featurestore/pkg/observability"
	"github.com/ajitpratap0/featurestore/pkg/query"
	"github.com/ajitpratap0/featurestore/pkg/storage"
)

var version = "0.1.0"

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("FEATURESTORE_CONFIG"))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := logger.Init(cfg.Logging); err != nil {
		logger.Fatal("failed to initialise logger", zap.Error(err))
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	shutdown, err := observability.Initialize(cfg.Tracing, version, os.Stderr)
	if err != nil {
		log.Fatal("failed to initialise tracing", zap.Error(err))
	}
	defer func() { _ = shutdown(ctx) }()

	awsCfg, err := cloud.LoadAWSConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("failed to load aws configuration", zap.Error(err))
	}

	handler := orchestrator.New(
		storage.NewS3Store(awsCfg, cfg.Storage, log),
		catalog.NewGlueCatalogFromConfig(awsCfg, log),
		query.NewAthenaEngineFromConfig(awsCfg, log),
		cfg,
		log,
	)

	log.Info("orchestrator starting",
		zap.String("version", version),
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("database", cfg.Catalog.Database))

	lambda.StartWithOptions(func(ctx context.Context, req action.Request) (action.Response, error) {
		return handler.Handle(ctx, req), nil
	}, lambda.WithContext(ctx))
}
