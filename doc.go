// Package featurestore provides a feature store on an S3 data lake:
// versioned, schema-fixed feature groups whose data is partitioned by
// calendar day, registered in the Glue catalog and queried through Athena.
//
// # Architecture
//
// Writes follow a staged commit protocol with two sides:
//
// 1. The client (pkg/featurestore) validates input, checks that nothing it
// is about to write already exists in production, and stages schema
// descriptors and Parquet partition files under a private staging prefix.
//
// 2. The orchestrator (internal/orchestrator, deployed by cmd/orchestrator
// as a Lambda function) promotes staged objects to production and then
// mutates the catalog. Promotion is not rolled back when a later step
// fails.
//
// The two sides exchange one action envelope per operation (pkg/action):
// CREATE, UPLOAD, CREATE_PARTITION, DUMP and DUMP_STATUS.
//
// # Partitioning
//
// Every row lands in the partition y=YYYY/m=MM/d=DD of its event time,
// taken from the feature group's time column and converted in the
// Asia/Kolkata zone. Partitions are write-once: appending to a day that
// already holds data fails before anything is promoted.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/featurestore/pkg/config"
//	    "github.com/ajitpratap0/featurestore/pkg/featurestore"
//	    "github.com/ajitpratap0/featurestore/pkg/layout"
//	)
//
//	cfg, _ := config.Load("featurestore.yaml")
//	client, err := featurestore.NewFromConfig(ctx, cfg, log)
//	if err != nil {
//	    return err
//	}
//
//	fg := layout.FeatureGroup{Client: "acme", App: "crm", Entity: "user", Version: "v1"}
//	if ok, _ := client.CreateFeatureGroup(ctx, fg, sample, "ts", "s"); !ok {
//	    return errCreate
//	}
//	ok, result := client.AppendPartitions(ctx, fg, batch)
//
// The CLI exposes the same operations:
//
//	featurestore create --client acme --app crm --entity user --version v1 \
//	    --input sample.parquet --time-column ts --time-unit s
//	featurestore append --client acme --app crm --entity user --version v1 --input batch.csv
//	featurestore dump "SELECT * FROM acme_crm_user_v1"
//	featurestore read <query-id> -o result.csv
//
// # Configuration
//
// Configuration is YAML with ${VAR} and ${VAR:-default} substitution. See
// pkg/config for every section and its defaults.
package featurestore
