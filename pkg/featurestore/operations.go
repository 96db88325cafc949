package featurestore

import (
	"bytes"
	"context"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/action"
	"github.com/ajitpratap0/featurestore/pkg/catalog"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/formats/columnar"
	"github.com/ajitpratap0/featurestore/pkg/layout"
	"github.com/ajitpratap0/featurestore/pkg/logger"
	"github.com/ajitpratap0/featurestore/pkg/observability"
	"github.com/ajitpratap0/featurestore/pkg/partition"
	"github.com/ajitpratap0/featurestore/pkg/query"
	"github.com/ajitpratap0/featurestore/pkg/schema"
	stringutil "github.com/ajitpratap0/featurestore/pkg/strings"
)

// AppendResult describes a committed append.
type AppendResult struct {
	action.CommitPayload
	// Suffixes are the partitions the batch was written to, in order
	Suffixes []string `json:"suffixes"`
}

// DumpResult identifies a submitted query and where its result lands.
type DumpResult struct {
	QueryID        string `json:"query_id"`
	ResultLocation string `json:"result_location"`
}

// ReadResult is a query outcome. Record is set only when the query
// succeeded; the caller releases it.
type ReadResult struct {
	Record arrow.Record
	Report query.Report
}

// Create creates a feature group whose schema is inferred from rec. The
// time column holds epoch values in timeUnit (s, ms, us or ns) and drives
// the daily partitioning of every later append. rec itself is not stored.
func (c *Client) Create(ctx context.Context, fg layout.FeatureGroup, rec arrow.Record, timeColumn, timeUnit string) (*action.CommitPayload, error) {
	var out action.CommitPayload
	err := c.observe(ctx, "create", func(ctx context.Context) error {
		if err := fg.Validate(); err != nil {
			return err
		}
		ctx = logger.ContextWith(ctx, logger.FeatureGroupKey, fg.String())
		observability.SpanFromContext(ctx).SetAttribute("feature_group", fg.String())

		s, err := schema.FromArrow(rec.Schema())
		if err != nil {
			return err
		}
		timeColumn = stringutil.Sanitise(timeColumn)
		if err := schema.Validate(s, timeColumn, timeUnit); err != nil {
			return err
		}
		unit, err := partition.ParseTimeUnit(timeUnit)
		if err != nil {
			return err
		}
		s = s.WithTime(timeColumn, unit)

		pair, err := c.writer.StageSchema(ctx, fg, s)
		if err != nil {
			return err
		}

		params := catalog.NewCreateTableParams(c.layout.Database, layout.TableName(fg), c.layout.TableLocation(fg), s)
		req, err := action.NewCreate(params, s, pair)
		if err != nil {
			return err
		}
		if err := call(ctx, c.dispatcher, req, &out); err != nil {
			return err
		}

		logger.WithContext(ctx, c.logger).Info("feature group created", zap.String("table", out.Table))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Append writes rec to the daily partitions of its event times. rec must
// have exactly the columns and types of the feature group's schema, and
// none of its partitions may exist yet.
func (c *Client) Append(ctx context.Context, fg layout.FeatureGroup, rec arrow.Record) (*AppendResult, error) {
	var out AppendResult
	err := c.observe(ctx, "append", func(ctx context.Context) error {
		if err := fg.Validate(); err != nil {
			return err
		}
		if rec.NumRows() == 0 {
			return errors.New(errors.ErrorTypeValidation, "empty batch")
		}
		ctx = logger.ContextWith(ctx, logger.FeatureGroupKey, fg.String())
		span := observability.SpanFromContext(ctx)
		span.SetAttribute("feature_group", fg.String())
		span.SetAttribute("rows", rec.NumRows())

		expected, err := c.writer.LoadSchema(ctx, fg)
		if err != nil {
			return err
		}
		norm, err := schema.Normalize(rec)
		if err != nil {
			return err
		}
		defer norm.Release()

		actual, err := schema.FromArrow(norm.Schema())
		if err != nil {
			return err
		}
		if err := schema.CheckCompatible(expected, actual); err != nil {
			return err
		}

		groups, err := partition.Group(norm, expected.TimeColumn, expected.TimeUnit)
		if err != nil {
			return err
		}
		staged, err := c.writer.StagePartitions(ctx, fg, norm, groups)
		if err != nil {
			return err
		}
		span.SetAttribute("partitions", len(staged.Suffixes))
		span.SetAttribute("files", len(staged.Files))

		locations := make([]string, len(staged.Suffixes))
		for i, suffix := range staged.Suffixes {
			locations[i] = c.layout.PartitionLocation(fg, suffix)
		}
		params, err := catalog.NewAddPartitionsParams(c.layout.Database, layout.TableName(fg), locations, &expected)
		if err != nil {
			return err
		}
		req, err := action.NewUpload(params, expected, staged.Files)
		if err != nil {
			return err
		}
		if err := call(ctx, c.dispatcher, req, &out.CommitPayload); err != nil {
			return err
		}
		out.Suffixes = staged.Suffixes

		logger.WithContext(ctx, c.logger).Info("batch appended",
			zap.Int64("rows", rec.NumRows()),
			zap.Strings("partitions", staged.Suffixes),
			zap.Int("files", len(staged.Files)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register adds catalog partitions over data already in place under the
// feature group's production data root. Each suffix is y=YYYY/m=MM/d=DD.
func (c *Client) Register(ctx context.Context, fg layout.FeatureGroup, suffixes []string) (*action.CommitPayload, error) {
	var out action.CommitPayload
	err := c.observe(ctx, "register", func(ctx context.Context) error {
		if err := fg.Validate(); err != nil {
			return err
		}
		if len(suffixes) == 0 {
			return errors.New(errors.ErrorTypeValidation, "no partitions to register")
		}

		locations := make([]string, len(suffixes))
		for i, suffix := range suffixes {
			if _, err := partition.ParseSuffix(suffix); err != nil {
				return err
			}
			locations[i] = c.layout.PartitionLocation(fg, suffix)
		}
		params, err := catalog.NewAddPartitionsParams(c.layout.Database, layout.TableName(fg), locations, nil)
		if err != nil {
			return err
		}
		req, err := action.NewCreatePartition(params)
		if err != nil {
			return err
		}
		return call(ctx, c.dispatcher, req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTableOver creates a catalog table over existing Parquet data. The
// file URL must lie inside a y=/m=/d= partition; the table is rooted at
// the folder above it and takes the file's schema.
func (c *Client) CreateTableOver(ctx context.Context, database, table, fileURL string) (*catalog.CreateTableParams, error) {
	var out catalog.CreateTableParams
	err := c.observe(ctx, "register_table", func(ctx context.Context) error {
		if c.catalog == nil {
			return errors.New(errors.ErrorTypeConfig, "no catalog configured")
		}
		loc, err := partition.Extract(fileURL)
		if err != nil {
			return err
		}
		bucket, key, err := layout.ParseURL(fileURL)
		if err != nil {
			return err
		}
		data, err := c.store.Get(ctx, bucket, key)
		if err != nil {
			return err
		}
		rec, err := columnar.ReadParquet(ctx, data, c.mem)
		if err != nil {
			return err
		}
		defer rec.Release()

		s, err := schema.FromArrow(rec.Schema())
		if err != nil {
			return err
		}
		out = catalog.NewCreateTableParams(database, stringutil.Sanitise(table), loc.DataRoot, s)
		return c.catalog.CreateTable(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Dump submits sql against the catalog database. Its CSV result is
// written under a fresh query folder.
func (c *Client) Dump(ctx context.Context, sql string) (*DumpResult, error) {
	var out DumpResult
	err := c.observe(ctx, "dump", func(ctx context.Context) error {
		if strings.TrimSpace(sql) == "" {
			return errors.New(errors.ErrorTypeValidation, "empty query")
		}
		out.ResultLocation = c.layout.QueryResultURL()
		id, err := c.queries.Submit(ctx, sql, out.ResultLocation)
		if err != nil {
			return err
		}
		out.QueryID = id
		c.logger.Info("query submitted", zap.String("query_id", id), zap.String("output", out.ResultLocation))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Status probes a query once.
func (c *Client) Status(ctx context.Context, queryID string) query.Report {
	return c.queries.Poll(ctx, queryID)
}

// Read waits for a query to finish and, when it succeeded, decodes its
// CSV result. A query still running when the wait runs out fails with
// ErrQueryNotComplete; the result then carries the last report.
func (c *Client) Read(ctx context.Context, queryID string) (*ReadResult, error) {
	out := &ReadResult{}
	err := c.observe(ctx, "read", func(ctx context.Context) error {
		ctx = logger.ContextWith(ctx, logger.QueryIDKey, queryID)
		report, err := c.queries.AwaitCompletion(ctx, queryID)
		out.Report = report
		if err != nil {
			return err
		}
		if report.State != query.Succeeded {
			logger.WithContext(ctx, c.logger).Info("query did not succeed", zap.String("state", string(report.State)))
			return nil
		}

		resultSchema, err := c.queries.ResultSchema(report)
		if err != nil {
			return err
		}
		bucket, key, err := layout.ParseURL(report.ResultLocation)
		if err != nil {
			return err
		}
		data, err := c.store.Get(ctx, bucket, key)
		if err != nil {
			return err
		}
		out.Record, err = columnar.ReadCSV(bytes.NewReader(data), resultSchema, c.mem)
		return err
	})
	return out, err
}

// Versions lists the versions of client/app/entity in no particular
// order.
func (c *Client) Versions(ctx context.Context, client, app, entity string) ([]string, error) {
	var out []string
	err := c.observe(ctx, "versions", func(ctx context.Context) error {
		prefix := c.layout.VersionsPrefix(client, app, entity) + "/"
		keys, err := c.store.List(ctx, c.layout.Bucket, prefix, 0)
		if err != nil {
			return err
		}
		out = make([]string, 0, len(keys))
		for _, k := range keys {
			v := stringutil.Strip(k, prefix, "/"+layout.SchemaFile)
			if v != "" && !strings.Contains(v, "/") {
				out = append(out, v)
			}
		}
		return nil
	})
	return out, err
}
