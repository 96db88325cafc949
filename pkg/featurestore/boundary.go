package featurestore

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/action"
	"github.com/ajitpratap0/featurestore/pkg/catalog"
	"github.com/ajitpratap0/featurestore/pkg/layout"
)

// CreateFeatureGroup is Create reporting failure as false.
func (c *Client) CreateFeatureGroup(ctx context.Context, fg layout.FeatureGroup, rec arrow.Record, timeColumn, timeUnit string) (bool, action.CommitPayload) {
	out, err := c.Create(ctx, fg, rec, timeColumn, timeUnit)
	if !c.swallow("create", err, zap.Stringer("feature_group", fg)) {
		return false, action.CommitPayload{}
	}
	return true, *out
}

// AppendPartitions is Append reporting failure as false.
func (c *Client) AppendPartitions(ctx context.Context, fg layout.FeatureGroup, rec arrow.Record) (bool, AppendResult) {
	out, err := c.Append(ctx, fg, rec)
	if !c.swallow("append", err, zap.Stringer("feature_group", fg)) {
		return false, AppendResult{}
	}
	return true, *out
}

// UploadBatch is AppendPartitions.
func (c *Client) UploadBatch(ctx context.Context, fg layout.FeatureGroup, rec arrow.Record) (bool, AppendResult) {
	return c.AppendPartitions(ctx, fg, rec)
}

// RegisterPartitions is Register reporting failure as false.
func (c *Client) RegisterPartitions(ctx context.Context, fg layout.FeatureGroup, suffixes []string) (bool, action.CommitPayload) {
	out, err := c.Register(ctx, fg, suffixes)
	if !c.swallow("register", err, zap.Stringer("feature_group", fg)) {
		return false, action.CommitPayload{}
	}
	return true, *out
}

// RegisterTable is CreateTableOver reporting failure as false.
func (c *Client) RegisterTable(ctx context.Context, database, table, fileURL string) (bool, catalog.CreateTableParams) {
	out, err := c.CreateTableOver(ctx, database, table, fileURL)
	if !c.swallow("register_table", err, zap.String("file", fileURL)) {
		return false, catalog.CreateTableParams{}
	}
	return true, *out
}

// DumpQuery is Dump reporting failure as false.
func (c *Client) DumpQuery(ctx context.Context, sql string) (bool, DumpResult) {
	out, err := c.Dump(ctx, sql)
	if !c.swallow("dump", err) {
		return false, DumpResult{}
	}
	return true, *out
}

// ReadQueryResult is Read reporting failure as false. The result keeps
// the last query report either way.
func (c *Client) ReadQueryResult(ctx context.Context, queryID string) (bool, ReadResult) {
	out, err := c.Read(ctx, queryID)
	return c.swallow("read", err, zap.String("query_id", queryID)), *out
}

// ListVersions is Versions reporting failure as false.
func (c *Client) ListVersions(ctx context.Context, client, app, entity string) (bool, []string) {
	out, err := c.Versions(ctx, client, app, entity)
	if !c.swallow("versions", err) {
		return false, nil
	}
	return true, out
}
