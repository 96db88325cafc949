package featurestore

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/featurestore/internal/orchestrator"
	"github.com/ajitpratap0/featurestore/pkg/action"
	"github.com/ajitpratap0/featurestore/pkg/catalog"
	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/formats/columnar"
	"github.com/ajitpratap0/featurestore/pkg/layout"
	"github.com/ajitpratap0/featurestore/pkg/query"
	"github.com/ajitpratap0/featurestore/pkg/storage"
)

var fg = layout.FeatureGroup{Client: "acme", App: "crm", Entity: "user", Version: "v1"}

type fixture struct {
	client  *Client
	store   *storage.MemoryStore
	catalog *catalog.MemoryCatalog
	engine  *query.MemoryEngine
	cfg     *config.Config
	layout  layout.Layout
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.NewDefault()
	f := &fixture{
		store:   storage.NewMemoryStore(),
		catalog: catalog.NewMemoryCatalog(),
		engine:  query.NewMemoryEngine(),
		cfg:     cfg,
		layout:  layout.New(cfg),
	}
	log := zaptest.NewLogger(t)
	handler := orchestrator.New(f.store, f.catalog, f.engine, cfg, log)
	noWait := query.WithSleep(func(context.Context, time.Duration) error { return nil })
	f.client = New(f.store, action.Local(handler), cfg, log, WithCatalog(f.catalog), WithQueryOptions(noWait))
	return f
}

type row struct {
	name  string
	score float64
	ts    int64
}

var batchSchema = arrow.NewSchema([]arrow.Field{
	{Name: "Name", Type: arrow.BinaryTypes.String},
	{Name: "score", Type: arrow.PrimitiveTypes.Float64},
	{Name: "ts", Type: arrow.PrimitiveTypes.Int64},
}, nil)

func batch(t *testing.T, rows ...row) arrow.Record {
	t.Helper()
	b := array.NewRecordBuilder(memory.DefaultAllocator, batchSchema)
	defer b.Release()
	for _, r := range rows {
		b.Field(0).(*array.StringBuilder).Append(r.name)
		b.Field(1).(*array.Float64Builder).Append(r.score)
		b.Field(2).(*array.Int64Builder).Append(r.ts)
	}
	rec := b.NewRecord()
	t.Cleanup(rec.Release)
	return rec
}

// Two rows on 2024-01-02 and one on 2024-01-03, Asia/Kolkata.
func threeRows(t *testing.T) arrow.Record {
	return batch(t,
		row{"a", 0.5, 1704153600},
		row{"b", 1.5, 1704157200},
		row{"c", 2.5, 1704240000},
	)
}

func TestCreateAndAppendEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, created := f.client.CreateFeatureGroup(ctx, fg, batch(t, row{"seed", 0, 1}), "ts", "s")
	require.True(t, ok)
	assert.Equal(t, "acme_crm_user_v1", created.Table)

	ok, appended := f.client.AppendPartitions(ctx, fg, threeRows(t))
	require.True(t, ok)
	assert.Equal(t, []string{"y=2024/m=01/d=02", "y=2024/m=01/d=03"}, appended.Suffixes)
	assert.Equal(t, 2, appended.Partitions)

	wantRows := map[string]int64{"y=2024/m=01/d=02": 2, "y=2024/m=01/d=03": 1}
	for suffix, n := range wantRows {
		keys := f.store.Keys(f.cfg.Storage.Bucket, f.layout.PartitionPrefix(fg, suffix)+"/")
		require.Len(t, keys, 1, suffix)
		assert.Regexp(t, `/part-0-[0-9a-f-]{36}\.snappy\.parquet$`, keys[0])

		data, err := f.store.Get(ctx, f.cfg.Storage.Bucket, keys[0])
		require.NoError(t, err)
		rec, err := columnar.ReadParquet(ctx, data, memory.DefaultAllocator)
		require.NoError(t, err)
		assert.Equal(t, n, rec.NumRows(), suffix)
		assert.Equal(t, "name", rec.Schema().Field(0).Name)
		rec.Release()
	}

	parts := f.catalog.Partitions("feature_store", "acme_crm_user_v1")
	require.Len(t, parts, 2)
	assert.Equal(t, "s3://data-lake/feature_store/acme/crm/user/data/v1/y=2024/m=01/d=02/",
		parts["2024/01/02"].StorageDescriptor.Location)
	assert.Equal(t, "s3://data-lake/feature_store/acme/crm/user/data/v1/y=2024/m=01/d=03/",
		parts["2024/01/03"].StorageDescriptor.Location)
}

func TestCreateAndAppendUnsignedTimeColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unsigned := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "ts", Type: arrow.PrimitiveTypes.Uint32},
	}, nil)
	build := func(names []string, ts []uint32) arrow.Record {
		b := array.NewRecordBuilder(memory.DefaultAllocator, unsigned)
		defer b.Release()
		b.Field(0).(*array.StringBuilder).AppendValues(names, nil)
		b.Field(1).(*array.Uint32Builder).AppendValues(ts, nil)
		rec := b.NewRecord()
		t.Cleanup(rec.Release)
		return rec
	}

	_, err := f.client.Create(ctx, fg, build([]string{"seed"}, []uint32{1}), "ts", "s")
	require.NoError(t, err)

	res, err := f.client.Append(ctx, fg, build([]string{"a", "b"}, []uint32{1704153600, 1704240000}))
	require.NoError(t, err)
	assert.Equal(t, []string{"y=2024/m=01/d=02", "y=2024/m=01/d=03"}, res.Suffixes)
	assert.Len(t, f.catalog.Partitions("feature_store", "acme_crm_user_v1"), 2)
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestAppendAnnotatesSpan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.client.Create(ctx, fg, threeRows(t), "ts", "s")
	require.NoError(t, err)

	spans := recordSpans(t)
	_, err = f.client.Append(ctx, fg, threeRows(t))
	require.NoError(t, err)

	var appendSpan sdktrace.ReadOnlySpan
	for _, s := range spans.Ended() {
		if s.Name() == "featurestore.append" {
			appendSpan = s
		}
	}
	require.NotNil(t, appendSpan)
	attrs := appendSpan.Attributes()
	assert.Contains(t, attrs, attribute.String("feature_group", fg.String()))
	assert.Contains(t, attrs, attribute.Int64("rows", 3))
	assert.Contains(t, attrs, attribute.Int("partitions", 2))
	assert.Contains(t, attrs, attribute.Int("files", 2))
}

func TestCreateTwiceSkipsCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, _ := f.client.CreateFeatureGroup(ctx, fg, threeRows(t), "ts", "s")
	require.True(t, ok)

	ok, payload := f.client.CreateFeatureGroup(ctx, fg, threeRows(t), "ts", "s")
	assert.False(t, ok)
	assert.Equal(t, action.CommitPayload{}, payload)
	assert.Equal(t, 1, f.catalog.CreateTableCalls)

	_, err := f.client.Create(ctx, fg, threeRows(t), "ts", "s")
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		timeColumn string
		unit       string
		kind       error
	}{
		{"non numeric time column", "name", "s", errors.ErrNonNumericTimeColumn},
		{"unknown unit", "ts", "h", errors.ErrInvalidTimeUnit},
		{"missing time column", "event_time", "s", errors.ErrMissingTimeColumn},
		{"digits only", "123", "s", errors.ErrInvalidTimeColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.client.Create(ctx, fg, threeRows(t), tt.timeColumn, tt.unit)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Empty(t, f.store.Keys(f.cfg.Storage.StageBucket, f.cfg.Storage.StageRoot+"/"))
	assert.Zero(t, f.catalog.CreateTableCalls)
}

func TestAppendSamePartitionTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, _ := f.client.CreateFeatureGroup(ctx, fg, threeRows(t), "ts", "s")
	require.True(t, ok)
	ok, _ = f.client.UploadBatch(ctx, fg, threeRows(t))
	require.True(t, ok)

	prodBefore := f.store.Keys(f.cfg.Storage.Bucket, f.layout.DataRoot(fg)+"/")
	batches := f.catalog.BatchCalls

	ok, payload := f.client.UploadBatch(ctx, fg, batch(t, row{"d", 3.5, 1704240001}))
	assert.False(t, ok)
	assert.Empty(t, payload.Suffixes)
	assert.Equal(t, prodBefore, f.store.Keys(f.cfg.Storage.Bucket, f.layout.DataRoot(fg)+"/"))
	assert.Equal(t, batches, f.catalog.BatchCalls)

	_, err := f.client.Append(ctx, fg, batch(t, row{"d", 3.5, 1704240001}))
	assert.ErrorIs(t, err, errors.ErrPartitionAlreadyExists)
}

func TestAppendSchemaMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ok, _ := f.client.CreateFeatureGroup(ctx, fg, threeRows(t), "ts", "s")
	require.True(t, ok)

	narrow := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "ts", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, narrow)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).Append("x")
	b.Field(1).(*array.Int64Builder).Append(1704153600)
	rec := b.NewRecord()
	defer rec.Release()

	_, err := f.client.Append(ctx, fg, rec)
	assert.ErrorIs(t, err, errors.ErrSchemaMissingColumns)
	assert.True(t, errors.IsSchemaMismatch(err))
	assert.Empty(t, f.store.Keys(f.cfg.Storage.Bucket, f.layout.DataRoot(fg)+"/"))
}

func TestAppendUnknownFeatureGroup(t *testing.T) {
	f := newFixture(t)
	ok, _ := f.client.AppendPartitions(context.Background(), fg, threeRows(t))
	assert.False(t, ok)
}

func TestRegisterPartitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ok, _ := f.client.CreateFeatureGroup(ctx, fg, threeRows(t), "ts", "s")
	require.True(t, ok)

	ok, payload := f.client.RegisterPartitions(ctx, fg, []string{"y=2024/m=02/d=01", "y=2024/m=02/d=02"})
	require.True(t, ok)
	assert.Equal(t, 2, payload.Partitions)

	parts := f.catalog.Partitions("feature_store", "acme_crm_user_v1")
	require.Len(t, parts, 2)
	assert.Empty(t, parts["2024/02/01"].StorageDescriptor.Columns)

	batches := f.catalog.BatchCalls
	ok, _ = f.client.RegisterPartitions(ctx, fg, []string{"2024-02-03"})
	assert.False(t, ok)
	assert.Equal(t, batches, f.catalog.BatchCalls)
}

func TestRegisterTableOverExistingData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	files, err := columnar.EncodeParquet(threeRows(t), columnar.DefaultWriterConfig())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NoError(t, f.store.Put(ctx, "data-lake", "imports/events/y=2024/m=01/d=02/part-0.parquet", files[0], ""))

	ok, params := f.client.RegisterTable(ctx, "feature_store", "Imported Events",
		"s3://data-lake/imports/events/y=2024/m=01/d=02/part-0.parquet")
	require.True(t, ok)
	assert.Equal(t, "imported_events", params.TableInput.Name)

	table, found := f.catalog.Table("feature_store", "imported_events")
	require.True(t, found)
	assert.Equal(t, "s3://data-lake/imports/events/", table.TableInput.StorageDescriptor.Location)
	assert.Len(t, table.TableInput.StorageDescriptor.Columns, 3)

	ok, _ = f.client.RegisterTable(ctx, "feature_store", "other", "s3://data-lake/imports/events/part-0.parquet")
	assert.False(t, ok)
}

func TestDumpAndRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.Columns = []query.ColumnDef{
		{Name: "name", Type: "varchar", Nullable: query.NullableUnknown},
		{Name: "score", Type: "double", Nullable: query.Nullable},
	}

	ok, dump := f.client.DumpQuery(ctx, "SELECT name, score FROM acme_crm_user_v1")
	require.True(t, ok)
	assert.Regexp(t, `^s3://data-lake/feature_store_stage/queries/[0-9a-f-]{36}$`, dump.ResultLocation)

	submitted, found := f.engine.Submission(dump.QueryID)
	require.True(t, found)
	assert.Equal(t, "feature_store", submitted.Database)
	assert.Equal(t, dump.ResultLocation, submitted.OutputLocation)

	bucket, key, err := layout.ParseURL(f.engine.ResultLocation(dump.QueryID))
	require.NoError(t, err)
	require.NoError(t, f.store.Put(ctx, bucket, key, []byte("name,score\na,0.5\nb,\n"), "text/csv"))

	ok, result := f.client.ReadQueryResult(ctx, dump.QueryID)
	require.True(t, ok)
	require.NotNil(t, result.Record)
	defer result.Record.Release()

	assert.Equal(t, query.Succeeded, result.Report.State)
	assert.Equal(t, int64(2), result.Record.NumRows())
	scores := result.Record.Column(1).(*array.Float64)
	assert.Equal(t, 0.5, scores.Value(0))
	assert.True(t, scores.IsNull(1))
}

func TestReadBeforeCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.Progression = []query.State{query.Queued, query.Running}

	dump, err := f.client.Dump(ctx, "SELECT 1")
	require.NoError(t, err)

	ok, result := f.client.ReadQueryResult(ctx, dump.QueryID)
	assert.False(t, ok)
	assert.Nil(t, result.Record)
	assert.Equal(t, query.Running, result.Report.State)

	_, err = f.client.Read(ctx, dump.QueryID)
	assert.ErrorIs(t, err, errors.ErrQueryNotComplete)
	assert.True(t, errors.IsRetryable(err))
	assert.Zero(t, f.engine.SchemaCalls)
}

func TestReadFailedQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.Progression = []query.State{query.Failed}

	dump, err := f.client.Dump(ctx, "SELECT broken")
	require.NoError(t, err)

	ok, result := f.client.ReadQueryResult(ctx, dump.QueryID)
	assert.True(t, ok)
	assert.Nil(t, result.Record)
	assert.Equal(t, query.Failed, result.Report.State)
	assert.Zero(t, f.engine.SchemaCalls)
}

func TestStatusOfUnreachableQuery(t *testing.T) {
	f := newFixture(t)
	report := f.client.Status(context.Background(), "query-0042")
	assert.Equal(t, query.Unknown, report.State)
}

func TestDumpRejectsEmptyQuery(t *testing.T) {
	f := newFixture(t)
	ok, dump := f.client.DumpQuery(context.Background(), " ")
	assert.False(t, ok)
	assert.Empty(t, dump.QueryID)
}

func TestListVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, key := range []string{
		"feature_store/acme/crm/user/schema/v1/schema.json",
		"feature_store/acme/crm/user/schema/v2/schema.json",
		"feature_store/acme/crm/user/schema/v3/old/schema.json",
		"feature_store/acme/crm/users/schema/v9/schema.json",
	} {
		require.NoError(t, f.store.Put(ctx, "data-lake", key, []byte(`{}`), ""))
	}

	ok, versions := f.client.ListVersions(ctx, "acme", "crm", "user")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"v1", "v2"}, versions)
}
