package stage

import (
	"context"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/formats/columnar"
	"github.com/ajitpratap0/featurestore/pkg/layout"
	"github.com/ajitpratap0/featurestore/pkg/partition"
	"github.com/ajitpratap0/featurestore/pkg/schema"
	"github.com/ajitpratap0/featurestore/pkg/storage"
)

var fg = layout.FeatureGroup{Client: "acme", App: "crm", Entity: "user", Version: "v1"}

func newWriter(t *testing.T) (*Writer, *storage.MemoryStore, *config.Config) {
	t.Helper()
	cfg := config.NewDefault()
	store := storage.NewMemoryStore()
	return NewWriter(store, cfg, zaptest.NewLogger(t)), store, cfg
}

func batch(t *testing.T, ts ...int64) arrow.Record {
	t.Helper()
	s := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "ts", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, s)
	defer b.Release()
	for i, v := range ts {
		b.Field(0).(*array.StringBuilder).Append(string(rune('a' + i)))
		b.Field(1).(*array.Int64Builder).Append(v)
	}
	return b.NewRecord()
}

func testSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Column{Name: "name", Type: schema.String},
		schema.Column{Name: "ts", Type: schema.BigInt},
	)
	require.NoError(t, err)
	return s.WithTime("ts", partition.Seconds)
}

func TestStageSchema(t *testing.T) {
	w, store, cfg := newWriter(t)
	ctx := context.Background()

	pair, err := w.StageSchema(ctx, fg, testSchema(t))
	require.NoError(t, err)
	assert.Equal(t, "feature_store_stage/uploads/schema/acme/crm/user/schema/v1/schema.json", pair.Stage)
	assert.Equal(t, "feature_store/acme/crm/user/schema/v1/schema.json", pair.Prod)

	ok, err := store.Exists(ctx, cfg.Storage.StageBucket, pair.Stage)
	require.NoError(t, err)
	assert.True(t, ok)

	// The staged descriptor itself guards a second create.
	_, err = w.StageSchema(ctx, fg, testSchema(t))
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)
}

func TestStageSchemaRejectsExistingProduction(t *testing.T) {
	w, store, cfg := newWriter(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, cfg.Storage.Bucket, w.Layout().SchemaKey(fg), []byte(`{}`), ""))

	_, err := w.StageSchema(ctx, fg, testSchema(t))
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)
	assert.Empty(t, store.Keys(cfg.Storage.StageBucket, "feature_store_stage/"))
}

func TestLoadSchema(t *testing.T) {
	w, store, cfg := newWriter(t)
	ctx := context.Background()

	_, err := w.LoadSchema(ctx, fg)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	require.NoError(t, store.Put(ctx, cfg.Storage.Bucket, w.Layout().SchemaKey(fg),
		[]byte(`{"name":"string","ts":"bigint","__time_col__":"ts","__time_col_unit__":"s"}`), ""))
	s, err := w.LoadSchema(ctx, fg)
	require.NoError(t, err)
	assert.Equal(t, testSchema(t), s)
}

func TestStagePartitions(t *testing.T) {
	w, store, cfg := newWriter(t)
	ctx := context.Background()

	rec := batch(t, 1704153600, 1704157200, 1704240000)
	defer rec.Release()
	groups, err := partition.Group(rec, "ts", partition.Seconds)
	require.NoError(t, err)

	staged, err := w.StagePartitions(ctx, fg, rec, groups)
	require.NoError(t, err)

	assert.Equal(t, []string{"y=2024/m=01/d=02", "y=2024/m=01/d=03"}, staged.Suffixes)
	require.Len(t, staged.Files, 2)
	assert.True(t, strings.HasPrefix(staged.UploadRoot, "feature_store_stage/uploads/data/"))

	for i, pair := range staged.Files {
		suffix := staged.Suffixes[i]
		assert.True(t, strings.HasPrefix(pair.Stage, staged.UploadRoot+"/acme/crm/user/data/v1/"+suffix+"/part-0-"), pair.Stage)
		assert.True(t, strings.HasPrefix(pair.Prod, "feature_store/acme/crm/user/data/v1/"+suffix+"/part-0-"), pair.Prod)
		assert.True(t, strings.HasSuffix(pair.Prod, ".snappy.parquet"))

		data, err := store.Get(ctx, cfg.Storage.StageBucket, pair.Stage)
		require.NoError(t, err)
		got, err := columnar.ReadParquet(ctx, data, nil)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 1}[i], got.NumRows())
		got.Release()
	}

	// Nothing reaches production.
	assert.Empty(t, store.Keys(cfg.Storage.Bucket, "feature_store/"))
}

func TestStagePartitionsSplitsLargePartitions(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Parquet.MaxRowsPerFile = 2
	store := storage.NewMemoryStore()
	w := NewWriter(store, cfg, nil)

	rec := batch(t, 1704153600, 1704153601, 1704153602, 1704153603, 1704153604)
	defer rec.Release()
	groups, err := partition.Group(rec, "ts", partition.Seconds)
	require.NoError(t, err)

	staged, err := w.StagePartitions(context.Background(), fg, rec, groups)
	require.NoError(t, err)
	require.Len(t, staged.Files, 3)
	assert.Contains(t, staged.Files[2].Prod, "/part-2-")
}

func TestStagePartitionsRejectsExistingPartition(t *testing.T) {
	w, store, cfg := newWriter(t)
	ctx := context.Background()
	existing := w.Layout().DataFileKey(fg, "y=2024/m=01/d=03", "part-0-old.snappy.parquet")
	require.NoError(t, store.Put(ctx, cfg.Storage.Bucket, existing, []byte("x"), ""))

	rec := batch(t, 1704153600, 1704240000)
	defer rec.Release()
	groups, err := partition.Group(rec, "ts", partition.Seconds)
	require.NoError(t, err)

	_, err = w.StagePartitions(ctx, fg, rec, groups)
	assert.ErrorIs(t, err, errors.ErrPartitionAlreadyExists)
	assert.Empty(t, store.Keys(cfg.Storage.StageBucket, "feature_store_stage/"))
}

func TestAssertPartitionsAbsentIgnoresSiblingPrefix(t *testing.T) {
	w, store, cfg := newWriter(t)
	ctx := context.Background()
	// d=021 shares d=02 as a string prefix but is another folder.
	sibling := w.Layout().DataRoot(fg) + "/y=2024/m=01/d=021/x.parquet"
	require.NoError(t, store.Put(ctx, cfg.Storage.Bucket, sibling, []byte("x"), ""))

	assert.NoError(t, w.AssertPartitionsAbsent(ctx, fg, []string{"y=2024/m=01/d=02"}))
}
