// Package stage writes schema descriptors and partition files to the
// staging area after checking that their production twins are absent.
// Nothing here writes to production; promotion is the orchestrator's job.
package stage

import (
	"bytes"
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/featurestore/pkg/action"
	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/formats/columnar"
	"github.com/ajitpratap0/featurestore/pkg/json"
	"github.com/ajitpratap0/featurestore/pkg/layout"
	"github.com/ajitpratap0/featurestore/pkg/logger"
	"github.com/ajitpratap0/featurestore/pkg/partition"
	"github.com/ajitpratap0/featurestore/pkg/schema"
	"github.com/ajitpratap0/featurestore/pkg/storage"
)

// Writer stages objects for promotion.
type Writer struct {
	store       storage.ObjectStore
	layout      layout.Layout
	parquet     *columnar.WriterConfig
	concurrency int
	mem         memory.Allocator
	logger      *zap.Logger
}

// NewWriter creates a writer over store.
func NewWriter(store storage.ObjectStore, cfg *config.Config, log *zap.Logger) *Writer {
	concurrency := cfg.Storage.UploadConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Writer{
		store:       store,
		layout:      layout.New(cfg),
		parquet:     columnar.WriterConfigFrom(cfg.Parquet),
		concurrency: concurrency,
		mem:         memory.DefaultAllocator,
		logger:      logger.OrNop(log),
	}
}

// Layout returns the storage layout the writer stages against.
func (w *Writer) Layout() layout.Layout {
	return w.layout
}

// StageSchema uploads the schema descriptor of fg to its staging key. It
// fails with ErrAlreadyExists when the production descriptor or the staged
// descriptor is already present.
func (w *Writer) StageSchema(ctx context.Context, fg layout.FeatureGroup, s schema.Schema) (action.PathPair, error) {
	pair := action.PathPair{
		Stage: w.layout.SchemaStageKey(fg),
		Prod:  w.layout.SchemaKey(fg),
	}

	if err := w.assertAbsent(ctx, w.layout.Bucket, pair.Prod, fg); err != nil {
		return action.PathPair{}, err
	}
	if err := w.assertAbsent(ctx, w.layout.StageBucket, pair.Stage, fg); err != nil {
		return action.PathPair{}, err
	}

	body, err := json.Marshal(s)
	if err != nil {
		return action.PathPair{}, errors.Wrap(err, errors.ErrorTypeInternal, "encode schema descriptor")
	}
	if err := w.store.Put(ctx, w.layout.StageBucket, pair.Stage, body, "application/json"); err != nil {
		return action.PathPair{}, err
	}

	w.logger.Info("schema staged",
		zap.String("feature_group", fg.String()),
		zap.String("stage_key", pair.Stage))
	return pair, nil
}

func (w *Writer) assertAbsent(ctx context.Context, bucket, key string, fg layout.FeatureGroup) error {
	exists, err := w.store.Exists(ctx, bucket, key)
	if err != nil {
		return err
	}
	if exists {
		return errors.Newf(errors.ErrAlreadyExists, "feature group %s already exists", fg).
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}
	return nil
}

// LoadSchema reads the production schema descriptor of fg.
func (w *Writer) LoadSchema(ctx context.Context, fg layout.FeatureGroup) (schema.Schema, error) {
	data, err := w.store.Get(ctx, w.layout.Bucket, w.layout.SchemaKey(fg))
	if err != nil {
		return schema.Schema{}, err
	}
	var s schema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return schema.Schema{}, errors.Wrap(err, errors.ErrorTypeData, "decode schema descriptor").
			WithDetail("feature_group", fg.String())
	}
	return s, nil
}

// AssertPartitionsAbsent fails with ErrPartitionAlreadyExists for the first
// suffix whose production folder holds any object.
func (w *Writer) AssertPartitionsAbsent(ctx context.Context, fg layout.FeatureGroup, suffixes []string) error {
	for _, suffix := range suffixes {
		prefix := w.layout.PartitionPrefix(fg, suffix)
		empty, err := storage.FolderEmpty(ctx, w.store, w.layout.Bucket, prefix)
		if err != nil {
			return err
		}
		if !empty {
			return errors.Newf(errors.ErrPartitionAlreadyExists, "partition %s of %s already exists", suffix, fg).
				WithDetail("partition", suffix).
				WithDetail("prefix", prefix)
		}
	}
	return nil
}

// Staged describes one staged upload.
type Staged struct {
	UploadRoot string
	Suffixes   []string
	Files      []action.PathPair
}

// StagePartitions encodes the rows of each partition group of rec as
// Parquet and uploads the files under a fresh staging root. Every
// partition is checked absent from production before anything is
// uploaded. Files are ordered by partition, then by file number.
func (w *Writer) StagePartitions(ctx context.Context, fg layout.FeatureGroup, rec arrow.Record, groups partition.Groups) (*Staged, error) {
	suffixes := groups.Suffixes()
	if err := w.AssertPartitionsAbsent(ctx, fg, suffixes); err != nil {
		return nil, err
	}

	parts, err := partition.Split(rec, groups, w.mem)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()

	staged := &Staged{
		UploadRoot: w.layout.StageUploadRoot(),
		Suffixes:   suffixes,
	}
	uploadID := uuid.NewString()
	files := make([][]action.PathPair, len(suffixes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for i, suffix := range suffixes {
		i, suffix := i, suffix
		g.Go(func() error {
			encoded, err := columnar.EncodeParquet(parts[suffix], w.parquet)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "encode partition "+suffix)
			}

			pairs := make([]action.PathPair, len(encoded))
			for n, body := range encoded {
				name := columnar.FileName(n, uploadID, w.parquet.Compression)
				pairs[n] = action.PathPair{
					Stage: w.layout.StagePartitionPrefix(staged.UploadRoot, fg, suffix) + "/" + name,
					Prod:  w.layout.DataFileKey(fg, suffix, name),
				}
				meta := map[string]string{
					"feature-group": fg.String(),
					"partition":     suffix,
				}
				if err := w.store.Upload(gctx, w.layout.StageBucket, pairs[n].Stage, bytes.NewReader(body), meta); err != nil {
					return err
				}
			}

			files[i] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, pairs := range files {
		staged.Files = append(staged.Files, pairs...)
	}

	w.logger.Info("partitions staged",
		zap.String("feature_group", fg.String()),
		zap.String("upload_root", staged.UploadRoot),
		zap.Int("partitions", len(suffixes)),
		zap.Int("files", len(staged.Files)))
	return staged, nil
}
