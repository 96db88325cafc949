package storage

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/logger"
)

// S3Store implements ObjectStore on Amazon S3.
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	logger     *zap.Logger
}

// NewS3Store builds an S3 store from a loaded AWS configuration.
func NewS3Store(awsCfg aws.Config, cfg config.StorageConfig, log *zap.Logger) *S3Store {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = cfg.UploadPartSize
			u.Concurrency = cfg.UploadConcurrency
		}),
		downloader: manager.NewDownloader(client),
		logger:     logger.OrNop(log),
	}
}

// Put writes a small object in one request.
func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return remote(err, "put object", bucket, key)
	}

	s.logger.Debug("object written",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("bytes", len(body)))
	return nil
}

// Upload streams an object through the multipart uploader.
func (s *S3Store) Upload(ctx context.Context, bucket, key string, body io.Reader, metadata map[string]string) error {
	start := time.Now()
	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	})
	if err != nil {
		return remote(err, "upload object", bucket, key)
	}

	s.logger.Info("object uploaded",
		zap.String("location", result.Location),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Copy duplicates an object server side.
func (s *S3Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + srcKey),
	})
	if err != nil {
		return remote(err, "copy object", dstBucket, dstKey).
			WithDetail("source", srcBucket+"/"+srcKey)
	}

	s.logger.Info("object copied",
		zap.String("from", srcBucket+"/"+srcKey),
		zap.String("to", dstBucket+"/"+dstKey))
	return nil
}

// Exists probes a key with HeadObject.
func (s *S3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, remote(err, "head object", bucket, key)
}

// List pages through ListObjectsV2, stopping early once limit keys are found.
func (s *S3Store) List(ctx context.Context, bucket, prefix string, limit int) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	if limit > 0 && limit < 1000 {
		input.MaxKeys = aws.Int32(int32(limit))
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, remote(err, "list objects", bucket, prefix)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
			if limit > 0 && len(keys) >= limit {
				return keys, nil
			}
		}
	}
	return keys, nil
}

// Get downloads an object through the concurrent downloader.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeNotFound, "object not found").
				WithDetail("bucket", bucket).
				WithDetail("key", key)
		}
		return nil, remote(err, "get object", bucket, key)
	}
	return buf.Bytes(), nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *smithyhttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == 404
}

func remote(err error, op, bucket, key string) *errors.Error {
	return errors.WrapKind(err, errors.ErrRemoteCall, op).
		WithDetail("bucket", bucket).
		WithDetail("key", key)
}
