// Package storage provides the object store the feature store stages,
// promotes and probes objects in.
package storage

import (
	"context"
	"io"
)

// ObjectStore is the narrow object storage surface the feature store
// depends on.
type ObjectStore interface {
	// Put writes a small object in one request.
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
	// Upload streams an object, splitting it into parts when large.
	Upload(ctx context.Context, bucket, key string, body io.Reader, metadata map[string]string) error
	// Copy duplicates an object server side.
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	// Exists probes a single key without listing.
	Exists(ctx context.Context, bucket, key string) (bool, error)
	// List returns keys under prefix. A positive limit stops the listing
	// once that many keys are found.
	List(ctx context.Context, bucket, prefix string, limit int) ([]string, error)
	// Get reads an object fully.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// FolderPrefix returns prefix with exactly one trailing separator so that
// listing a folder never matches a sibling sharing its name as a prefix.
func FolderPrefix(prefix string) string {
	for len(prefix) > 0 && prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix + "/"
}

// FolderEmpty reports whether no object exists under the folder prefix.
func FolderEmpty(ctx context.Context, store ObjectStore, bucket, prefix string) (bool, error) {
	keys, err := store.List(ctx, bucket, FolderPrefix(prefix), 1)
	if err != nil {
		return false, err
	}
	return len(keys) == 0, nil
}
