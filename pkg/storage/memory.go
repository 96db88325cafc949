package storage

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/featurestore/pkg/errors"
)

// MemoryStore is an in-process ObjectStore for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte

	// FailCopy, when set, is consulted before every copy; a non-nil
	// result fails the copy with a remote error.
	FailCopy func(srcKey, dstKey string) error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) bucket(name string) map[string][]byte {
	b, ok := m.buckets[name]
	if !ok {
		b = make(map[string][]byte)
		m.buckets[name] = b
	}
	return b
}

// Put stores a copy of body.
func (m *MemoryStore) Put(_ context.Context, bucket, key string, body []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(bucket)[key] = append([]byte(nil), body...)
	return nil
}

// Upload drains body into the store.
func (m *MemoryStore) Upload(ctx context.Context, bucket, key string, body io.Reader, _ map[string]string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return errors.WrapKind(err, errors.ErrRemoteCall, "upload object")
	}
	return m.Put(ctx, bucket, key, data, "")
}

// Copy duplicates an object.
func (m *MemoryStore) Copy(_ context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if m.FailCopy != nil {
		if err := m.FailCopy(srcKey, dstKey); err != nil {
			return errors.WrapKind(err, errors.ErrRemoteCall, "copy object")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.bucket(srcBucket)[srcKey]
	if !ok {
		return errors.Newf(errors.ErrRemoteCall, "copy source %s/%s does not exist", srcBucket, srcKey)
	}
	m.bucket(dstBucket)[dstKey] = append([]byte(nil), data...)
	return nil
}

// Exists probes a key.
func (m *MemoryStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.buckets[bucket][key]
	return ok, nil
}

// List returns matching keys in lexical order.
func (m *MemoryStore) List(_ context.Context, bucket, prefix string, limit int) ([]string, error) {
	keys := m.Keys(bucket, prefix)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// Get returns a copy of an object.
func (m *MemoryStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.buckets[bucket][key]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "object not found").
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}
	return append([]byte(nil), data...), nil
}

// Keys returns every key under prefix in lexical order.
func (m *MemoryStore) Keys(bucket, prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.buckets[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
