package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/ajitpratap0/featurestore/pkg/errors"
)

// MemoryCatalog is an in-process Catalog for tests and local runs.
type MemoryCatalog struct {
	mu         sync.Mutex
	tables     map[string]CreateTableParams
	partitions map[string]map[string]PartitionInput

	// CreateTableCalls and BatchCalls count mutation attempts.
	CreateTableCalls int
	BatchCalls       int
	// FailCreate, when set, fails every CreateTable with a remote error.
	FailCreate error
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		tables:     make(map[string]CreateTableParams),
		partitions: make(map[string]map[string]PartitionInput),
	}
}

func tableKey(db, table string) string { return db + "." + table }

// CreateTable records a table, rejecting an existing name.
func (m *MemoryCatalog) CreateTable(_ context.Context, params CreateTableParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateTableCalls++

	if m.FailCreate != nil {
		return errors.WrapKind(m.FailCreate, errors.ErrRemoteCall, "create table")
	}
	key := tableKey(params.DatabaseName, params.TableInput.Name)
	if _, ok := m.tables[key]; ok {
		return errors.Newf(errors.ErrAlreadyExists, "table %s already exists", key)
	}
	m.tables[key] = params
	m.partitions[key] = make(map[string]PartitionInput)
	return nil
}

// BatchAddPartitions records partitions. The batch is all-or-nothing.
func (m *MemoryCatalog) BatchAddPartitions(_ context.Context, params AddPartitionsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchCalls++

	if len(params.PartitionInputList) > 100 {
		return errors.Newf(errors.ErrRemoteCall, "batch of %d partitions exceeds 100", len(params.PartitionInputList))
	}
	key := tableKey(params.DatabaseName, params.TableName)
	parts, ok := m.partitions[key]
	if !ok {
		return errors.Newf(errors.ErrRemoteCall, "table %s not found", key)
	}
	for _, p := range params.PartitionInputList {
		if _, dup := parts[strings.Join(p.Values, "/")]; dup {
			return errors.Newf(errors.ErrPartitionAlreadyExists, "partition %v of %s already exists", p.Values, key)
		}
	}
	for _, p := range params.PartitionInputList {
		parts[strings.Join(p.Values, "/")] = p
	}
	return nil
}

// Table returns a recorded table.
func (m *MemoryCatalog) Table(db, table string) (CreateTableParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableKey(db, table)]
	return t, ok
}

// Partitions returns the partitions of a table keyed by y/m/d values.
func (m *MemoryCatalog) Partitions(db, table string) map[string]PartitionInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]PartitionInput)
	for k, v := range m.partitions[tableKey(db, table)] {
		out[k] = v
	}
	return out
}
