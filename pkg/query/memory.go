package query

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ajitpratap0/featurestore/pkg/errors"
)

// MemoryEngine is a scripted in-process Engine for tests and local runs.
// Every execution walks Progression, one state per status probe, and then
// stays in the last state.
type MemoryEngine struct {
	mu      sync.Mutex
	seq     int
	queries map[string]*memQuery

	Progression []State
	Columns     []ColumnDef

	// FailStart and FailStatus, when set, fail the matching calls.
	FailStart  error
	FailStatus error

	SchemaCalls int
}

type memQuery struct {
	in     StartInput
	probes int
}

// NewMemoryEngine creates an engine whose executions run, then succeed.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		queries:     make(map[string]*memQuery),
		Progression: []State{Running, Succeeded},
	}
}

// StartQuery records the submission.
func (m *MemoryEngine) StartQuery(_ context.Context, in StartInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStart != nil {
		return "", errors.WrapKind(m.FailStart, errors.ErrRemoteCall, "start query execution")
	}
	m.seq++
	id := fmt.Sprintf("query-%04d", m.seq)
	m.queries[id] = &memQuery{in: in}
	return id, nil
}

// GetStatus advances the execution one step.
func (m *MemoryEngine) GetStatus(_ context.Context, id string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStatus != nil {
		return Status{}, errors.WrapKind(m.FailStatus, errors.ErrRemoteCall, "get query execution")
	}
	q, ok := m.queries[id]
	if !ok {
		return Status{}, errors.Newf(errors.ErrRemoteCall, "query %s not found", id)
	}

	state := Submitted
	if n := len(m.Progression); n > 0 {
		i := q.probes
		if i >= n {
			i = n - 1
		}
		state = m.Progression[i]
	}
	q.probes++
	return Status{State: state, ResultLocation: m.resultLocation(id, q)}, nil
}

// GetResultSchema returns Columns.
func (m *MemoryEngine) GetResultSchema(_ context.Context, id string) ([]ColumnDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SchemaCalls++
	if _, ok := m.queries[id]; !ok {
		return nil, errors.Newf(errors.ErrRemoteCall, "query %s not found", id)
	}
	return append([]ColumnDef(nil), m.Columns...), nil
}

// Submission returns what a query was started with.
func (m *MemoryEngine) Submission(id string) (StartInput, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queries[id]
	if !ok {
		return StartInput{}, false
	}
	return q.in, true
}

// ResultLocation is where the execution's CSV result is reported to live.
func (m *MemoryEngine) ResultLocation(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queries[id]
	if !ok {
		return ""
	}
	return m.resultLocation(id, q)
}

func (m *MemoryEngine) resultLocation(id string, q *memQuery) string {
	return strings.TrimRight(q.in.OutputLocation, "/") + "/" + id + ".csv"
}
