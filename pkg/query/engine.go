// Package query submits SQL to the query engine and tracks executions to
// completion with a bounded polling policy.
package query

import (
	"context"
)

// State is the lifecycle state of a query execution.
type State string

// Execution states. Unknown is synthetic: the state could not be observed.
const (
	Submitted State = "SUBMITTED"
	Queued    State = "QUEUED"
	Running   State = "RUNNING"
	Succeeded State = "SUCCEEDED"
	Failed    State = "FAILED"
	Cancelled State = "CANCELLED"
	Unknown   State = "UNKNOWN"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Cancelled
}

// Column nullability values reported by the engine.
const (
	NotNull         = "NOT_NULL"
	Nullable        = "NULLABLE"
	NullableUnknown = "UNKNOWN"
)

// ColumnDef describes one result column.
type ColumnDef struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable string `json:"nullable"`
}

// StartInput is a query submission.
type StartInput struct {
	QueryString    string `json:"QueryString"`
	Database       string `json:"Database"`
	OutputLocation string `json:"OutputLocation"`
	WorkGroup      string `json:"WorkGroup,omitempty"`
}

// Status is one observation of an execution.
type Status struct {
	State          State
	ResultLocation string
	Reason         string
}

// Engine is the query engine surface.
type Engine interface {
	// StartQuery submits a query and returns its execution id.
	StartQuery(ctx context.Context, in StartInput) (string, error)
	// GetStatus probes an execution once.
	GetStatus(ctx context.Context, id string) (Status, error)
	// GetResultSchema reads the column metadata of a succeeded execution.
	GetResultSchema(ctx context.Context, id string) ([]ColumnDef, error)
}
