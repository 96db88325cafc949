// Package action defines the request and response envelopes exchanged
// with the commit orchestrator and the transports that carry them.
package action

import (
	"strings"

	"github.com/ajitpratap0/featurestore/pkg/catalog"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/json"
	"github.com/ajitpratap0/featurestore/pkg/query"
	"github.com/ajitpratap0/featurestore/pkg/schema"
)

// Action names an orchestrator operation.
type Action string

// Orchestrator actions.
const (
	Create          Action = "CREATE"
	CreatePartition Action = "CREATE_PARTITION"
	Upload          Action = "UPLOAD"
	Dump            Action = "DUMP"
	DumpStatus      Action = "DUMP_STATUS"
)

// Response statuses.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// PathPair is a staged object key and the production key it is promoted to.
// It encodes as a two element array.
type PathPair struct {
	Stage string
	Prod  string
}

// MarshalJSON encodes the pair as [stage, prod].
func (p PathPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Stage, p.Prod})
}

// UnmarshalJSON decodes [stage, prod].
func (p *PathPair) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.New(errors.ErrorTypeValidation, "path pair must hold exactly two keys")
	}
	p.Stage, p.Prod = pair[0], pair[1]
	return nil
}

// Args carries the action arguments.
type Args struct {
	Schema json.RawMessage `json:"schema"`
	Params json.RawMessage `json:"params"`
	Paths  []PathPair      `json:"paths"`
}

func (a *Args) empty() bool {
	return a == nil || (isNull(a.Schema) && isNull(a.Params) && len(a.Paths) == 0)
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// Request is the action envelope.
type Request struct {
	Action Action `json:"action"`
	Args   *Args  `json:"args"`
}

// HasArgs reports whether any argument was supplied.
func (r Request) HasArgs() bool {
	return !r.Args.empty()
}

// DecodeParams decodes the params argument into v.
func (r Request) DecodeParams(v interface{}) error {
	if r.Args == nil || isNull(r.Args.Params) {
		return errors.New(errors.ErrorTypeValidation, "missing params")
	}
	if err := json.Unmarshal(r.Args.Params, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "decode params")
	}
	return nil
}

// DecodeSchema decodes the schema argument, if any.
func (r Request) DecodeSchema() (*schema.Schema, error) {
	if r.Args == nil || isNull(r.Args.Schema) {
		return nil, nil
	}
	var s schema.Schema
	if err := json.Unmarshal(r.Args.Schema, &s); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "decode schema")
	}
	return &s, nil
}

func newRequest(a Action, params interface{}, s *schema.Schema, paths []PathPair) (Request, error) {
	args := &Args{Paths: paths}
	var err error
	if args.Params, err = json.Marshal(params); err != nil {
		return Request{}, errors.Wrap(err, errors.ErrorTypeInternal, "encode params")
	}
	if s != nil {
		if args.Schema, err = json.Marshal(s); err != nil {
			return Request{}, errors.Wrap(err, errors.ErrorTypeInternal, "encode schema")
		}
	}
	return Request{Action: a, Args: args}, nil
}

// NewCreate builds the request promoting a schema descriptor and creating
// the catalog table.
func NewCreate(params catalog.CreateTableParams, s schema.Schema, schemaPath PathPair) (Request, error) {
	return newRequest(Create, params, &s, []PathPair{schemaPath})
}

// NewUpload builds the request promoting staged partition files and adding
// their partitions.
func NewUpload(params catalog.AddPartitionsParams, s schema.Schema, files []PathPair) (Request, error) {
	return newRequest(Upload, params, &s, files)
}

// NewCreatePartition builds the request adding partitions over data that
// is already in place.
func NewCreatePartition(params catalog.AddPartitionsParams) (Request, error) {
	return newRequest(CreatePartition, params, nil, nil)
}

// NewDump builds the request starting a query.
func NewDump(in query.StartInput) (Request, error) {
	return newRequest(Dump, in, nil, nil)
}

// StatusParams are the DUMP_STATUS params.
type StatusParams struct {
	QueryID string `json:"query_id"`
}

// NewDumpStatus builds the request reporting on a query.
func NewDumpStatus(queryID string) (Request, error) {
	return newRequest(DumpStatus, StatusParams{QueryID: queryID}, nil, nil)
}

// DumpPayload is the DUMP response payload.
type DumpPayload struct {
	QueryExecutionID string `json:"QueryExecutionId"`
}

// CommitPayload is the payload of the catalog mutating actions.
type CommitPayload struct {
	Database   string `json:"database"`
	Table      string `json:"table"`
	Promoted   int    `json:"promoted"`
	Partitions int    `json:"partitions"`
}

// Response is the uniform response envelope.
type Response struct {
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OK wraps payload in a successful response.
func OK(payload interface{}) Response {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Error("encode payload", err)
	}
	return Response{Status: StatusOK, Payload: raw}
}

// Error builds a failed response.
func Error(message string, err error) Response {
	if err != nil {
		message += ": " + err.Error()
	}
	return Response{Status: StatusError, Message: message}
}

// Succeeded reports whether the action succeeded.
func (r Response) Succeeded() bool {
	return r.Status == StatusOK
}

// Decode decodes the payload into v.
func (r Response) Decode(v interface{}) error {
	if isNull(r.Payload) {
		return errors.New(errors.ErrorTypeData, "response has no payload")
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "decode payload")
	}
	return nil
}

// Err converts a failed response to a remote error.
func (r Response) Err() error {
	if r.Succeeded() {
		return nil
	}
	return errors.Newf(errors.ErrRemoteCall, "orchestrator: %s", r.Message)
}

// StatusReport is the DUMP_STATUS payload.
type StatusReport = query.Report
