package action

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/featurestore/pkg/catalog"
	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/json"
	"github.com/ajitpratap0/featurestore/pkg/partition"
	"github.com/ajitpratap0/featurestore/pkg/query"
	"github.com/ajitpratap0/featurestore/pkg/schema"
)

func testSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Column{Name: "name", Type: schema.String},
		schema.Column{Name: "ts", Type: schema.BigInt},
	)
	require.NoError(t, err)
	return s.WithTime("ts", partition.Seconds)
}

func TestPathPairEncodesAsArray(t *testing.T) {
	data, err := json.Marshal(PathPair{Stage: "stage/a", Prod: "prod/a"})
	require.NoError(t, err)
	assert.JSONEq(t, `["stage/a","prod/a"]`, string(data))

	var p PathPair
	require.NoError(t, json.Unmarshal([]byte(`["s","p"]`), &p))
	assert.Equal(t, PathPair{Stage: "s", Prod: "p"}, p)

	assert.Error(t, json.Unmarshal([]byte(`["only"]`), &p))
}

func TestCreateRequestEnvelope(t *testing.T) {
	s := testSchema(t)
	params := catalog.NewCreateTableParams("feature_store", "acme_crm_user_v1", "s3://data-lake/fs/acme/crm/user/data/v1/", s)

	req, err := NewCreate(params, s, PathPair{Stage: "stage/schema.json", Prod: "prod/schema.json"})
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "CREATE", generic["action"])
	args := generic["args"].(map[string]interface{})
	assert.Contains(t, args, "schema")
	assert.Contains(t, args, "params")
	assert.Equal(t, []interface{}{[]interface{}{"stage/schema.json", "prod/schema.json"}}, args["paths"])

	var decoded Request
	require.NoError(t, json.Unmarshal(data, &decoded))

	var got catalog.CreateTableParams
	require.NoError(t, decoded.DecodeParams(&got))
	assert.Equal(t, params, got)

	gotSchema, err := decoded.DecodeSchema()
	require.NoError(t, err)
	require.NotNil(t, gotSchema)
	assert.Equal(t, s, *gotSchema)
}

func TestHasArgs(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"action":"UPLOAD"}`), &req))
	assert.False(t, req.HasArgs())

	require.NoError(t, json.Unmarshal([]byte(`{"action":"UPLOAD","args":{}}`), &req))
	assert.False(t, req.HasArgs())

	req, err := NewDumpStatus("q-1")
	require.NoError(t, err)
	assert.True(t, req.HasArgs())
}

func TestResponse(t *testing.T) {
	ok := OK(DumpPayload{QueryExecutionID: "q-1"})
	assert.True(t, ok.Succeeded())
	assert.NoError(t, ok.Err())

	var p DumpPayload
	require.NoError(t, ok.Decode(&p))
	assert.Equal(t, "q-1", p.QueryExecutionID)

	failed := Error("Illegal Action", nil)
	assert.False(t, failed.Succeeded())
	assert.True(t, errors.IsRemote(failed.Err()))
	assert.Error(t, failed.Decode(&p))
}

type echoHandler struct {
	got Request
}

func (h *echoHandler) Handle(_ context.Context, req Request) Response {
	h.got = req
	return OK(query.Report{QueryID: "q-1", State: query.Running})
}

func TestLocalDispatchRoundTrips(t *testing.T) {
	h := &echoHandler{}
	req, err := NewDumpStatus("q-1")
	require.NoError(t, err)

	resp, err := Local(h).Dispatch(context.Background(), req)
	require.NoError(t, err)

	var params StatusParams
	require.NoError(t, h.got.DecodeParams(&params))
	assert.Equal(t, "q-1", params.QueryID)

	var report StatusReport
	require.NoError(t, resp.Decode(&report))
	assert.Equal(t, query.Running, report.State)
	assert.Nil(t, report.Schema)
}

type fakeLambda struct {
	in  *lambda.InvokeInput
	out *lambda.InvokeOutput
	err error
}

func (f *fakeLambda) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestLambdaDispatcher(t *testing.T) {
	req, err := NewDumpStatus("q-1")
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		api := &fakeLambda{out: &lambda.InvokeOutput{
			StatusCode: 200,
			Payload:    []byte(`{"status":"OK","payload":{"QueryExecutionId":"q-9"}}`),
		}}
		resp, err := NewLambdaDispatcher(api, "feature-store-lambda", zaptest.NewLogger(t)).Dispatch(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "feature-store-lambda", aws.ToString(api.in.FunctionName))
		assert.True(t, resp.Succeeded())

		var sent Request
		require.NoError(t, json.Unmarshal(api.in.Payload, &sent))
		assert.Equal(t, DumpStatus, sent.Action)
	})

	t.Run("function error", func(t *testing.T) {
		api := &fakeLambda{out: &lambda.InvokeOutput{StatusCode: 200, FunctionError: aws.String("Unhandled")}}
		_, err := NewLambdaDispatcher(api, "f", nil).Dispatch(context.Background(), req)
		assert.True(t, errors.IsRemote(err))
	})

	t.Run("status", func(t *testing.T) {
		api := &fakeLambda{out: &lambda.InvokeOutput{StatusCode: 500}}
		_, err := NewLambdaDispatcher(api, "f", nil).Dispatch(context.Background(), req)
		assert.True(t, errors.IsRemote(err))
	})

	t.Run("transport", func(t *testing.T) {
		api := &fakeLambda{err: goerrors.New("timeout")}
		_, err := NewLambdaDispatcher(api, "f", nil).Dispatch(context.Background(), req)
		assert.True(t, errors.IsRemote(err))
	})
}
