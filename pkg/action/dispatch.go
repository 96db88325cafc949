package action

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.uber.org/zap"

	"github.com/ajitpratap0/featurestore/pkg/errors"
	"github.com/ajitpratap0/featurestore/pkg/json"
	"github.com/ajitpratap0/featurestore/pkg/logger"
)

// Dispatcher delivers a request to the orchestrator. A returned error
// means the transport failed; an action failure is a response with
// StatusError.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (Response, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, req Request) (Response, error)

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Handler executes requests.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// Local dispatches to an in-process handler. Requests and responses pass
// through their wire encoding so that both transports see the same bytes.
func Local(h Handler) Dispatcher {
	return DispatcherFunc(func(ctx context.Context, req Request) (Response, error) {
		var wire Request
		if err := roundTrip(req, &wire); err != nil {
			return Response{}, err
		}
		var out Response
		if err := roundTrip(h.Handle(ctx, wire), &out); err != nil {
			return Response{}, err
		}
		return out, nil
	})
}

func roundTrip(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "encode envelope")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "decode envelope")
	}
	return nil
}

// LambdaAPI is the subset of the Lambda client the dispatcher uses.
type LambdaAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, opts ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaDispatcher invokes the orchestrator function synchronously.
type LambdaDispatcher struct {
	client   LambdaAPI
	function string
	logger   *zap.Logger
}

// NewLambdaDispatcher creates a dispatcher for the named function.
func NewLambdaDispatcher(client LambdaAPI, function string, log *zap.Logger) *LambdaDispatcher {
	return &LambdaDispatcher{client: client, function: function, logger: logger.OrNop(log)}
}

// NewLambdaDispatcherFromConfig builds the Lambda client from an AWS configuration.
func NewLambdaDispatcherFromConfig(awsCfg aws.Config, function string, log *zap.Logger) *LambdaDispatcher {
	return NewLambdaDispatcher(lambda.NewFromConfig(awsCfg), function, log)
}

// Dispatch invokes the function and decodes its response envelope.
func (d *LambdaDispatcher) Dispatch(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, errors.Wrap(err, errors.ErrorTypeInternal, "encode request")
	}

	out, err := d.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(d.function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return Response{}, errors.WrapKind(err, errors.ErrRemoteCall, "invoke orchestrator").
			WithDetail("function", d.function)
	}
	if out.StatusCode != 200 {
		return Response{}, errors.Newf(errors.ErrRemoteCall, "invoke orchestrator: status %d", out.StatusCode).
			WithDetail("function", d.function)
	}
	if out.FunctionError != nil {
		return Response{}, errors.Newf(errors.ErrRemoteCall, "orchestrator %s: %s",
			aws.ToString(out.FunctionError), string(out.Payload)).
			WithDetail("function", d.function)
	}

	var resp Response
	if err := json.Unmarshal(out.Payload, &resp); err != nil {
		return Response{}, errors.WrapKind(err, errors.ErrRemoteCall, "decode orchestrator response")
	}

	d.logger.Debug("orchestrator responded",
		zap.String("action", string(req.Action)),
		zap.String("status", resp.Status))
	return resp, nil
}
