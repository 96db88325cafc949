package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/featurestore/pkg/config"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestSpanRecordsOutcome(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartSpan(context.Background(), "orchestrator.UPLOAD")
	span.SetAttribute("files", 3)
	span.SetAttribute("table", "acme_crm_user_v1")
	span.End(nil)

	_, failed := StartSpan(context.Background(), "orchestrator.CREATE")
	failed.End(errors.New("catalog unavailable"))

	spans := rec.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "orchestrator.UPLOAD", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Len(t, spans[0].Attributes(), 2)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "catalog unavailable", spans[1].Status().Description)
}

func TestSpanFromContext(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "featurestore.append")
	inner := SpanFromContext(ctx)
	assert.Same(t, span, inner)
	inner.SetAttribute("partitions", 2)
	inner.AddEvent("staged")
	span.End(nil)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("partitions", 2))
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "staged", spans[0].Events()[0].Name)

	orphan := SpanFromContext(context.Background())
	require.NotNil(t, orphan)
	orphan.SetAttribute("files", 1)
	orphan.AddEvent("ignored")
	orphan.End(nil)
	assert.Len(t, rec.Ended(), 1)
}

func TestInitializeDisabled(t *testing.T) {
	shutdown, err := Initialize(config.TracingConfig{Enabled: false}, "test", nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitializeExportsToWriter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := Initialize(config.TracingConfig{Enabled: true, ServiceName: "featurestore-test"}, "test", &buf)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "client.create")
	span.End(nil)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "client.create")
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "success", Status(nil))
	assert.Equal(t, "error", Status(errors.New("x")))
}
