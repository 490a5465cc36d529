package otel

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/mrzor/claude-diagnose/internal/config"
)

func TestTraceIDFromRunID_UUID(t *testing.T) {
	u := uuid.New()
	id := TraceIDFromRunID(u.String())
	assert.Equal(t, [16]byte(u), [16]byte(id))
}

func TestTraceIDFromRunID_Hashed(t *testing.T) {
	a := TraceIDFromRunID("not-a-uuid")
	b := TraceIDFromRunID("not-a-uuid")
	c := TraceIDFromRunID("something-else")

	assert.True(t, a.IsValid())
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestIDGenerator_UsesRunTraceID(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sr),
		sdktrace.WithIDGenerator(NewIDGenerator()),
	)
	runID := uuid.NewString()

	ctx, root := tp.Tracer("test").Start(WithRunTraceID(context.Background(), runID), "root")
	_, child := tp.Tracer("test").Start(ctx, "child")
	child.End()
	root.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	want := TraceIDFromRunID(runID)
	for _, s := range spans {
		assert.Equal(t, want, s.SpanContext().TraceID())
	}
	assert.NotEqual(t, spans[0].SpanContext().SpanID(), spans[1].SpanContext().SpanID())
}

func TestIDGenerator_RandomWithoutRunID(t *testing.T) {
	g := NewIDGenerator()
	t1, s1 := g.NewIDs(context.Background())
	t2, s2 := g.NewIDs(context.Background())

	assert.True(t, t1.IsValid())
	assert.True(t, s1.IsValid())
	assert.NotEqual(t, t1, t2)
	assert.NotEqual(t, s1, s2)
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions("collector:4318"), 3)
	assert.Len(t, exporterOptions("https://collector.example.com/v1/traces"), 2)
}

func TestInitProvider(t *testing.T) {
	cfg := &config.OTELConfig{
		ServiceName: "claude-diagnose",
		Endpoint:    "localhost:4318",
		Attributes:  "deployment.environment=test",
	}

	tp, err := InitProvider(context.Background(), cfg, "dev", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, tp)

	// Nothing was exported, so shutdown does not touch the network.
	assert.NoError(t, ShutdownProvider(context.Background(), tp))
	assert.NoError(t, ShutdownProvider(context.Background(), nil))
}
