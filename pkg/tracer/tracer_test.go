package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"hakawati-story-api/pkg/logger"
)

func TestInit_DisabledReturnsNoopShutdown(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewSampler_FollowsParentDecision(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.5, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := newSampler(tt.rate).Description()
		assert.Contains(t, desc, "ParentBased{root:"+tt.want)
	}
}

func TestWithLogIDs(t *testing.T) {
	ctx, traceID := WithLogIDs(context.Background())
	assert.Empty(t, traceID)
	assert.Nil(t, ctx.Value(logger.TraceIDKey))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "story.generate")
	defer span.End()

	ctx, traceID = WithLogIDs(ctx)
	sc := trace.SpanFromContext(ctx).SpanContext()
	assert.Equal(t, sc.TraceID().String(), traceID)
	assert.Equal(t, traceID, ctx.Value(logger.TraceIDKey))
	assert.Equal(t, sc.SpanID().String(), ctx.Value(logger.SpanIDKey))
}
