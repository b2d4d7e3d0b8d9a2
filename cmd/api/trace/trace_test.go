package trace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"assist-chat/cmd/api/trace"
)

func TestSpanSequenceIncrementsPerCall(t *testing.T) {
	ctx := trace.WithRequestAndSpan(context.Background(), "req-1", 0)

	assert.Equal(t, "0", trace.CurrentSpanID(ctx))

	reqID, span := trace.NextSpanID(ctx)
	assert.Equal(t, "req-1", reqID)
	assert.Equal(t, "1", span)

	_, span = trace.NextSpanID(ctx)
	assert.Equal(t, "2", span)
	assert.Equal(t, "2", trace.CurrentSpanID(ctx))
}

func TestSessionIDRoundTrip(t *testing.T) {
	ctx := trace.WithRequestAndSpan(context.Background(), "req-2", 0)
	assert.Empty(t, trace.SessionIDFromContext(ctx))

	trace.SetSessionID(ctx, "sess-1")
	assert.Equal(t, "sess-1", trace.SessionIDFromContext(ctx))
}

func TestWithoutTraceFallsBack(t *testing.T) {
	ctx := context.Background()

	reqID, span := trace.NextSpanID(ctx)
	assert.NotEmpty(t, reqID)
	assert.Equal(t, "1", span)
	assert.Empty(t, trace.RequestIDFromContext(ctx))

	trace.SetSessionID(ctx, "ignored")
	assert.Empty(t, trace.SessionIDFromContext(ctx))
}
