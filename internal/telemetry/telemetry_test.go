package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "lamina", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, Bucket("my-bucket"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("Operation", func(t *testing.T) {
		attr := Operation("Store")
		assert.Equal(t, AttrOperation, string(attr.Key))
		assert.Equal(t, "Store", attr.Value.AsString())
	})

	t.Run("RequestID", func(t *testing.T) {
		attr := RequestID("req-1")
		assert.Equal(t, AttrRequestID, string(attr.Key))
		assert.Equal(t, "req-1", attr.Value.AsString())
	})

	t.Run("Bucket", func(t *testing.T) {
		attr := Bucket("my-bucket")
		assert.Equal(t, AttrBucket, string(attr.Key))
		assert.Equal(t, "my-bucket", attr.Value.AsString())
	})

	t.Run("StorageKey", func(t *testing.T) {
		attr := StorageKey("path/to/object")
		assert.Equal(t, AttrKey, string(attr.Key))
		assert.Equal(t, "path/to/object", attr.Value.AsString())
	})

	t.Run("UploadID", func(t *testing.T) {
		attr := UploadID("upload-xyz")
		assert.Equal(t, AttrUploadID, string(attr.Key))
		assert.Equal(t, "upload-xyz", attr.Value.AsString())
	})

	t.Run("PartNumber", func(t *testing.T) {
		attr := PartNumber(3)
		assert.Equal(t, AttrPartNumber, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("ETag", func(t *testing.T) {
		attr := ETag("\"abc123\"")
		assert.Equal(t, AttrETag, string(attr.Key))
		assert.Equal(t, "\"abc123\"", attr.Value.AsString())
	})

	t.Run("Offset", func(t *testing.T) {
		attr := Offset(1024)
		assert.Equal(t, AttrOffset, string(attr.Key))
		assert.Equal(t, int64(1024), attr.Value.AsInt64())
	})

	t.Run("Count", func(t *testing.T) {
		attr := Count(4096)
		assert.Equal(t, AttrCount, string(attr.Key))
		assert.Equal(t, int64(4096), attr.Value.AsInt64())
	})

	t.Run("Size", func(t *testing.T) {
		attr := Size(1048576)
		assert.Equal(t, AttrSize, string(attr.Key))
		assert.Equal(t, int64(1048576), attr.Value.AsInt64())
	})

	t.Run("BytesRead", func(t *testing.T) {
		attr := BytesRead(512)
		assert.Equal(t, AttrBytesRead, string(attr.Key))
		assert.Equal(t, int64(512), attr.Value.AsInt64())
	})

	t.Run("BytesWritten", func(t *testing.T) {
		attr := BytesWritten(512)
		assert.Equal(t, AttrBytesWrite, string(attr.Key))
		assert.Equal(t, int64(512), attr.Value.AsInt64())
	})

	t.Run("ChecksumAlgorithm", func(t *testing.T) {
		attr := ChecksumAlgorithm("sha256")
		assert.Equal(t, AttrChecksumAlgorithm, string(attr.Key))
		assert.Equal(t, "sha256", attr.Value.AsString())
	})

	t.Run("Attempt", func(t *testing.T) {
		attr := Attempt(2)
		assert.Equal(t, AttrAttempt, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("MaxRetries", func(t *testing.T) {
		attr := MaxRetries(5)
		assert.Equal(t, AttrMaxRetries, string(attr.Key))
		assert.Equal(t, int64(5), attr.Value.AsInt64())
	})

	t.Run("StoreType", func(t *testing.T) {
		attr := StoreType("filesystem")
		assert.Equal(t, AttrStoreType, string(attr.Key))
		assert.Equal(t, "filesystem", attr.Value.AsString())
	})

	t.Run("LockScope", func(t *testing.T) {
		attr := LockScope("distributed")
		assert.Equal(t, AttrLockScope, string(attr.Key))
		assert.Equal(t, "distributed", attr.Value.AsString())
	})
}

func TestStartObjectSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartObjectSpan(ctx, SpanObjectStore, "my-bucket", "path/to/object")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartObjectSpan(ctx, SpanObjectRead, "my-bucket", "path/to/object", Offset(0), Count(4096))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartMultipartSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartMultipartSpan(ctx, SpanMultipartPart, "my-bucket", "path/to/object", "upload-1")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartMultipartSpan(ctx, SpanMultipartPart, "my-bucket", "path/to/object", "upload-1", PartNumber(2))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartMetadataSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartMetadataSpan(ctx, SpanMetaGet, "my-bucket", "path/to/object")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartMetadataSpan(ctx, SpanMetaPut, "my-bucket", "path/to/object", StoreType("database"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartRetrySpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartRetrySpan(ctx, "rename", 1, 5)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartRetrySpan(ctx, "rename", 2, 5, ErrClass("transient"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
