package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single engine
// operation (Store, Read, List, multipart Complete, ...).
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Operation string    // engine operation name (Store, Read, ListParts, ...)
	Bucket    string    // bucket name
	Key       string    // object key, empty for bucket-level operations
	RequestID string    // caller-supplied request/correlation ID
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for an operation against a bucket.
func NewLogContext(operation, bucket string) *LogContext {
	return &LogContext{
		Operation: operation,
		Bucket:    bucket,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Operation: lc.Operation,
		Bucket:    lc.Bucket,
		Key:       lc.Key,
		RequestID: lc.RequestID,
		StartTime: lc.StartTime,
	}
}

// WithKey returns a copy with the object key set
func (lc *LogContext) WithKey(key string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Key = key
	}
	return clone
}

// WithRequestID returns a copy with the request ID set
func (lc *LogContext) WithRequestID(requestID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RequestID = requestID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
