package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for engine operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Operation identity
	// ========================================================================
	AttrOperation = "lamina.operation" // Engine operation name: Store, Read, Complete, ...
	AttrRequestID = "lamina.request_id"
	AttrStatus    = "lamina.status" // success / error
	AttrErrorCode = "lamina.error_code"

	// ========================================================================
	// Object addressing
	// ========================================================================
	AttrBucket     = "storage.bucket"
	AttrKey        = "storage.key"
	AttrUploadID   = "storage.upload_id"
	AttrPartNumber = "storage.part_number"
	AttrETag       = "storage.etag"

	// ========================================================================
	// I/O
	// ========================================================================
	AttrOffset      = "io.offset"
	AttrCount       = "io.count"
	AttrSize        = "io.size"
	AttrBytesRead   = "io.bytes_read"
	AttrBytesWrite  = "io.bytes_written"

	// ========================================================================
	// Checksums / chunked transfer encoding
	// ========================================================================
	AttrChecksumAlgorithm = "checksum.algorithm"
	AttrChunkSize         = "chunked.chunk_size"

	// ========================================================================
	// Retry / backoff
	// ========================================================================
	AttrAttempt    = "retry.attempt"
	AttrMaxRetries = "retry.max_attempts"
	AttrErrClass   = "retry.err_class"

	// ========================================================================
	// Storage backend
	// ========================================================================
	AttrStoreType    = "store.type"
	AttrMetadataMode = "store.metadata_mode"

	// ========================================================================
	// Locking
	// ========================================================================
	AttrLockType  = "lock.type"
	AttrLockOwner = "lock.owner"
	AttrLockScope = "lock.scope"
)

// Span names for engine operations.
// Format: <component>.<operation>
const (
	SpanObjectStore  = "objectstore.store"
	SpanObjectRead   = "objectstore.read"
	SpanObjectDelete = "objectstore.delete"
	SpanObjectCopy   = "objectstore.copy"
	SpanObjectList   = "objectstore.list"

	SpanMetaGet    = "metadatastore.get"
	SpanMetaPut    = "metadatastore.put"
	SpanMetaDelete = "metadatastore.delete"
	SpanMetaList   = "metadatastore.list"

	SpanMultipartInitiate = "multipart.initiate"
	SpanMultipartPart     = "multipart.store_part"
	SpanMultipartComplete = "multipart.complete"
	SpanMultipartAbort    = "multipart.abort"

	SpanChunkedDecode = "chunked.decode"
	SpanChecksumEtag  = "checksum.etag"

	SpanNetFSRetry      = "netfs.retry"
	SpanNetFSAtomicMove = "netfs.atomic_move"

	SpanLockAcquire = "lock.acquire"
	SpanLockRelease = "lock.release"
)

// Operation returns an attribute for the engine operation name.
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// RequestID returns an attribute for the caller-supplied request ID.
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// Bucket returns an attribute for the bucket name.
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for the object key.
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// UploadID returns an attribute for a multipart upload ID.
func UploadID(id string) attribute.KeyValue {
	return attribute.String(AttrUploadID, id)
}

// PartNumber returns an attribute for a multipart part number.
func PartNumber(n int) attribute.KeyValue {
	return attribute.Int(AttrPartNumber, n)
}

// ETag returns an attribute for an object ETag.
func ETag(etag string) attribute.KeyValue {
	return attribute.String(AttrETag, etag)
}

// Offset returns an attribute for a byte offset.
func Offset(offset int64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, offset)
}

// Count returns an attribute for a byte count requested.
func Count(count int64) attribute.KeyValue {
	return attribute.Int64(AttrCount, count)
}

// Size returns an attribute for an object or part size.
func Size(size int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, size)
}

// BytesRead returns an attribute for actual bytes read.
func BytesRead(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytesRead, n)
}

// BytesWritten returns an attribute for actual bytes written.
func BytesWritten(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytesWrite, n)
}

// ChecksumAlgorithm returns an attribute for the checksum algorithm in use.
func ChecksumAlgorithm(algo string) attribute.KeyValue {
	return attribute.String(AttrChecksumAlgorithm, algo)
}

// ChunkSize returns an attribute for a decoded chunk size.
func ChunkSize(n int64) attribute.KeyValue {
	return attribute.Int64(AttrChunkSize, n)
}

// Attempt returns an attribute for the current retry attempt number.
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// MaxRetries returns an attribute for the configured maximum retry attempts.
func MaxRetries(n int) attribute.KeyValue {
	return attribute.Int(AttrMaxRetries, n)
}

// ErrClass returns an attribute for a classified exception (transient/permanent).
func ErrClass(class string) attribute.KeyValue {
	return attribute.String(AttrErrClass, class)
}

// StoreType returns an attribute for store backend kind.
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// MetadataMode returns an attribute for the configured metadata backend mode.
func MetadataMode(mode string) attribute.KeyValue {
	return attribute.String(AttrMetadataMode, mode)
}

// LockType returns an attribute for lock type (read/write).
func LockType(t string) attribute.KeyValue {
	return attribute.String(AttrLockType, t)
}

// LockOwner returns an attribute for the lock owner/holder identifier.
func LockOwner(owner string) attribute.KeyValue {
	return attribute.String(AttrLockOwner, owner)
}

// LockScope returns an attribute for lock scope (single_process/distributed).
func LockScope(scope string) attribute.KeyValue {
	return attribute.String(AttrLockScope, scope)
}

// StartObjectSpan starts a span for an object-store operation.
func StartObjectSpan(ctx context.Context, spanName, bucket, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Bucket(bucket), StorageKey(key)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartMultipartSpan starts a span for a multipart-upload operation.
func StartMultipartSpan(ctx context.Context, spanName, bucket, key, uploadID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Bucket(bucket), StorageKey(key), UploadID(uploadID)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartMetadataSpan starts a span for a metadata-store operation.
func StartMetadataSpan(ctx context.Context, operation, bucket, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Bucket(bucket), StorageKey(key)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, operation, trace.WithAttributes(allAttrs...))
}

// StartRetrySpan starts a span for a network-filesystem retry attempt.
func StartRetrySpan(ctx context.Context, operation string, attempt, maxRetries int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Operation(operation), Attempt(attempt), MaxRetries(maxRetries)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanNetFSRetry, trace.WithAttributes(allAttrs...))
}
