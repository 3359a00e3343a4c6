package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Operation identity
	// ========================================================================
	KeyOperation = "operation"  // Engine operation name: Store, Read, Complete, Abort, ...
	KeyRequestID = "request_id" // Caller-supplied correlation ID
	KeyStatus    = "status"     // success / error
	KeyErrorCode = "error_code" // ErrorCode string (NotFound, IOError, ...)

	// ========================================================================
	// Object addressing
	// ========================================================================
	KeyBucket     = "bucket"       // Bucket name
	KeyKey        = "key"          // Object key
	KeyUploadID   = "upload_id"    // Multipart upload ID
	KeyPartNumber = "part_number"  // Multipart part number (1-10000)
	KeyETag       = "etag"         // Computed or expected ETag
	KeyVersionID  = "version_id"   // Reserved for future object versioning

	// ========================================================================
	// Filesystem paths
	// ========================================================================
	KeyPath     = "path"      // Final on-disk path
	KeyTempPath = "temp_path" // Same-directory temp file used for atomic write
	KeyOldPath  = "old_path"  // Source path for rename/move operations
	KeyNewPath  = "new_path"  // Destination path for rename/move operations

	// ========================================================================
	// I/O
	// ========================================================================
	KeyOffset       = "offset"        // Byte offset (range reads, chunk offsets)
	KeyCount        = "count"         // Byte count requested
	KeyBytesRead    = "bytes_read"    // Actual bytes read
	KeyBytesWritten = "bytes_written" // Actual bytes written
	KeySize         = "size"          // Object/part size in bytes

	// ========================================================================
	// Checksums & chunked transfer encoding
	// ========================================================================
	KeyChecksumAlgorithm = "checksum_algorithm" // crc32, crc32c, crc64nvme, sha1, sha256
	KeyChecksumValue     = "checksum_value"     // base64-encoded checksum
	KeyChunkSignature    = "chunk_signature"    // hex chunk signature from chunked encoding
	KeyChunkSize         = "chunk_size"         // Decoded chunk size in bytes

	// ========================================================================
	// Retry / backoff (network filesystem pipeline)
	// ========================================================================
	KeyAttempt    = "attempt"    // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
	KeyBackoffMs  = "backoff_ms"  // Computed backoff delay in milliseconds
	KeyErrClass   = "err_class"   // Classified exception: transient, permanent

	// ========================================================================
	// Storage backend
	// ========================================================================
	KeyStoreType     = "store_type"     // objectstore, metadatastore backend kind
	KeyMetadataMode  = "metadata_mode"  // separate_directory, inline, xattr, database
	KeyDataDirectory = "data_directory" // Configured data root

	// ========================================================================
	// Metadata cache
	// ========================================================================
	KeyCacheHit      = "cache_hit"      // Cache hit indicator
	KeyCacheSize     = "cache_size"     // Current cache entry count
	KeyCacheCapacity = "cache_capacity" // Maximum cache capacity
	KeyEvicted       = "evicted"        // Number of entries evicted

	// ========================================================================
	// List operations
	// ========================================================================
	KeyPrefix       = "prefix"        // LIST prefix filter
	KeyDelimiter    = "delimiter"     // LIST delimiter
	KeyEntries      = "entries"       // Number of entries returned
	KeyContinuation = "continuation"  // Continuation token
	KeyMaxKeys      = "max_keys"      // Maximum entries requested
	KeyTruncated    = "truncated"     // Result truncation indicator

	// ========================================================================
	// Locking
	// ========================================================================
	KeyLockType   = "lock_type"   // read, write
	KeyLockOwner  = "lock_owner"  // Lock owner/holder identifier
	KeyLockScope  = "lock_scope"  // single_process, distributed

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Operation identity
// ----------------------------------------------------------------------------

// Operation returns a slog.Attr for the engine operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// RequestID returns a slog.Attr for the caller-supplied request ID
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Status returns a slog.Attr for operation status (success/error)
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// ErrorCode returns a slog.Attr for a symbolic error code
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// ----------------------------------------------------------------------------
// Object addressing
// ----------------------------------------------------------------------------

// Bucket returns a slog.Attr for the bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Key returns a slog.Attr for the object key
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// UploadID returns a slog.Attr for a multipart upload ID
func UploadID(id string) slog.Attr {
	return slog.String(KeyUploadID, id)
}

// PartNumber returns a slog.Attr for a multipart part number
func PartNumber(n int) slog.Attr {
	return slog.Int(KeyPartNumber, n)
}

// ETag returns a slog.Attr for an object ETag
func ETag(etag string) slog.Attr {
	return slog.String(KeyETag, etag)
}

// ----------------------------------------------------------------------------
// Filesystem paths
// ----------------------------------------------------------------------------

// Path returns a slog.Attr for a final on-disk path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// TempPath returns a slog.Attr for a temp file used during atomic write
func TempPath(p string) slog.Attr {
	return slog.String(KeyTempPath, p)
}

// OldPath returns a slog.Attr for the source path in a rename/move
func OldPath(p string) slog.Attr {
	return slog.String(KeyOldPath, p)
}

// NewPath returns a slog.Attr for the destination path in a rename/move
func NewPath(p string) slog.Attr {
	return slog.String(KeyNewPath, p)
}

// ----------------------------------------------------------------------------
// I/O
// ----------------------------------------------------------------------------

// Offset returns a slog.Attr for a byte offset
func Offset(off int64) slog.Attr {
	return slog.Int64(KeyOffset, off)
}

// Count returns a slog.Attr for a byte count requested
func Count(c int64) slog.Attr {
	return slog.Int64(KeyCount, c)
}

// BytesRead returns a slog.Attr for actual bytes read
func BytesRead(n int64) slog.Attr {
	return slog.Int64(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for actual bytes written
func BytesWritten(n int64) slog.Attr {
	return slog.Int64(KeyBytesWritten, n)
}

// Size returns a slog.Attr for object/part size
func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

// ----------------------------------------------------------------------------
// Checksums & chunked transfer encoding
// ----------------------------------------------------------------------------

// ChecksumAlgorithm returns a slog.Attr for the checksum algorithm in use
func ChecksumAlgorithm(algo string) slog.Attr {
	return slog.String(KeyChecksumAlgorithm, algo)
}

// ChecksumValue returns a slog.Attr for a computed checksum value
func ChecksumValue(value string) slog.Attr {
	return slog.String(KeyChecksumValue, value)
}

// ChunkSignature returns a slog.Attr for a chunked-encoding chunk signature
func ChunkSignature(sig string) slog.Attr {
	return slog.String(KeyChunkSignature, sig)
}

// ChunkSize returns a slog.Attr for a decoded chunk size
func ChunkSize(n int64) slog.Attr {
	return slog.Int64(KeyChunkSize, n)
}

// ----------------------------------------------------------------------------
// Retry / backoff
// ----------------------------------------------------------------------------

// Attempt returns a slog.Attr for the current retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for the configured maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// BackoffMs returns a slog.Attr for a computed backoff delay
func BackoffMs(ms float64) slog.Attr {
	return slog.Float64(KeyBackoffMs, ms)
}

// ErrClass returns a slog.Attr for a classified exception (transient/permanent)
func ErrClass(class string) slog.Attr {
	return slog.String(KeyErrClass, class)
}

// ----------------------------------------------------------------------------
// Storage backend
// ----------------------------------------------------------------------------

// StoreType returns a slog.Attr for store backend kind
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}

// MetadataMode returns a slog.Attr for the configured metadata backend mode
func MetadataMode(mode string) slog.Attr {
	return slog.String(KeyMetadataMode, mode)
}

// DataDirectory returns a slog.Attr for the configured data root
func DataDirectory(dir string) slog.Attr {
	return slog.String(KeyDataDirectory, dir)
}

// ----------------------------------------------------------------------------
// Metadata cache
// ----------------------------------------------------------------------------

// CacheHit returns a slog.Attr for cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// CacheSize returns a slog.Attr for current cache size
func CacheSize(size int) slog.Attr {
	return slog.Int(KeyCacheSize, size)
}

// CacheCapacity returns a slog.Attr for maximum cache capacity
func CacheCapacity(capacity int) slog.Attr {
	return slog.Int(KeyCacheCapacity, capacity)
}

// Evicted returns a slog.Attr for number of entries evicted
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// ----------------------------------------------------------------------------
// List operations
// ----------------------------------------------------------------------------

// Prefix returns a slog.Attr for a LIST prefix filter
func Prefix(p string) slog.Attr {
	return slog.String(KeyPrefix, p)
}

// Delimiter returns a slog.Attr for a LIST delimiter
func Delimiter(d string) slog.Attr {
	return slog.String(KeyDelimiter, d)
}

// Entries returns a slog.Attr for number of entries returned
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// Continuation returns a slog.Attr for a continuation token
func Continuation(token string) slog.Attr {
	return slog.String(KeyContinuation, token)
}

// MaxKeys returns a slog.Attr for maximum entries requested
func MaxKeys(n int) slog.Attr {
	return slog.Int(KeyMaxKeys, n)
}

// Truncated returns a slog.Attr for result truncation indicator
func Truncated(t bool) slog.Attr {
	return slog.Bool(KeyTruncated, t)
}

// ----------------------------------------------------------------------------
// Locking
// ----------------------------------------------------------------------------

// LockType returns a slog.Attr for lock type (read/write)
func LockType(t string) slog.Attr {
	return slog.String(KeyLockType, t)
}

// LockOwner returns a slog.Attr for lock owner identifier
func LockOwner(owner string) slog.Attr {
	return slog.String(KeyLockOwner, owner)
}

// LockScope returns a slog.Attr for lock scope (single_process/distributed)
func LockScope(scope string) slog.Attr {
	return slog.String(KeyLockScope, scope)
}

// ----------------------------------------------------------------------------
// Operation metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
