// Package errs defines the structured error vocabulary shared by every
// storage-engine component. Components never return bare errors.Is-style
// sentinels to callers; they wrap a Code in a *Error so that a facade at
// the top of the stack can translate directly to an S3 error code string.
package errs

import (
	"errors"
	"fmt"
)

// Code classifies a failure into one of the kinds the engine produces.
// Facades map Code to the S3 wire error code; components never invent
// their own ad-hoc string codes.
type Code string

const (
	// NotFound indicates a missing bucket, object, upload, or part.
	NotFound Code = "NotFound"
	// AlreadyExists indicates a conflicting create (e.g. duplicate bucket).
	AlreadyExists Code = "AlreadyExists"
	// InvalidArgument indicates a validation failure with no side effects:
	// forbidden key, bad range, bad prefix, bad checksum algorithm.
	InvalidArgument Code = "InvalidArgument"
	// IOError indicates a fatal, non-retryable filesystem error.
	IOError Code = "IOError"
	// IntegrityError indicates a signature, checksum, or ETag mismatch.
	IntegrityError Code = "IntegrityError"
	// PermissionDenied indicates the OS denied the requested access.
	PermissionDenied Code = "PermissionDenied"
	// Unsupported indicates a capability the active backend does not offer
	// (e.g. xattr metadata mode on an unsupported platform).
	Unsupported Code = "Unsupported"
	// Cancelled indicates the caller's context was cancelled mid-operation.
	Cancelled Code = "Cancelled"
)

// Error is the structured failure record every engine component returns.
// It always wraps a sentinel (Err) via errors.Is/As support, and carries
// enough operational context for logging without forcing every call site
// to assemble it by hand.
type Error struct {
	Op      string // operation name: Store, Read, Complete, ...
	Bucket  string
	Key     string
	Backend string // store implementation: filesystem, xattr, database, ...
	Code    Code
	Err     error // underlying sentinel or wrapped OS error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Code)
	if e.Bucket != "" {
		msg += fmt.Sprintf(" bucket=%s", e.Bucket)
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" key=%s", e.Key)
	}
	if e.Backend != "" {
		msg += fmt.Sprintf(" backend=%s", e.Backend)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error for op against the given bucket/key.
func New(op string, code Code, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Code: code, Err: err}
}

// WithBackend returns a copy of e with Backend set, for backends that only
// learn their name at construction time.
func (e *Error) WithBackend(backend string) *Error {
	clone := *e
	clone.Backend = backend
	return &clone
}

// CodeOf extracts the Code from err if it (or something it wraps) is an
// *Error; returns "" otherwise.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Is reports whether err carries the given Code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Sentinel errors wrapped by *Error.Err for common not-found cases, so
// callers can also errors.Is against them directly when no bucket/key
// context is needed (e.g. backend-internal plumbing).
var (
	ErrBucketNotFound    = errors.New("bucket not found")
	ErrObjectNotFound    = errors.New("object not found")
	ErrUploadNotFound    = errors.New("multipart upload not found")
	ErrPartNotFound      = errors.New("upload part not found")
	ErrBucketNotEmpty    = errors.New("bucket is not empty")
	ErrBucketExists      = errors.New("bucket already exists")
	ErrForbiddenKey      = errors.New("forbidden object key")
	ErrInvalidBucketName = errors.New("invalid bucket name")
	ErrInvalidRange      = errors.New("invalid byte range")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrSignatureInvalid  = errors.New("chunk signature does not match")
	ErrETagMismatch      = errors.New("etag mismatch")
	ErrTooManyKeys       = errors.New("too many keys in delete-many request")
)
