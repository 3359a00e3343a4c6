package facade

import (
	"errors"

	"github.com/laminastore/lamina/pkg/lamina/errs"
)

// WireCode translates an error returned by any Facade method into the S3
// wire error code an HTTP layer would put in the response body. It never
// guesses: an error it does not recognize maps to "InternalError".
func WireCode(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, errs.ErrBucketNotFound):
		return "NoSuchBucket"
	case errors.Is(err, errs.ErrBucketExists):
		return "BucketAlreadyExists"
	case errors.Is(err, errs.ErrBucketNotEmpty):
		return "BucketNotEmpty"
	case errors.Is(err, errs.ErrObjectNotFound):
		return "NoSuchKey"
	case errors.Is(err, errs.ErrUploadNotFound):
		return "NoSuchUpload"
	case errors.Is(err, errs.ErrPartNotFound):
		return "InvalidPart"
	case errors.Is(err, errs.ErrForbiddenKey):
		return "InvalidObjectName"
	case errors.Is(err, errs.ErrInvalidBucketName):
		return "InvalidArgument"
	case errors.Is(err, errs.ErrInvalidRange):
		return "InvalidRange"
	case errors.Is(err, errs.ErrChecksumMismatch):
		return "InvalidChecksum"
	case errors.Is(err, errs.ErrSignatureInvalid):
		return "SignatureDoesNotMatch"
	case errors.Is(err, errs.ErrETagMismatch):
		return "InvalidPart"
	case errors.Is(err, errs.ErrTooManyKeys):
		return "TooManyKeys"
	}

	switch errs.CodeOf(err) {
	case errs.NotFound:
		return "NoSuchKey"
	case errs.AlreadyExists:
		return "BucketAlreadyExists"
	case errs.InvalidArgument:
		return "InvalidRequest"
	case errs.IntegrityError:
		return "BadDigest"
	case errs.PermissionDenied:
		return "AccessDenied"
	case errs.Unsupported:
		return "NotImplemented"
	case errs.Cancelled:
		return "RequestTimeout"
	default:
		return "InternalError"
	}
}
