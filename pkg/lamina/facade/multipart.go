package facade

import (
	"context"
	"io"
	"time"

	"github.com/laminastore/lamina/internal/metrics"
	"github.com/laminastore/lamina/pkg/lamina/metadatastore"
	"github.com/laminastore/lamina/pkg/lamina/objectstore"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// InitiateMultipartUpload validates key and bucket existence, then
// starts a new staged upload.
func (f *Facade) InitiateMultipartUpload(ctx context.Context, bucket, key, contentType string, userMetadata map[string]string, checksumAlgo types.Algorithm) (types.MultipartUpload, error) {
	if err := f.IsForbiddenKey(key); err != nil {
		return types.MultipartUpload{}, err
	}
	if _, err := f.requireBucket(ctx, "InitiateMultipartUpload", bucket); err != nil {
		return types.MultipartUpload{}, err
	}
	return f.cfg.Multipart.Initiate(ctx, bucket, key, contentType, userMetadata, checksumAlgo)
}

// UploadPart stages one part of uploadID.
func (f *Facade) UploadPart(ctx context.Context, uploadID string, partNumber int, src io.Reader, chunkOpts *objectstore.ChunkOptions, checksumReq []types.ChecksumRequest) (types.UploadPart, error) {
	return f.cfg.Multipart.StorePart(ctx, uploadID, partNumber, src, chunkOpts, checksumReq)
}

// ListUploadParts returns every part staged so far for uploadID.
func (f *Facade) ListUploadParts(ctx context.Context, uploadID string) ([]types.UploadPart, error) {
	return f.cfg.Multipart.ListParts(ctx, uploadID)
}

// CompleteMultipartUpload assembles the completed parts into a final
// object and writes its metadata record alongside the data store write.
func (f *Facade) CompleteMultipartUpload(ctx context.Context, uploadID string, bucket, key string, completedParts []types.CompletedPart, contentType, ownerID, ownerDisplayName string, userMetadata map[string]string) (types.Object, error) {
	start := time.Now()
	var outErr error
	defer func() { f.observe(metrics.OperationCompleteUpload, start, outErr) }()

	result, err := f.cfg.Multipart.Complete(ctx, uploadID, completedParts)
	if err != nil {
		outErr = err
		return types.Object{}, err
	}

	rec := metadatastore.Record{
		ETag:             result.ETag,
		ContentType:      contentType,
		OwnerID:          ownerID,
		OwnerDisplayName: ownerDisplayName,
		UserMetadata:     userMetadata,
		Checksums:        result.Checksums,
	}
	obj, err := f.cfg.Metadata.Store(ctx, bucket, key, rec)
	outErr = err
	if err == nil {
		f.cfg.Metrics.ObserveBytes(metrics.OperationCompleteUpload, obj.Size)
	}
	return obj, err
}

// AbortMultipartUpload discards uploadID's staged parts without
// assembling a final object.
func (f *Facade) AbortMultipartUpload(ctx context.Context, uploadID string) error {
	start := time.Now()
	var outErr error
	defer func() { f.observe(metrics.OperationAbortUpload, start, outErr) }()

	outErr = f.cfg.Multipart.Abort(ctx, uploadID)
	return outErr
}
