package facade

import (
	"context"
	"io"
	"time"

	"github.com/laminastore/lamina/internal/metrics"
	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/lockmgr"
	"github.com/laminastore/lamina/pkg/lamina/metadatastore"
	"github.com/laminastore/lamina/pkg/lamina/objectstore"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// PutObject validates key, checks that bucket exists, writes the object
// body through the data store, then the accompanying record through the
// metadata store, holding a writer lock on the key for the duration.
func (f *Facade) PutObject(
	ctx context.Context,
	bucket, key string,
	src io.Reader,
	chunkOpts *objectstore.ChunkOptions,
	checksumReq []types.ChecksumRequest,
	contentType, ownerID, ownerDisplayName string,
	userMetadata map[string]string,
) (types.Object, error) {
	start := time.Now()
	var outErr error
	defer func() { f.observe(metrics.OperationPut, start, outErr) }()

	if err := f.IsForbiddenKey(key); err != nil {
		outErr = err
		return types.Object{}, err
	}
	if _, err := f.requireBucket(ctx, "PutObject", bucket); err != nil {
		outErr = err
		return types.Object{}, err
	}

	var obj types.Object
	err := f.withLock(ctx, lockKey(bucket, key), lockmgr.ModeWrite, func() error {
		result, err := f.cfg.Objects.Store(ctx, bucket, key, src, chunkOpts, checksumReq)
		if err != nil {
			return err
		}

		rec := metadatastore.Record{
			ETag:             result.ETag,
			ContentType:      contentType,
			OwnerID:          ownerID,
			OwnerDisplayName: ownerDisplayName,
			UserMetadata:     userMetadata,
			Checksums:        result.Checksums,
		}
		stored, err := f.cfg.Metadata.Store(ctx, bucket, key, rec)
		if err != nil {
			return err
		}
		obj = stored
		return nil
	})
	if err != nil {
		outErr = err
		return types.Object{}, err
	}
	f.cfg.Metrics.ObserveBytes(metrics.OperationPut, obj.Size)
	return obj, nil
}

// GetObject reads key into dst, optionally restricted to [byteStart,
// byteEnd], and returns its metadata record.
func (f *Facade) GetObject(ctx context.Context, bucket, key string, dst io.Writer, byteStart, byteEnd *int64) (types.Object, error) {
	start := time.Now()
	var outErr error
	defer func() { f.observe(metrics.OperationGet, start, outErr) }()

	if err := f.IsForbiddenKey(key); err != nil {
		outErr = err
		return types.Object{}, err
	}
	if _, err := f.requireBucket(ctx, "GetObject", bucket); err != nil {
		outErr = err
		return types.Object{}, err
	}

	var obj types.Object
	err := f.withLock(ctx, lockKey(bucket, key), lockmgr.ModeRead, func() error {
		found, err := f.cfg.Objects.Read(ctx, bucket, key, dst, byteStart, byteEnd)
		if err != nil {
			return err
		}
		if !found {
			return errs.New("GetObject", errs.NotFound, bucket, key, errs.ErrObjectNotFound).WithBackend("facade")
		}
		meta, err := f.cfg.Metadata.Get(ctx, bucket, key)
		if err != nil {
			return err
		}
		obj = meta
		return nil
	})
	if err != nil {
		outErr = err
		return types.Object{}, err
	}
	f.cfg.Metrics.ObserveBytes(metrics.OperationGet, obj.Size)
	return obj, nil
}

// HeadObject returns an object's metadata record without reading its
// body.
func (f *Facade) HeadObject(ctx context.Context, bucket, key string) (types.Object, error) {
	if err := f.IsForbiddenKey(key); err != nil {
		return types.Object{}, err
	}
	if _, err := f.requireBucket(ctx, "HeadObject", bucket); err != nil {
		return types.Object{}, err
	}
	return f.cfg.Metadata.Get(ctx, bucket, key)
}

// DeleteObject removes key's data file and metadata record. Matching S3
// semantics, deleting an object that does not exist is not an error.
func (f *Facade) DeleteObject(ctx context.Context, bucket, key string) error {
	start := time.Now()
	var outErr error
	defer func() { f.observe(metrics.OperationDelete, start, outErr) }()

	if err := f.IsForbiddenKey(key); err != nil {
		outErr = err
		return err
	}
	if _, err := f.requireBucket(ctx, "DeleteObject", bucket); err != nil {
		outErr = err
		return err
	}

	outErr = f.withLock(ctx, lockKey(bucket, key), lockmgr.ModeWrite, func() error {
		f.cfg.Objects.Delete(ctx, bucket, key)
		if err := f.cfg.Metadata.Delete(ctx, bucket, key); err != nil && !errs.Is(err, errs.NotFound) {
			return err
		}
		return nil
	})
	return outErr
}

// ListObjects enumerates bucket's keys under prefix/delimiter. Directory
// buckets reject a non-empty startAfter, since that option implies a
// lexicographic ordering guarantee a directory bucket's filesystem-native
// enumeration cannot honor.
func (f *Facade) ListObjects(ctx context.Context, bucket string, prefix, delimiter, startAfter string, maxKeys int) (types.ListResult, error) {
	start := time.Now()
	var outErr error
	defer func() { f.observe(metrics.OperationList, start, outErr) }()

	b, err := f.requireBucket(ctx, "ListObjects", bucket)
	if err != nil {
		outErr = err
		return types.ListResult{}, err
	}
	if b.Type == types.BucketDirectory && startAfter != "" {
		outErr = errs.New("ListObjects", errs.InvalidArgument, bucket, "", errs.ErrForbiddenKey).WithBackend("facade")
		return types.ListResult{}, outErr
	}
	result, err := f.cfg.Objects.List(bucket, b.Type, prefix, delimiter, startAfter, maxKeys)
	outErr = err
	return result, err
}

func lockKey(bucket, key string) string {
	return bucket + "/" + key
}
