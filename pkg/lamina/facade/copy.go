package facade

import (
	"context"
	"time"

	"github.com/laminastore/lamina/internal/metrics"
	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/metadatastore"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// MetadataDirective selects how CopyObject populates the destination
// object's metadata record.
type MetadataDirective string

const (
	// MetadataDirectiveCopy duplicates the source object's metadata
	// record onto the destination, except for ETag/size, which are
	// always recomputed from the copied bytes.
	MetadataDirectiveCopy MetadataDirective = "COPY"
	// MetadataDirectiveReplace installs the caller-supplied metadata
	// record in place of the source's.
	MetadataDirectiveReplace MetadataDirective = "REPLACE"
)

// CopyObject duplicates srcBucket/srcKey's data to dstBucket/dstKey, then
// installs the destination's metadata record per directive: COPY carries
// the source record forward (less ETag/checksums, recomputed from the
// copied bytes), REPLACE installs replacement in full.
func (f *Facade) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string, directive MetadataDirective, replacement metadatastore.Record) (types.Object, error) {
	start := time.Now()
	var outErr error
	defer func() { f.observe(metrics.OperationCopy, start, outErr) }()

	if err := f.IsForbiddenKey(srcKey); err != nil {
		outErr = err
		return types.Object{}, err
	}
	if err := f.IsForbiddenKey(dstKey); err != nil {
		outErr = err
		return types.Object{}, err
	}
	if _, err := f.requireBucket(ctx, "CopyObject", srcBucket); err != nil {
		outErr = err
		return types.Object{}, err
	}
	if _, err := f.requireBucket(ctx, "CopyObject", dstBucket); err != nil {
		outErr = err
		return types.Object{}, err
	}

	result, err := f.cfg.Objects.Copy(ctx, srcBucket, srcKey, dstBucket, dstKey)
	if err != nil {
		outErr = err
		return types.Object{}, err
	}
	if result == nil {
		outErr = errs.New("CopyObject", errs.NotFound, srcBucket, srcKey, errs.ErrObjectNotFound).WithBackend("facade")
		return types.Object{}, outErr
	}

	rec := replacement
	if directive == MetadataDirectiveCopy {
		src, err := f.cfg.Metadata.Get(ctx, srcBucket, srcKey)
		if err != nil {
			outErr = err
			return types.Object{}, err
		}
		rec = metadatastore.Record{
			ContentType:      src.ContentType,
			OwnerID:          src.OwnerID,
			OwnerDisplayName: src.OwnerDisplayName,
			UserMetadata:     src.UserMetadata,
		}
	}
	rec.ETag = result.ETag
	rec.Checksums = result.Checksums

	obj, err := f.cfg.Metadata.Store(ctx, dstBucket, dstKey, rec)
	outErr = err
	return obj, err
}
