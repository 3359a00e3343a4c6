package facade

import (
	"context"

	"github.com/laminastore/lamina/pkg/lamina/types"
)

// CreateBucket delegates to the bucket store, which validates the name
// (length, charset, reserved-name collision) before checking for a
// duplicate bucket.
func (f *Facade) CreateBucket(ctx context.Context, bucket types.Bucket) (types.Bucket, error) {
	return f.cfg.Buckets.Create(ctx, bucket)
}

// HeadBucket reports whether bucket exists, returning its metadata.
func (f *Facade) HeadBucket(ctx context.Context, bucket string) (types.Bucket, error) {
	return f.requireBucket(ctx, "HeadBucket", bucket)
}

// GetBucketMetadata is an alias over HeadBucket for wire-protocol parity.
func (f *Facade) GetBucketMetadata(ctx context.Context, bucket string) (types.Bucket, error) {
	return f.requireBucket(ctx, "GetBucketMetadata", bucket)
}

// UpdateBucketTags replaces bucket's tag set after confirming it exists.
func (f *Facade) UpdateBucketTags(ctx context.Context, bucket string, tags map[string]string) (types.Bucket, error) {
	if _, err := f.requireBucket(ctx, "UpdateBucketTags", bucket); err != nil {
		return types.Bucket{}, err
	}
	return f.cfg.Buckets.UpdateTags(ctx, bucket, tags)
}

// DeleteBucket removes bucket. force controls whether a non-empty bucket
// is rejected (force=false, the default) or recursively removed.
func (f *Facade) DeleteBucket(ctx context.Context, bucket string, force bool) error {
	if _, err := f.requireBucket(ctx, "DeleteBucket", bucket); err != nil {
		return err
	}
	return f.cfg.Buckets.Delete(ctx, bucket, force)
}

// ListBuckets returns every bucket the store knows about, sorted by name.
func (f *Facade) ListBuckets(ctx context.Context) ([]types.Bucket, error) {
	return f.cfg.Buckets.List(ctx)
}
