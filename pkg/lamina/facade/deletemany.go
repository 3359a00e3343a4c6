package facade

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/laminastore/lamina/pkg/lamina/errs"
)

// MaxDeleteKeys is the largest delete-many request this facade accepts
// in one call, matching the wire protocol's batch-delete limit.
const MaxDeleteKeys = 1000

// DeleteError reports one key's delete-many failure.
type DeleteError struct {
	Key     string
	Code    errs.Code
	Message string
}

// DeleteManyResult is the outcome of a delete-many call: the ordered
// list of keys successfully deleted, paired with the keys that failed.
// Quiet mode (the caller's choice, not recorded here) determines whether
// Deleted is surfaced to the wire response; the facade always populates
// it so the caller can decide.
type DeleteManyResult struct {
	Deleted []string
	Errors  []DeleteError
}

// DeleteMany deletes every key in bucket concurrently, up to
// MaxDeleteKeys per call, and reports which keys succeeded and which
// failed. A single bad key never aborts the rest of the batch.
func (f *Facade) DeleteMany(ctx context.Context, bucket string, keys []string) (DeleteManyResult, error) {
	if len(keys) > MaxDeleteKeys {
		return DeleteManyResult{}, errs.New("DeleteMany", errs.InvalidArgument, bucket, "", errs.ErrTooManyKeys).WithBackend("facade")
	}
	if _, err := f.requireBucket(ctx, "DeleteMany", bucket); err != nil {
		return DeleteManyResult{}, err
	}

	deleted := make([]string, len(keys))
	failed := make([]DeleteError, len(keys))
	ok := make([]bool, len(keys))
	isErr := make([]bool, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if err := f.IsForbiddenKey(key); err != nil {
				isErr[i] = true
				failed[i] = DeleteError{Key: key, Code: errs.CodeOf(err), Message: err.Error()}
				return nil
			}
			if !f.cfg.Objects.Exists(bucket, key) && !f.cfg.Metadata.Exists(gctx, bucket, key) {
				notFound := errs.New("DeleteMany", errs.NotFound, bucket, key, errs.ErrObjectNotFound).WithBackend("facade")
				isErr[i] = true
				failed[i] = DeleteError{Key: key, Code: errs.NotFound, Message: notFound.Error()}
				return nil
			}
			if err := f.DeleteObject(gctx, bucket, key); err != nil {
				isErr[i] = true
				failed[i] = DeleteError{Key: key, Code: errs.CodeOf(err), Message: err.Error()}
				return nil
			}
			ok[i] = true
			deleted[i] = key
			return nil
		})
	}
	// errgroup.Wait's error is always nil here: each goroutine records
	// its own per-key failure instead of returning one, since a single
	// key's error must never abort the rest of the batch.
	_ = g.Wait()

	result := DeleteManyResult{}
	for i := range keys {
		if ok[i] {
			result.Deleted = append(result.Deleted, deleted[i])
		}
		if isErr[i] {
			result.Errors = append(result.Errors, failed[i])
		}
	}
	return result, nil
}
