// Package facade composes the data store, metadata store, bucket
// store, and multipart subsystem into the cross-cutting policy layer
// described by the wire protocol: forbidden-key validation, uniform
// bucket-existence checks, directory-bucket ordering constraints,
// delete-many, and copy-object directive handling. It is the single
// entry point an HTTP layer would sit in front of; the engine itself
// never speaks HTTP.
package facade

import (
	"context"
	"strings"
	"time"

	"github.com/laminastore/lamina/internal/metrics"
	"github.com/laminastore/lamina/pkg/lamina/bucketstore"
	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/lockmgr"
	"github.com/laminastore/lamina/pkg/lamina/metadatastore"
	"github.com/laminastore/lamina/pkg/lamina/multipart"
	"github.com/laminastore/lamina/pkg/lamina/objectstore"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// Config wires together the lower-level components a Facade composes.
// Objects, Metadata, Buckets, and Multipart are required; Locks is
// optional (nil disables metadata-file locking, appropriate for a
// single-process deployment with no concurrent writers to the same
// sidecar). Metrics is optional; a nil value disables instrumentation
// entirely rather than recording into a discarded registry.
type Config struct {
	Objects   *objectstore.Store
	Metadata  metadatastore.Backend
	Buckets   *bucketstore.Store
	Multipart *multipart.Store
	Locks     lockmgr.Manager
	Metrics   *metrics.Metrics
}

// Facade is the top-level policy-and-composition layer.
type Facade struct {
	cfg Config
}

// New creates a Facade over the given components.
func New(cfg Config) *Facade {
	return &Facade{cfg: cfg}
}

// Objects returns the underlying data store, for administrative
// tooling (e.g. a metadata rebuild pass) that needs to enumerate data
// keys directly rather than through the policy layer.
func (f *Facade) Objects() *objectstore.Store {
	return f.cfg.Objects
}

// Metadata returns the underlying metadata backend, for the same
// administrative use as Objects.
func (f *Facade) Metadata() metadatastore.Backend {
	return f.cfg.Metadata
}

// IsForbiddenKey enforces the key policy that sits above the data
// store's own temp-prefix/inline-metadata checks: non-empty, no
// path-escape segments, and (delegated) no temp-prefix or
// inline-metadata-directory collision.
func (f *Facade) IsForbiddenKey(key string) error {
	if key == "" {
		return errs.New("IsForbiddenKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return errs.New("IsForbiddenKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
		}
	}
	if err := f.cfg.Objects.ValidateKey(key); err != nil {
		return err
	}
	if err := f.cfg.Metadata.IsValidKey(key); err != nil {
		return err
	}
	return nil
}

// requireBucket returns errs.NotFound (ErrBucketNotFound) uniformly
// when bucket does not exist, matching the wire protocol's single
// NoSuchBucket code regardless of which operation triggered it.
func (f *Facade) requireBucket(ctx context.Context, op, bucket string) (types.Bucket, error) {
	b, err := f.cfg.Buckets.Head(ctx, bucket)
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			return types.Bucket{}, errs.New(op, errs.NotFound, bucket, "", errs.ErrBucketNotFound).WithBackend("facade")
		}
		return types.Bucket{}, err
	}
	return b, nil
}

func (f *Facade) withLock(ctx context.Context, path string, mode lockmgr.Mode, fn func() error) error {
	if f.cfg.Locks == nil {
		return fn()
	}
	release, err := f.cfg.Locks.Acquire(ctx, path, mode)
	if err != nil {
		return errs.New("withLock", errs.IOError, "", path, err).WithBackend("facade")
	}
	defer release()
	return fn()
}

// observe times operation and records its outcome, a no-op when no
// Metrics was configured.
func (f *Facade) observe(operation string, start time.Time, err error) {
	f.cfg.Metrics.ObserveOperation(operation, err, time.Since(start))
}
